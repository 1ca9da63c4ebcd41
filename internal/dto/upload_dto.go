package dto

// UploadResponse describes a stored asset.
type UploadResponse struct {
	URL       string `json:"url"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// PushSubscribeRequest registers a browser push endpoint.
type PushSubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url,max=1024"`
	P256dh   string `json:"p256dh" validate:"required,max=256"`
	Auth     string `json:"auth" validate:"required,max=128"`
}

// PushSubscriptionResponse confirms a registered push endpoint.
type PushSubscriptionResponse struct {
	ID       uint   `json:"id"`
	Endpoint string `json:"endpoint"`
}
