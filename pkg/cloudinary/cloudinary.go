package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config holds Cloudinary credentials and the target folder for campus
// assets (avatars and post images).
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Client uploads image assets to Cloudinary.
type Client struct {
	cld    *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary client.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Client{
		cld:    cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload stores the asset and returns its secure URL. Overwrite is disabled
// so a retried request never clobbers an unrelated asset.
func (c *Client) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	params := uploader.UploadParams{
		Folder:       c.folder,
		PublicID:     publicIDFor(name),
		ResourceType: "image",
		Overwrite:    api.Bool(false),
	}

	result, err := c.cld.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}

	c.logger.Info().Str("public_id", result.PublicID).Int("bytes", result.Bytes).Msg("asset uploaded")

	return result.SecureURL, nil
}

func publicIDFor(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = "asset"
	}
	return fmt.Sprintf("%s-%d", base, time.Now().UnixNano())
}
