package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/campusconnect/campus-api/internal/models"
	"github.com/campusconnect/campus-api/internal/repository"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

type stubFileStorage struct {
	uploads map[string][]byte
	fail    bool
}

func (s *stubFileStorage) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	if s.fail {
		return "", errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if s.uploads == nil {
		s.uploads = make(map[string][]byte)
	}
	s.uploads[name] = data
	return "https://cdn.example.com/" + name, nil
}

func newUploadServiceForTest(t *testing.T, storage FileStorage) UploadService {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UploadRecord{}))
	return NewUploadService(storage, repository.NewUploadRepository(db), 1, zerolog.Nop())
}

func fileHeaderFor(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}

func TestUploadStoresImage(t *testing.T) {
	storage := &stubFileStorage{}
	svc := newUploadServiceForTest(t, storage)
	ctx := context.Background()

	response, err := svc.Upload(ctx, "alice", fileHeaderFor(t, "Group Photo!.png", pngSignature))
	require.NoError(t, err)
	require.Equal(t, "image/png", response.MimeType)
	require.Equal(t, "group-photo.png", response.FileName)
	require.Equal(t, "https://cdn.example.com/group-photo.png", response.URL)
	require.EqualValues(t, len(pngSignature), response.SizeBytes)
	require.Len(t, response.Checksum, 64)

	recent, err := svc.Recent(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, response.URL, recent[0].URL)
}

func TestUploadTrustsSniffedType(t *testing.T) {
	storage := &stubFileStorage{}
	svc := newUploadServiceForTest(t, storage)

	// The client claims .gif but the bytes are a PNG.
	response, err := svc.Upload(context.Background(), "alice", fileHeaderFor(t, "avatar.gif", pngSignature))
	require.NoError(t, err)
	require.Equal(t, "image/png", response.MimeType)
	require.True(t, strings.HasSuffix(response.FileName, ".png"))
}

func TestUploadRejectsNonImage(t *testing.T) {
	storage := &stubFileStorage{}
	svc := newUploadServiceForTest(t, storage)

	_, err := svc.Upload(context.Background(), "alice", fileHeaderFor(t, "notes.txt", []byte("lecture notes")))
	require.ErrorIs(t, err, ErrUploadNotImage)
	require.Empty(t, storage.uploads, "rejected payloads never reach storage")
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	storage := &stubFileStorage{}
	svc := newUploadServiceForTest(t, storage)

	oversized := make([]byte, (1<<20)+1)
	copy(oversized, pngSignature)

	_, err := svc.Upload(context.Background(), "alice", fileHeaderFor(t, "huge.png", oversized))
	require.ErrorIs(t, err, ErrUploadTooLarge)
}

func TestUploadStorageFailureIsNotRecorded(t *testing.T) {
	storage := &stubFileStorage{fail: true}
	svc := newUploadServiceForTest(t, storage)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "alice", fileHeaderFor(t, "photo.png", pngSignature))
	require.Error(t, err)

	recent, err := svc.Recent(ctx, "alice", 10)
	require.NoError(t, err)
	require.Empty(t, recent)
}

func TestSanitizeFileName(t *testing.T) {
	require.Equal(t, "etc-passwd.png", sanitizeFileName("../../etc/passwd.png", ".png"))
	require.Equal(t, "group-photo.jpg", sanitizeFileName("Group Photo!.jpeg", ".jpg"))
	require.True(t, strings.HasSuffix(sanitizeFileName("???.png", ".png"), ".png"), "unusable names fall back to a generated one")
}
