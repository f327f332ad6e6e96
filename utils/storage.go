package utils

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const (
	StorageProviderGCS   = "gcs"
	StorageProviderLocal = "local"
)

// ObjectStore stores uploaded files and returns their public URL.
type ObjectStore interface {
	Put(ctx context.Context, objectKey string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, objectKey string) error
}

var allowedUploadMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

func GetStorageProvider() string {
	provider := strings.TrimSpace(strings.ToLower(os.Getenv("STORAGE_PROVIDER")))
	if provider == "" {
		return StorageProviderGCS
	}
	return provider
}

// NewObjectStore picks the store named by STORAGE_PROVIDER.
func NewObjectStore() ObjectStore {
	if GetStorageProvider() == StorageProviderLocal {
		dir := os.Getenv("LOCAL_STORAGE_DIR")
		if dir == "" {
			dir = "uploads"
		}
		return &LocalStore{Dir: dir}
	}
	return &GCSStore{Bucket: os.Getenv("GCS_BUCKET")}
}

// DecodeDataURL splits "data:<mime>;base64,<payload>" into bytes and the sniffed content type.
// A bare base64 payload is accepted too.
func DecodeDataURL(dataURL string) ([]byte, string, error) {
	payload := strings.TrimSpace(dataURL)
	declared := ""
	if strings.HasPrefix(payload, "data:") {
		comma := strings.Index(payload, ",")
		if comma < 0 {
			return nil, "", NewValidationMessage("data_url", "malformed data url")
		}
		meta := payload[len("data:"):comma]
		if !strings.HasSuffix(meta, ";base64") {
			return nil, "", NewValidationMessage("data_url", "data url must be base64 encoded")
		}
		declared = strings.TrimSuffix(meta, ";base64")
		payload = payload[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", NewValidationMessage("data_url", "invalid base64 payload")
	}
	if len(data) == 0 {
		return nil, "", NewValidationMessage("data_url", "empty file")
	}
	contentType := http.DetectContentType(data)
	if !allowedUploadMimeTypes[contentType] {
		return nil, "", NewValidationMessage("data_url", fmt.Sprintf("unsupported file type: %s", contentType))
	}
	if declared != "" && declared != contentType && !(declared == "image/jpg" && contentType == "image/jpeg") {
		return nil, "", NewValidationMessage("data_url", fmt.Sprintf("declared %s but got %s", declared, contentType))
	}
	return data, contentType, nil
}

// getGoogleClient prefers GCS_CREDENTIALS_JSON, falling back to ADC.
func getGoogleClient(ctx context.Context) (*storage.Client, error) {
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		return storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
	}
	return storage.NewClient(ctx)
}

// gcsPredefinedACL reads GCS_PREDEFINED_ACL (default publicRead).
// "none" leaves the object to the bucket policy, which uniform bucket-level access requires.
func gcsPredefinedACL() string {
	acl := strings.TrimSpace(os.Getenv("GCS_PREDEFINED_ACL"))
	switch {
	case acl == "":
		return "publicRead"
	case strings.EqualFold(acl, "none"):
		return ""
	}
	return acl
}

type GCSStore struct {
	Bucket string
}

func (s *GCSStore) Put(ctx context.Context, objectKey string, data []byte, contentType string) (string, error) {
	if s.Bucket == "" {
		return "", errors.New("GCS_BUCKET is required")
	}
	client, err := getGoogleClient(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	wc := client.Bucket(s.Bucket).Object(objectKey).NewWriter(ctx)
	wc.ContentType = contentType
	wc.PredefinedACL = gcsPredefinedACL()
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("failed to upload to Google Cloud Storage: %v", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %v", err)
	}
	return BuildObjectAccessURL(objectKey), nil
}

func (s *GCSStore) Delete(ctx context.Context, objectKey string) error {
	client, err := getGoogleClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	err = client.Bucket(s.Bucket).Object(objectKey).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

// LocalStore writes under Dir; used for local development without a bucket.
type LocalStore struct {
	Dir string
}

func (s *LocalStore) Put(_ context.Context, objectKey string, data []byte, _ string) (string, error) {
	if strings.Contains(objectKey, "..") {
		return "", errors.New("invalid object key")
	}
	target := filepath.Join(s.Dir, filepath.FromSlash(objectKey))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", err
	}
	return BuildObjectAccessURL(objectKey), nil
}

func (s *LocalStore) Delete(_ context.Context, objectKey string) error {
	err := os.Remove(filepath.Join(s.Dir, filepath.FromSlash(objectKey)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
