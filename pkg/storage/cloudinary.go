package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

// CloudinaryStore uploads certificate files to Cloudinary. The returned
// reference is the secure delivery URL, so no extra signing is needed.
type CloudinaryStore struct {
	client *cloudinary.Cloudinary
	folder string
	logger *zap.Logger
}

// CloudinaryConfig contains the credentials required to talk to Cloudinary.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// NewCloudinaryStore constructs the store from credentials.
func NewCloudinaryStore(cfg CloudinaryConfig, logger *zap.Logger) (*CloudinaryStore, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("initialize cloudinary: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloudinaryStore{client: cld, folder: strings.Trim(cfg.Folder, "/"), logger: logger}, nil
}

// Save uploads the file and returns its secure URL.
func (s *CloudinaryStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	result, err := s.client.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     publicID(filename),
		ResourceType: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("upload certificate: %w", err)
	}
	s.logger.Info("certificate uploaded", zap.String("public_id", result.PublicID))
	return result.SecureURL, nil
}

// Delete removes an uploaded asset by its reference.
func (s *CloudinaryStore) Delete(ctx context.Context, ref string) error {
	id := publicID(filepath.Base(ref))
	if s.folder != "" {
		id = s.folder + "/" + id
	}
	if _, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: id}); err != nil {
		return fmt.Errorf("destroy certificate: %w", err)
	}
	return nil
}

func publicID(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = "certificate"
	}
	return base
}
