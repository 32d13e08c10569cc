package branding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"clearstack/admin-console/admin-console-backend/pkg/storage"
)

var (
	ErrUnknownAssetKind = errors.New("unknown asset kind")
	ErrAssetNotFound    = errors.New("asset not uploaded")
)

// assetURLTTL bounds how long a signed download link stays usable
const assetURLTTL = 15 * time.Minute

var allowedImageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
}

// Service provides white-label branding logic
type Service struct {
	repo   Repository
	assets storage.AssetClient
	logger *zap.Logger
}

func NewService(repo Repository, assets storage.AssetClient, logger *zap.Logger) *Service {
	return &Service{repo: repo, assets: assets, logger: logger}
}

// GetConfig returns the tenant's branding, falling back to platform defaults
func (s *Service) GetConfig(ctx context.Context, tenantID uuid.UUID) (*Config, error) {
	config, err := s.repo.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get branding config: %w", err)
	}
	if config == nil {
		config = &Config{
			TenantID:       tenantID,
			PrimaryColor:   "#1A73E8",
			SecondaryColor: "#F5F5F5",
		}
	}
	return config, nil
}

// UpdateConfig applies branding form edits
func (s *Service) UpdateConfig(ctx context.Context, tenantID uuid.UUID, req UpdateRequest) (*Config, error) {
	config, err := s.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if req.PrimaryColor != nil {
		config.PrimaryColor = *req.PrimaryColor
	}
	if req.SecondaryColor != nil {
		config.SecondaryColor = *req.SecondaryColor
	}
	if req.CustomDomain != nil {
		config.CustomDomain = strings.ToLower(strings.TrimSpace(*req.CustomDomain))
	}
	if req.EmailFromName != nil {
		config.EmailFromName = *req.EmailFromName
	}

	if err := s.repo.UpsertConfig(ctx, config); err != nil {
		return nil, fmt.Errorf("failed to save branding config: %w", err)
	}
	return config, nil
}

// UploadLogo stores a logo or favicon asset and records its public URL
func (s *Service) UploadLogo(ctx context.Context, tenantID uuid.UUID, kind, filename string, body io.Reader) (*Config, error) {
	if kind != "logo" && kind != "favicon" {
		return nil, fmt.Errorf("%w %q", ErrUnknownAssetKind, kind)
	}

	ext := strings.ToLower(path.Ext(filename))
	contentType, ok := allowedImageTypes[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported image type %q", ext)
	}

	key := fmt.Sprintf("branding/%s/%s-%d%s", tenantID, kind, time.Now().Unix(), ext)
	if err := s.assets.Upload(ctx, key, body, contentType); err != nil {
		return nil, fmt.Errorf("failed to upload asset: %w", err)
	}

	config, err := s.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	url := s.assets.PublicURL(key)
	if kind == "logo" {
		config.LogoURL = url
		config.LogoKey = key
	} else {
		config.FaviconURL = url
		config.FaviconKey = key
	}

	if err := s.repo.UpsertConfig(ctx, config); err != nil {
		return nil, fmt.Errorf("failed to save branding config: %w", err)
	}

	s.logger.Info("branding asset uploaded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("kind", kind),
		zap.String("key", key))
	return config, nil
}

// AssetDownloadURL returns a short-lived signed URL for a stored asset,
// so assets can be served from a private bucket
func (s *Service) AssetDownloadURL(ctx context.Context, tenantID uuid.UUID, kind string) (string, error) {
	if kind != "logo" && kind != "favicon" {
		return "", fmt.Errorf("%w %q", ErrUnknownAssetKind, kind)
	}

	config, err := s.GetConfig(ctx, tenantID)
	if err != nil {
		return "", err
	}

	key := config.LogoKey
	if kind == "favicon" {
		key = config.FaviconKey
	}
	if key == "" {
		return "", ErrAssetNotFound
	}

	url, err := s.assets.GetPresignedURL(ctx, key, assetURLTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign asset url: %w", err)
	}
	return url, nil
}
