package branding

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetConfig(ctx context.Context, tenantID uuid.UUID) (*Config, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Config), args.Error(1)
}

func (m *MockRepository) UpsertConfig(ctx context.Context, config *Config) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

type MockAssetClient struct {
	mock.Mock
}

func (m *MockAssetClient) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	args := m.Called(ctx, key, body, contentType)
	return args.Error(0)
}

func (m *MockAssetClient) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockAssetClient) GetPresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	args := m.Called(ctx, key, expiration)
	return args.String(0), args.Error(1)
}

func (m *MockAssetClient) PublicURL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func TestUploadLogoRecordsKeyAndURL(t *testing.T) {
	repo := new(MockRepository)
	assets := new(MockAssetClient)
	service := NewService(repo, assets, zap.NewNop())
	tenantID := uuid.New()

	repo.On("GetConfig", mock.Anything, tenantID).Return(nil, nil)
	var saved *Config
	repo.On("UpsertConfig", mock.Anything, mock.AnythingOfType("*branding.Config")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*Config) }).
		Return(nil)
	assets.On("Upload", mock.Anything, mock.AnythingOfType("string"), mock.Anything, "image/png").Return(nil)
	assets.On("PublicURL", mock.AnythingOfType("string")).Return("https://cdn.example.com/logo.png")

	config, err := service.UploadLogo(context.Background(), tenantID, "logo", "logo.png", strings.NewReader("png-bytes"))

	assert.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/logo.png", config.LogoURL)
	assert.True(t, strings.HasPrefix(config.LogoKey, "branding/"+tenantID.String()+"/logo-"))
	assert.Equal(t, config.LogoKey, saved.LogoKey)
}

func TestAssetDownloadURLSignsStoredKey(t *testing.T) {
	repo := new(MockRepository)
	assets := new(MockAssetClient)
	service := NewService(repo, assets, zap.NewNop())
	tenantID := uuid.New()

	repo.On("GetConfig", mock.Anything, tenantID).Return(&Config{
		TenantID: tenantID,
		LogoKey:  "branding/" + tenantID.String() + "/logo-1700000000.png",
	}, nil)
	assets.On("GetPresignedURL", mock.Anything,
		"branding/"+tenantID.String()+"/logo-1700000000.png", assetURLTTL).
		Return("https://bucket.s3.amazonaws.com/signed", nil)

	url, err := service.AssetDownloadURL(context.Background(), tenantID, "logo")

	assert.NoError(t, err)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/signed", url)
	assets.AssertNumberOfCalls(t, "GetPresignedURL", 1)
}

func TestAssetDownloadURLMissingAsset(t *testing.T) {
	repo := new(MockRepository)
	assets := new(MockAssetClient)
	service := NewService(repo, assets, zap.NewNop())
	tenantID := uuid.New()

	repo.On("GetConfig", mock.Anything, tenantID).Return(&Config{TenantID: tenantID}, nil)

	_, err := service.AssetDownloadURL(context.Background(), tenantID, "favicon")

	assert.ErrorIs(t, err, ErrAssetNotFound)
	assets.AssertNotCalled(t, "GetPresignedURL", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssetDownloadURLUnknownKind(t *testing.T) {
	repo := new(MockRepository)
	assets := new(MockAssetClient)
	service := NewService(repo, assets, zap.NewNop())

	_, err := service.AssetDownloadURL(context.Background(), uuid.New(), "banner")

	assert.ErrorIs(t, err, ErrUnknownAssetKind)
}
