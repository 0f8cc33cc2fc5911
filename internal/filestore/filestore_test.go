package filestore

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templatestore/license-service/internal/config"
	"go.uber.org/zap"
)

func TestDriveResolver(t *testing.T) {
	r := NewDriveResolver(map[string]string{"Landing-Kit": " 1AbC "}, zap.NewNop())

	got, err := r.Resolve(context.Background(), "landing-kit")
	require.NoError(t, err)
	assert.Equal(t, "https://drive.google.com/uc?export=download&id=1AbC", got)

	_, err = r.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrFileUnavailable)
}

func TestStaticResolver(t *testing.T) {
	r, err := NewStaticResolver("https://files.example.com/templates/", zap.NewNop())
	require.NoError(t, err)

	got, err := r.Resolve(context.Background(), "portfolio")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/templates/portfolio.zip", got)

	_, err = r.Resolve(context.Background(), " ")
	assert.ErrorIs(t, err, ErrFileUnavailable)

	_, err = NewStaticResolver("", zap.NewNop())
	assert.Error(t, err)
}

func TestS3Resolver_Presigns(t *testing.T) {
	r, err := NewS3Resolver(context.Background(), config.S3Config{
		Endpoint:     "http://localhost:9000",
		Region:       "us-east-1",
		Bucket:       "templates",
		AccessKey:    "minio",
		SecretKey:    "minio-secret",
		KeyPrefix:    "/releases/",
		UsePathStyle: true,
		PresignTTL:   10 * time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)

	raw, err := r.Resolve(context.Background(), "portfolio")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/templates/releases/portfolio.zip", u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestNew_Providers(t *testing.T) {
	r, err := New(context.Background(), config.FilesConfig{Provider: "drive"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &DriveResolver{}, r)

	_, err = New(context.Background(), config.FilesConfig{Provider: "ftp"}, zap.NewNop())
	assert.Error(t, err)
}
