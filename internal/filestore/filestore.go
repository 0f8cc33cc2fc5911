package filestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/templatestore/license-service/internal/config"
	"go.uber.org/zap"
)

// ErrFileUnavailable is returned when a template has no downloadable file.
var ErrFileUnavailable = errors.New("template file unavailable")

// Resolver maps a template slug to a URL the buyer can fetch the file from.
type Resolver interface {
	Resolve(ctx context.Context, slug string) (string, error)
}

const (
	ProviderDrive  = "drive"
	ProviderS3     = "s3"
	ProviderStatic = "static"
)

func New(ctx context.Context, cfg config.FilesConfig, logger *zap.Logger) (Resolver, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderDrive, "":
		return NewDriveResolver(cfg.Drive.Files, logger), nil
	case ProviderS3:
		return NewS3Resolver(ctx, cfg.S3, logger)
	case ProviderStatic:
		return NewStaticResolver(cfg.Static.BaseURL, logger)
	default:
		return nil, fmt.Errorf("unknown file provider %q", cfg.Provider)
	}
}
