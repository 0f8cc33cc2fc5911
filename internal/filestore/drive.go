package filestore

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const driveDownloadURL = "https://drive.google.com/uc?export=download&id="

// DriveResolver serves files shared from Google Drive, keyed by slug.
type DriveResolver struct {
	files  map[string]string
	logger *zap.Logger
}

func NewDriveResolver(files map[string]string, logger *zap.Logger) *DriveResolver {
	normalized := make(map[string]string, len(files))
	for slug, id := range files {
		normalized[strings.ToLower(slug)] = strings.TrimSpace(id)
	}
	return &DriveResolver{
		files:  normalized,
		logger: logger.Named("DriveResolver"),
	}
}

func (r *DriveResolver) Resolve(_ context.Context, slug string) (string, error) {
	fileID := r.files[strings.ToLower(slug)]
	if fileID == "" {
		r.logger.Warn("No drive file configured for template", zap.String("slug", slug))
		return "", ErrFileUnavailable
	}
	return driveDownloadURL + url.QueryEscape(fileID), nil
}
