package filestore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// StaticResolver serves files from a plain HTTP origin as <base>/<slug>.zip.
type StaticResolver struct {
	base   *url.URL
	logger *zap.Logger
}

func NewStaticResolver(baseURL string, logger *zap.Logger) (*StaticResolver, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("static file provider requires files.static.baseURL")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid static base url %q", baseURL)
	}
	return &StaticResolver{base: u, logger: logger.Named("StaticResolver")}, nil
}

func (r *StaticResolver) Resolve(_ context.Context, slug string) (string, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return "", ErrFileUnavailable
	}
	return r.base.JoinPath(slug + ".zip").String(), nil
}
