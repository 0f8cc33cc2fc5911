package filestore

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/templatestore/license-service/internal/config"
	"go.uber.org/zap"
)

// S3Resolver hands out presigned GET URLs for <keyPrefix>/<slug>.zip.
type S3Resolver struct {
	presignClient *s3.PresignClient
	bucket        string
	keyPrefix     string
	ttl           time.Duration
	logger        *zap.Logger
}

func NewS3Resolver(ctx context.Context, cfg config.S3Config, logger *zap.Logger) (*S3Resolver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 file provider requires files.s3.bucket")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &S3Resolver{
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		keyPrefix:     strings.Trim(cfg.KeyPrefix, "/"),
		ttl:           ttl,
		logger:        logger.Named("S3Resolver"),
	}, nil
}

func (r *S3Resolver) objectKey(slug string) string {
	return path.Join(r.keyPrefix, slug+".zip")
}

func (r *S3Resolver) Resolve(ctx context.Context, slug string) (string, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return "", ErrFileUnavailable
	}

	key := r.objectKey(slug)
	resp, err := r.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(r.ttl))
	if err != nil {
		r.logger.Error("Failed to generate presigned URL", zap.String("object_key", key), zap.Error(err))
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return resp.URL, nil
}
