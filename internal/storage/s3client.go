package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Pixelkingsa/consultant-connect/internal/config"
)

// S3Uploader puts objects into the image bucket.
type S3Uploader struct {
	Client        *s3.Client
	Bucket        string
	PublicBaseURL string
	Region        string
}

// NewS3Uploader returns a disabled uploader when no bucket is configured.
func NewS3Uploader(ctx context.Context, cfg config.StorageConfig) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return &S3Uploader{}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS default config: %w", err)
	}
	return &S3Uploader{
		Client:        s3.NewFromConfig(awsCfg),
		Bucket:        cfg.Bucket,
		PublicBaseURL: cfg.PublicBaseURL,
		Region:        cfg.Region,
	}, nil
}

func (u *S3Uploader) Enabled() bool { return u != nil && u.Client != nil && u.Bucket != "" }

// Put uploads body under key and returns its public URL.
func (u *S3Uploader) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if !u.Enabled() {
		return "", fmt.Errorf("s3 uploader not configured")
	}
	_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}
	return u.PublicURL(key), nil
}

// PublicURL prefers the CDN base and falls back to the virtual-hosted bucket URL.
func (u *S3Uploader) PublicURL(key string) string {
	if u.PublicBaseURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(u.PublicBaseURL, "/"), key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.Bucket, u.Region, key)
}
