// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gosimple/slug"
)

// R2Config locates the Cloudflare R2 bucket verified webhook payloads are
// archived to.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
}

// Enabled reports whether an archive bucket is configured.
func (c R2Config) Enabled() bool {
	return c.Bucket != "" && c.AccountID != ""
}

// objectPutter is the slice of the S3 API the archive uses.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Archive stores raw webhook bodies in R2.
type R2Archive struct {
	client objectPutter
	bucket string
}

func NewR2Archive(ctx context.Context, cfg R2Config) (*R2Archive, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return &R2Archive{client: client, bucket: cfg.Bucket}, nil
}

// ArchiveKey is the object key for a provider event received at at, e.g.
// "webhooks/stripe/2026/03/14/checkout-session-completed-evt_123.json".
func ArchiveKey(provider, kind, eventID string, at time.Time) string {
	return fmt.Sprintf("webhooks/%s/%s/%s-%s.json",
		slug.Make(provider), at.UTC().Format("2006/01/02"), slug.Make(kind), eventID)
}

// Archive uploads payload under ArchiveKey.
func (a *R2Archive) Archive(ctx context.Context, provider, kind, eventID string, at time.Time, payload []byte) (string, error) {
	key := ArchiveKey(provider, kind, eventID, at)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return key, nil
}
