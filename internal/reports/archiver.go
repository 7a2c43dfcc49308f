// Package reports archives analysis results to S3-compatible object storage.
package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config holds the object storage settings
type Config struct {
	Bucket          string
	Region          string
	Prefix          string
	Endpoint        string // Custom endpoint for S3-compatible stores; enables path-style addressing
	AccessKeyID     string // Static credentials; the default AWS chain is used when empty
	SecretAccessKey string
}

// Uploader is the subset of manager.Uploader the archiver needs
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// NewS3Uploader builds a multipart-capable uploader from cfg
func NewS3Uploader(ctx context.Context, cfg Config) (*manager.Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return manager.NewUploader(client), nil
}

// Archiver uploads analyses as JSON documents
type Archiver struct {
	uploader Uploader
	bucket   string
	prefix   string
	now      func() time.Time
	log      zerolog.Logger
}

// NewArchiver creates an archiver writing to bucket under prefix
func NewArchiver(uploader Uploader, bucket, prefix string, log zerolog.Logger) *Archiver {
	return &Archiver{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		now:      time.Now,
		log:      log.With().Str("component", "report_archiver").Logger(),
	}
}

// Archive validates and uploads an analysis, returning the object key
func (a *Archiver) Archive(ctx context.Context, analysis domain.Analysis) (string, error) {
	if err := analysis.Validate(); err != nil {
		return "", fmt.Errorf("refusing to archive invalid analysis: %w", err)
	}

	body, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal analysis: %w", err)
	}

	key := ObjectKey(a.prefix, analysis, a.now(), uuid.NewString())
	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	a.log.Info().
		Str("bucket", a.bucket).
		Str("key", key).
		Str("kind", string(analysis.Kind)).
		Int("size_bytes", len(body)).
		Msg("Analysis archived")

	return key, nil
}

// ObjectKey lays out archived analyses as <prefix>/<lottery>/<kind>/<timestamp>-<id>.json
func ObjectKey(prefix string, analysis domain.Analysis, at time.Time, id string) string {
	name := fmt.Sprintf("%s-%s.json", at.UTC().Format("20060102T150405Z"), id)
	return path.Join(prefix, analysis.LotteryID, string(analysis.Kind), name)
}
