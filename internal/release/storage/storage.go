// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type UploadAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, options ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Uploader uploads files to S3 buckets. Credentials are resolved via the SDK default chain.
type S3Uploader struct {
	api UploadAPI
}

type Option func(*s3.Options)

const defaultContentType = "application/octet-stream"

// WithEndpoint targets an S3 compatible endpoint using path-style addressing, e.g. for local object stores
func WithEndpoint(url string) Option {
	return func(o *s3.Options) {
		o.BaseEndpoint = aws.String(url)
		o.UsePathStyle = true
	}
}

func NewS3Uploader(ctx context.Context, region string, options ...Option) (*S3Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("could not load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		for _, option := range options {
			option(o)
		}
	})

	return NewS3UploaderFromAPI(manager.NewUploader(client)), nil
}

func NewS3UploaderFromAPI(api UploadAPI) *S3Uploader {
	return &S3Uploader{api: api}
}

func (u *S3Uploader) UploadFile(ctx context.Context, bucket string, key string, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open artifact: %w", err)
	}
	defer file.Close()

	slog.Debug("Uploading artifact", "path", path, "bucket", bucket, "key", key)

	output, err := u.api.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType(path)),
	})
	if err != nil {
		return fmt.Errorf("could not upload '%s' to 's3://%s/%s': %w", path, bucket, key, err)
	}

	slog.Info("Artifact uploaded", "key", key, "location", output.Location)

	return nil
}

func contentType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return defaultContentType
}
