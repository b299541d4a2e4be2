package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/quillblog/backend/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// S3Uploader writes export files to an S3 bucket
type S3Uploader struct {
	client  S3API
	bucket  string
	region  string
	baseURL string
}

// UploadResult contains the result of an S3 upload
type UploadResult struct {
	Key    string `json:"key"`
	URL    string `json:"url"`
	Bucket string `json:"bucket"`
	Region string `json:"region"`
	Size   int64  `json:"size"`
}

// NewS3Uploader creates a new S3 uploader from the default AWS credential chain
func NewS3Uploader(ctx context.Context, region, bucket, baseURL string) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewS3UploaderWithClient(s3.NewFromConfig(cfg), region, bucket, baseURL), nil
}

// NewS3UploaderWithClient wraps an existing client
func NewS3UploaderWithClient(client S3API, region, bucket, baseURL string) *S3Uploader {
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3Uploader{
		client:  client,
		bucket:  bucket,
		region:  region,
		baseURL: baseURL,
	}
}

// ObjectKey builds "<prefix>/<yyyy>/<mm>/<dd>/<uuid><ext>" for the given day
func ObjectKey(prefix string, day time.Time, ext string) string {
	return path.Join(prefix,
		fmt.Sprintf("%d/%02d/%02d", day.Year(), day.Month(), day.Day()),
		uuid.New().String()+ext)
}

// Upload puts data under key
func (u *S3Uploader) Upload(ctx context.Context, key, contentType string, data []byte, metadata map[string]string) (*UploadResult, error) {
	if contentType == "" {
		contentType = getContentType(path.Ext(key))
	}

	meta := map[string]string{
		"upload-timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range metadata {
		meta[k] = v
	}

	ctx, span := telemetry.TraceExternalCall(ctx, "s3", "put_object",
		attribute.String("s3.bucket", u.bucket),
		attribute.String("s3.key", key),
	)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("no-cache"),
		Metadata:     meta,
	})
	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		Key:    key,
		URL:    fmt.Sprintf("%s/%s", strings.TrimSuffix(u.baseURL, "/"), key),
		Bucket: u.bucket,
		Region: u.region,
		Size:   int64(len(data)),
	}, nil
}

// Delete deletes a file from S3
func (u *S3Uploader) Delete(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}

// CheckBucketAccess verifies that we can access the S3 bucket
func (u *S3Uploader) CheckBucketAccess(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", u.bucket, err)
	}

	return nil
}

// getContentType returns the appropriate MIME type for export extensions
func getContentType(extension string) string {
	switch strings.ToLower(extension) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".gpx":
		return "application/gpx+xml"
	default:
		return "application/octet-stream"
	}
}
