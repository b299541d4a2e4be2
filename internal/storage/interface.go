package storage

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader stores objects and returns where they landed.
// This interface allows for easy mocking in tests
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte, metadata map[string]string) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
}

// S3API is the part of the S3 client the uploader calls
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Ensure S3Uploader implements Uploader
var _ Uploader = (*S3Uploader)(nil)
