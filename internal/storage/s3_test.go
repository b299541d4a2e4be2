package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	bodies  [][]byte
	deletes []string
	err     error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.err
}

func TestGetContentType(t *testing.T) {
	tests := []struct {
		extension string
		expected  string
	}{
		{".json", "application/json"},
		{".JSON", "application/json"},
		{".csv", "text/csv"},
		{".gpx", "application/gpx+xml"},
		{".unknown", "application/octet-stream"},
		{"", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.extension, func(t *testing.T) {
			assert.Equal(t, tt.expected, getContentType(tt.extension))
		})
	}
}

func TestObjectKey(t *testing.T) {
	day := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	key := ObjectKey("owntracks", day, ".json")

	assert.True(t, strings.HasPrefix(key, "owntracks/2024/03/07/"), key)
	assert.True(t, strings.HasSuffix(key, ".json"), key)
	assert.NotEqual(t, key, ObjectKey("owntracks", day, ".json"))
}

func TestUpload(t *testing.T) {
	fake := &fakeS3{}
	u := NewS3UploaderWithClient(fake, "us-east-1", "exports", "https://cdn.example.com/")

	res, err := u.Upload(context.Background(), "owntracks/a.json", "", []byte(`[]`), map[string]string{"day": "2024-03-07"})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/owntracks/a.json", res.URL)
	assert.Equal(t, int64(2), res.Size)
	assert.Equal(t, "exports", res.Bucket)

	require.Len(t, fake.puts, 1)
	assert.Equal(t, "application/json", aws.ToString(fake.puts[0].ContentType))
	assert.Equal(t, "2024-03-07", fake.puts[0].Metadata["day"])
	assert.Contains(t, fake.puts[0].Metadata, "upload-timestamp")
	assert.Equal(t, []byte(`[]`), fake.bodies[0])
}

func TestUpload_DefaultBaseURL(t *testing.T) {
	u := NewS3UploaderWithClient(&fakeS3{}, "eu-west-1", "bucket", "")
	res, err := u.Upload(context.Background(), "k.json", "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.s3.eu-west-1.amazonaws.com/k.json", res.URL)
}

func TestUpload_Error(t *testing.T) {
	u := NewS3UploaderWithClient(&fakeS3{err: errors.New("denied")}, "us-east-1", "b", "")
	_, err := u.Upload(context.Background(), "k.json", "", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")

	assert.Error(t, u.Delete(context.Background(), "k.json"))
	assert.Error(t, u.CheckBucketAccess(context.Background()))
}

func TestDelete(t *testing.T) {
	fake := &fakeS3{}
	u := NewS3UploaderWithClient(fake, "us-east-1", "b", "")
	require.NoError(t, u.Delete(context.Background(), "k.json"))
	assert.Equal(t, []string{"k.json"}, fake.deletes)
}
