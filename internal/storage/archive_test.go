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
	"github.com/mediayear/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	data, _ := io.ReadAll(params.Body)
	f.body = string(data)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Archiver_Archive(t *testing.T) {
	client := &fakeS3{}
	archiver := NewS3Archiver(client, "media-originals", "originals")
	archiver.now = func() time.Time { return time.Date(2024, 7, 14, 10, 0, 0, 0, time.UTC) }

	info := &models.FileInfo{
		Name:        "beach.jpg",
		ContentType: "image/jpeg",
		Size:        4,
		UploadedAt:  time.Date(2024, 7, 14, 10, 0, 0, 0, time.UTC),
	}

	location, err := archiver.Archive(context.Background(), info, strings.NewReader("jpeg"))
	require.NoError(t, err)

	key := aws.ToString(client.input.Key)
	assert.True(t, strings.HasPrefix(key, "originals/2024/07/"), key)
	assert.True(t, strings.HasSuffix(key, "-beach.jpg"), key)
	assert.Equal(t, "s3://media-originals/"+key, location)
	assert.Equal(t, "media-originals", aws.ToString(client.input.Bucket))
	assert.Equal(t, "image/jpeg", aws.ToString(client.input.ContentType))
	assert.Equal(t, int64(4), aws.ToInt64(client.input.ContentLength))
	assert.Equal(t, "beach.jpg", client.input.Metadata["original-filename"])
	assert.Equal(t, "jpeg", client.body)
}

func TestS3Archiver_ArchiveError(t *testing.T) {
	client := &fakeS3{err: errors.New("access denied")}
	archiver := NewS3Archiver(client, "bucket", "")

	_, err := archiver.Archive(context.Background(), &models.FileInfo{Name: "x.png"}, strings.NewReader(""))
	assert.Error(t, err)
	assert.Equal(t, "application/octet-stream", aws.ToString(client.input.ContentType))
	assert.Nil(t, client.input.ContentLength)
}

func TestNopArchiver(t *testing.T) {
	location, err := NopArchiver{}.Archive(context.Background(), &models.FileInfo{}, strings.NewReader("x"))
	assert.NoError(t, err)
	assert.Empty(t, location)
}

func TestNewS3Client(t *testing.T) {
	client := NewS3Client("eu-west-1", "http://localhost:9000")
	opts := client.Options()
	assert.Equal(t, "eu-west-1", opts.Region)
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "http://localhost:9000", aws.ToString(opts.BaseEndpoint))
}
