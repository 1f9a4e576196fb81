package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/mediayear/backend/internal/models"
)

// Archiver keeps a copy of an original upload after its temporary file is gone.
type Archiver interface {
	// Archive stores the content of r and returns its location.
	Archive(ctx context.Context, info *models.FileInfo, r io.Reader) (string, error)
}

// NopArchiver discards archive requests.
type NopArchiver struct{}

// Archive does nothing and returns an empty location.
func (NopArchiver) Archive(ctx context.Context, info *models.FileInfo, r io.Reader) (string, error) {
	return "", nil
}

// PutObjectAPI is the part of the S3 client used by S3Archiver.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver stores originals in an S3 bucket.
type S3Archiver struct {
	client PutObjectAPI
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Archiver creates an archiver writing under prefix in bucket.
func NewS3Archiver(client PutObjectAPI, bucket, prefix string) *S3Archiver {
	return &S3Archiver{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
	}
}

// Key returns the object key for an upload: prefix/YYYY/MM/<uuid>-<name>.
func (a *S3Archiver) Key(info *models.FileInfo) string {
	ts := a.now().UTC()
	return path.Join(a.prefix, ts.Format("2006"), ts.Format("01"), uuid.New().String()+"-"+info.Name)
}

// Archive uploads r to S3 and returns the s3:// URL of the object.
func (a *S3Archiver) Archive(ctx context.Context, info *models.FileInfo, r io.Reader) (string, error) {
	key := a.Key(info)

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"original-filename": info.Name,
			"upload-time":       info.UploadedAt.UTC().Format(time.RFC3339),
		},
	}
	if info.Size > 0 {
		input.ContentLength = aws.Int64(info.Size)
	}

	if _, err := a.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}

// NewS3Client creates an S3 client for region. Credentials come from the standard
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN variables. A non-empty
// endpoint selects an S3-compatible service with path-style addressing.
func NewS3Client(region, endpoint string) *s3.Client {
	opts := s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(envCredentials{}),
	}
	if endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

type envCredentials struct{}

func (envCredentials) Retrieve(ctx context.Context) (aws.Credentials, error) {
	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}, nil
}
