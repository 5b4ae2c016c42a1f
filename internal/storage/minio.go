package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("pureohana-storage")

// ErrObjectExists is returned by a create-only Put when the target key is
// already taken.
var ErrObjectExists = errors.New("object already exists")

// MinioClient wraps MinIO operations with tracing. It implements
// ingest.ObjectStore.
type MinioClient struct {
	client        *minio.Client
	publicBaseURL string
}

// NewMinioClient initializes a new MinIO client. publicBaseURL is the
// externally reachable prefix public URLs are built from.
func NewMinioClient(endpoint, accessKey, secretKey, publicBaseURL string, useSSL bool) (*MinioClient, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	if publicBaseURL == "" {
		publicBaseURL = client.EndpointURL().String()
	}

	return &MinioClient{
		client:        client,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// EnsureBucket creates bucket if it does not exist yet
func (mc *MinioClient) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := mc.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		log.Info().Str("bucket", bucket).Msg("creating bucket")
		if err := mc.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// Put uploads a payload and returns its public URL. With overwrite false
// the write is create-only: an existing object at objectPath fails with
// ErrObjectExists instead of being replaced. Section-slot flows that
// replace a photo in place pass overwrite true explicitly.
func (mc *MinioClient) Put(ctx context.Context, bucket, objectPath string, data []byte, contentType string, overwrite bool) (string, error) {
	ctx, span := tracer.Start(ctx, "minio.put_object",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("object_path", objectPath),
			attribute.Int("size_bytes", len(data)),
			attribute.Bool("overwrite", overwrite),
		),
	)
	defer span.End()

	if !overwrite {
		if err := mc.ensureAbsent(ctx, bucket, objectPath); err != nil {
			span.RecordError(err)
			return "", err
		}
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	reader := bytes.NewReader(data)
	_, err := mc.client.PutObject(ctx, bucket, objectPath, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	span.SetAttributes(attribute.Bool("upload_success", true))
	return mc.PublicURL(bucket, objectPath), nil
}

// PublicURL returns the stable public address of an object
func (mc *MinioClient) PublicURL(bucket, objectPath string) string {
	return fmt.Sprintf("%s/%s/%s", mc.publicBaseURL, bucket, objectPath)
}

// ensureAbsent fails with ErrObjectExists when objectPath is taken. A
// stat error other than "not found" is surfaced as-is.
func (mc *MinioClient) ensureAbsent(ctx context.Context, bucket, objectPath string) error {
	_, err := mc.client.StatObject(ctx, bucket, objectPath, minio.StatObjectOptions{})
	if err == nil {
		return fmt.Errorf("%w: %s/%s", ErrObjectExists, bucket, objectPath)
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
		return nil
	}
	return fmt.Errorf("failed to stat object: %w", err)
}
