package transfer

import (
	"context"
	"fmt"
	"io"

	"github.com/iseelabs/isee/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient streams uploads into a single bucket. The underlying client is
// shared; a session only scopes one upload's lifecycle over it.
type MinIOClient struct {
	client *minio.Client
	cfg    *config.MinIOConfig
}

var _ Client = (*MinIOClient)(nil)

func NewMinIOClient(cfg *config.MinIOConfig) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("transfer: failed to initialize MinIO client: %w", err)
	}
	return &MinIOClient{client: client, cfg: cfg}, nil
}

func (c *MinIOClient) Open(ctx context.Context) (Session, error) {
	// Probe the endpoint up front so unreachable storage surfaces as a
	// connect failure, not a mid-stream one.
	exists, err := c.client.BucketExists(ctx, c.cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("%w: bucket check: %v", ErrConnect, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: bucket %s does not exist", ErrConnect, c.cfg.BucketName)
	}
	return &minioSession{client: c.client, bucket: c.cfg.BucketName}, nil
}

type minioSession struct {
	client *minio.Client
	bucket string
}

var _ Session = (*minioSession)(nil)

func (s *minioSession) Send(ctx context.Context, remotePath string, r io.Reader) error {
	// Size -1 streams the payload in parts without knowing its length.
	_, err := s.client.PutObject(ctx, s.bucket, remotePath, &ctxReader{ctx: ctx, r: r}, -1,
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrTransport, remotePath, err)
	}
	return nil
}

func (s *minioSession) Remove(ctx context.Context, remotePath string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, remotePath, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: remove %s: %v", ErrTransport, remotePath, err)
	}
	return nil
}

// Close is a no-op; the shared S3 client holds no per-upload resources.
func (s *minioSession) Close() error {
	return nil
}
