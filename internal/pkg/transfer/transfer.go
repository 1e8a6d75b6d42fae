// Package transfer moves one upload's byte stream to the configured remote
// storage endpoint. A Session is scoped to a single upload attempt: opened by
// the ingestion orchestrator right before streaming, closed on every exit
// path.
package transfer

import (
	"context"
	"errors"
	"io"
	"path"

	"github.com/iseelabs/isee/internal/config"
)

var (
	// ErrConnect wraps failures to reach or authenticate against the remote
	// endpoint. Fatal for the request; never retried automatically.
	ErrConnect = errors.New("transfer: connect failed")

	// ErrTransport wraps mid-stream failures. Partial data may have reached
	// the remote side; callers must not commit a record and should treat any
	// remote object as orphaned.
	ErrTransport = errors.New("transfer: transport failed")
)

// Client opens per-upload sessions against one remote storage backend.
type Client interface {
	// Open establishes a session. Errors wrap ErrConnect.
	Open(ctx context.Context) (Session, error)
}

// Session is a live connection to remote storage scoped to one upload.
type Session interface {
	// Send streams r to the remote path without buffering the payload and
	// returns only after the remote end acknowledges the final byte.
	// Errors wrap ErrTransport.
	Send(ctx context.Context, remotePath string, r io.Reader) error

	// Remove deletes a remote object. Used by the cleanup worker to collect
	// orphans; best-effort.
	Remove(ctx context.Context, remotePath string) error

	// Close releases the session. Idempotent, safe on every exit path.
	Close() error
}

// NewClient selects the backend from configuration.
func NewClient(cfg *config.TransferConfig) (Client, error) {
	switch cfg.Type {
	case "ftp":
		return NewFTPClient(cfg), nil
	case "minio":
		return NewMinIOClient(&cfg.MinIO)
	default:
		return nil, errors.New("transfer: invalid backend type " + cfg.Type)
	}
}

// RemotePath joins the configured root with a generated object name.
func RemotePath(root, fileName string) string {
	return path.Join(root, fileName)
}

// ctxReader aborts a streaming copy when the request context is cancelled,
// so a dropped inbound connection tears down the outbound transfer too.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	select {
	case <-c.ctx.Done():
		return 0, c.ctx.Err()
	default:
		return c.r.Read(p)
	}
}
