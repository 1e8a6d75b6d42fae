package transfer

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/iseelabs/isee/internal/config"
	"github.com/iseelabs/isee/internal/pkg/logger"
	"github.com/jlaffaye/ftp"
	"go.uber.org/zap"
)

// FTPClient dials a fresh control connection per upload, mirroring the
// one-session-per-request ownership model.
type FTPClient struct {
	cfg *config.TransferConfig
}

var _ Client = (*FTPClient)(nil)

func NewFTPClient(cfg *config.TransferConfig) *FTPClient {
	return &FTPClient{cfg: cfg}
}

func (c *FTPClient) Open(ctx context.Context) (Session, error) {
	addr := fmt.Sprintf("%s:%d", c.cfg.FTP.Host, c.cfg.FTP.Port)

	opts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if c.cfg.Timeout > 0 {
		opts = append(opts, ftp.DialWithTimeout(c.cfg.Timeout))
	}

	conn, err := ftp.Dial(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrConnect, addr, err)
	}

	if err := conn.Login(c.cfg.FTP.User, c.cfg.FTP.Password); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("%w: login rejected: %v", ErrConnect, err)
	}

	logger.Debug("FTP session opened", zap.String("addr", addr))
	return &ftpSession{conn: conn, timeout: c.cfg.Timeout}, nil
}

type ftpSession struct {
	conn    *ftp.ServerConn
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

var _ Session = (*ftpSession)(nil)

func (s *ftpSession) Send(ctx context.Context, remotePath string, r io.Reader) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// STOR returns only after the server acknowledges the final byte.
	if err := s.conn.Stor(remotePath, &ctxReader{ctx: ctx, r: r}); err != nil {
		return fmt.Errorf("%w: stor %s: %v", ErrTransport, remotePath, err)
	}
	return nil
}

func (s *ftpSession) Remove(ctx context.Context, remotePath string) error {
	if err := s.conn.Delete(remotePath); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrTransport, remotePath, err)
	}
	return nil
}

func (s *ftpSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.conn.Quit(); err != nil {
		// A broken control connection on the way out is not actionable.
		logger.Warn("FTP session quit failed", zap.Error(err))
	}
	return nil
}
