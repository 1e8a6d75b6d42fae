package transfer

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/iseelabs/isee/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemotePath(t *testing.T) {
	assert.Equal(t, "videos/123_alice_trip.mp4", RemotePath("videos", "123_alice_trip.mp4"))
	assert.Equal(t, "123_alice_trip.mp4", RemotePath("", "123_alice_trip.mp4"))
	assert.Equal(t, "a/b/f.mp4", RemotePath("a/b/", "f.mp4"))
}

func TestNewClientSelectsBackend(t *testing.T) {
	c, err := NewClient(&config.TransferConfig{Type: "ftp"})
	require.NoError(t, err)
	assert.IsType(t, &FTPClient{}, c)

	_, err = NewClient(&config.TransferConfig{Type: "scp"})
	assert.Error(t, err)
}

func TestCtxReaderStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &ctxReader{ctx: ctx, r: strings.NewReader("0123456789")}

	buf := make([]byte, 4)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	cancel()
	_, err = r.Read(buf)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCtxReaderDrainsWithoutCancel(t *testing.T) {
	r := &ctxReader{ctx: context.Background(), r: strings.NewReader("payload")}
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}
