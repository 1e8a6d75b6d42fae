package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = errors.New("cache miss: key does not exist")

// Cache is the read-through cache used in front of the record store.
type Cache interface {
	// Set stores a JSON-marshalable value under key with an expiration.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error

	// Get unmarshals the cached value into target, a pointer.
	// Returns ErrCacheMiss when key is absent.
	Get(ctx context.Context, key string, target any) error

	Del(ctx context.Context, keys ...string) error

	Exists(ctx context.Context, key string) (bool, error)
}

// VideoMetadataTTL bounds staleness of cached video records.
const VideoMetadataTTL = 10 * time.Minute

func VideoMetadataKey(videoID uint64) string {
	return fmt.Sprintf("video:metadata:%d", videoID)
}

// RevokedTokenKey names the denylist entry for a logged-out token. The
// token is hashed so raw credentials never land in the cache keyspace.
func RevokedTokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth:revoked:" + hex.EncodeToString(sum[:])
}
