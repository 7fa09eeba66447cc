package gitprovider

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"github.com/joestump/refselect/internal/gitref"
)

// RefCache stores reference listings per lister and repository URL.
type RefCache interface {
	// GetRefListing returns the cached listing if it is younger than maxAge.
	GetRefListing(lister, url string, maxAge time.Duration) ([]gitref.NamedReference, bool, error)
	PutRefListing(lister, url string, refs []gitref.NamedReference) error
}

// CachingLister serves listings from a RefCache while they are fresh and
// falls back to the wrapped lister otherwise. Cache failures are logged and
// never fail a listing.
//
// Listings fetched with credentials are only served to callers presenting
// the same credentials.
type CachingLister struct {
	next   RefLister
	cache  RefCache
	ttl    time.Duration
	logger *zap.Logger
	secret []byte // keys the credential fingerprint; per process
}

// NewCachingLister wraps next with a cache of the given TTL.
func NewCachingLister(next RefLister, cache RefCache, ttl time.Duration, logger *zap.Logger) *CachingLister {
	if logger == nil {
		logger = zap.NewNop()
	}
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)
	return &CachingLister{next: next, cache: cache, ttl: ttl, logger: logger, secret: secret}
}

func (c *CachingLister) Name() string { return c.next.Name() }

func (c *CachingLister) ListRefs(ctx context.Context, repo RepoRef) ([]gitref.NamedReference, error) {
	key := c.cacheKey(repo)

	refs, ok, err := c.cache.GetRefListing(c.next.Name(), key, c.ttl)
	if err != nil {
		c.logger.Warn("ref cache read failed", zap.String("lister", c.next.Name()), zap.String("url", key), zap.Error(err))
	} else if ok {
		c.logger.Debug("ref cache hit", zap.String("lister", c.next.Name()), zap.String("url", key), zap.Int("refs", len(refs)))
		return refs, nil
	}

	refs, err = c.next.ListRefs(ctx, repo)
	if err != nil {
		return nil, err
	}

	if err := c.cache.PutRefListing(c.next.Name(), key, refs); err != nil {
		c.logger.Warn("ref cache write failed", zap.String("lister", c.next.Name()), zap.String("url", key), zap.Error(err))
	}
	return refs, nil
}

// cacheKey is the credential-free URL, suffixed with an HMAC of the
// username and password when either is set.
func (c *CachingLister) cacheKey(repo RepoRef) string {
	key := repo.RedactedURL()
	if repo.Username == "" && repo.Password == "" {
		return key
	}
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(repo.Username))
	mac.Write([]byte{0})
	mac.Write([]byte(repo.Password))
	return key + "#" + hex.EncodeToString(mac.Sum(nil)[:16])
}
