package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"sporcle-bot/internal/domain"
)

// ResultRepository is the slower store a CachedResults sits in front of.
type ResultRepository interface {
	Record(ctx context.Context, result domain.QuizResult) error
	Stats(ctx context.Context, url string) (domain.QuizStats, error)
}

// CachedResults caches per-quiz stats with a TTL so repeated !quiz_stats
// calls do not hit the database. Recording a result invalidates its quiz.
type CachedResults struct {
	inner ResultRepository
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedStats
	// gen counts the Records per url; a lookup started under an older
	// generation must not fill the cache.
	gen map[string]uint64
}

type cachedStats struct {
	stats     domain.QuizStats
	expiresAt time.Time
}

func NewCachedResults(inner ResultRepository, ttl time.Duration) *CachedResults {
	return &CachedResults{
		inner: inner,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedStats),
		gen:   make(map[string]uint64),
	}
}

func (c *CachedResults) Record(ctx context.Context, result domain.QuizResult) error {
	if err := c.inner.Record(ctx, result); err != nil {
		return err
	}
	c.mu.Lock()
	c.gen[result.URL]++
	delete(c.cache, result.URL)
	c.mu.Unlock()
	return nil
}

func (c *CachedResults) Stats(ctx context.Context, url string) (domain.QuizStats, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[url]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.stats, nil
	}
	gen := c.gen[url]
	c.mu.RUnlock()

	// lookups started after a Record never join an older flight
	key := url + "#" + strconv.FormatUint(gen, 10)
	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[url]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.stats, nil
		}
		c.mu.RUnlock()

		stats, err := c.inner.Stats(ctx, url)
		if err != nil {
			return domain.QuizStats{}, err
		}

		c.mu.Lock()
		if c.gen[url] == gen {
			c.cache[url] = cachedStats{
				stats:     stats,
				expiresAt: now.Add(c.ttlWithJitter()),
			}
		}
		c.mu.Unlock()
		return stats, nil
	})
	if err != nil {
		return domain.QuizStats{}, err
	}
	return result.(domain.QuizStats), nil
}

func (c *CachedResults) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
