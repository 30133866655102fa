package search

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"atmfinder/internal/db"
	"atmfinder/internal/logging"
	"atmfinder/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var searchCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "atm_search_cache_total",
	Help: "Page cache lookups by result (hit, miss, error)",
}, []string{"result"})

// CachedSearcher answers repeated queries from the SQLite page cache and
// delegates everything else to the wrapped Searcher.
type CachedSearcher struct {
	next   Searcher
	conn   *sql.DB
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewCachedSearcher wraps next with a cache whose entries live for ttl.
func NewCachedSearcher(next Searcher, conn *sql.DB, ttl time.Duration) *CachedSearcher {
	return &CachedSearcher{
		next:   next,
		conn:   conn,
		ttl:    ttl,
		now:    time.Now,
		logger: logging.NewLogger("cache"),
	}
}

// CacheKey identifies a query in the page cache.
func CacheKey(q model.SearchQuery) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d|%d",
		q.Origin, q.Unit, q.PostalCode, q.Country, q.PageLength, q.PageOffset)
}

// SearchAtms serves the page from cache when fresh. Cache errors are logged
// and the query goes to the wrapped searcher.
func (c *CachedSearcher) SearchAtms(ctx context.Context, q model.SearchQuery) (model.Page, error) {
	key := CacheKey(q)

	page, ok, err := db.GetCachedPage(c.conn, key, c.ttl, c.now())
	switch {
	case err != nil:
		searchCacheTotal.WithLabelValues("error").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	case ok:
		searchCacheTotal.WithLabelValues("hit").Inc()
		c.logger.Debug().Str("key", key).Int("atms", len(page.Atms)).Msg("cache hit")
		return page, nil
	default:
		searchCacheTotal.WithLabelValues("miss").Inc()
	}

	page, err = c.next.SearchAtms(ctx, q)
	if err != nil {
		return model.Page{}, err
	}

	if err := db.PutCachedPage(c.conn, key, page, c.now()); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return page, nil
}

// Prune drops expired entries. Called once at startup.
func (c *CachedSearcher) Prune() (int64, error) {
	return db.PruneCachedPages(c.conn, c.ttl, c.now())
}
