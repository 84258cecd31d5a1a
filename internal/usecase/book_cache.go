package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/booklend/internal/domain"
)

const bookSummaryKeyPrefix = "book:summary:"

// bookSummaryCache keeps title/author pairs for history enrichment. It never
// holds availability. Cache failures are logged and treated as misses.
type bookSummaryCache struct {
	cache  Cache
	ttl    time.Duration
	logger zerolog.Logger
}

func (c *bookSummaryCache) enabled() bool {
	return c != nil && c.cache != nil
}

func (c *bookSummaryCache) get(ctx context.Context, ids []string) (map[string]domain.BookSummary, []string) {
	if !c.enabled() {
		return map[string]domain.BookSummary{}, ids
	}

	hits := make(map[string]domain.BookSummary, len(ids))
	var missing []string
	for _, id := range ids {
		raw, err := c.cache.Get(ctx, bookSummaryKeyPrefix+id)
		if err != nil {
			if !errors.Is(err, ErrCacheMiss) {
				c.logger.Warn().Err(err).Str("book_id", id).Msg("book cache read failed")
			}
			missing = append(missing, id)
			continue
		}

		var s domain.BookSummary
		if err := json.Unmarshal(raw, &s); err != nil {
			missing = append(missing, id)
			continue
		}
		hits[id] = s
	}

	return hits, missing
}

func (c *bookSummaryCache) put(ctx context.Context, book *domain.Book) {
	if !c.enabled() {
		return
	}

	raw, err := json.Marshal(book.Summary())
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, bookSummaryKeyPrefix+book.ID, raw, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("book_id", book.ID).Msg("book cache write failed")
	}
}

func (c *bookSummaryCache) invalidate(ctx context.Context, id string) {
	if !c.enabled() {
		return
	}

	if err := c.cache.Delete(ctx, bookSummaryKeyPrefix+id); err != nil {
		c.logger.Warn().Err(err).Str("book_id", id).Msg("book cache invalidation failed")
	}
}
