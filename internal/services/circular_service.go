package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"regdesk/internal/dates"
	"regdesk/internal/models"
	"regdesk/internal/sources"

	"github.com/patrickmn/go-cache"
)

// CircularService is the circular aggregator: it fetches a source's
// circulars, normalizes and sorts them newest-first, and serves fixed-size
// pages. The sorted, filtered set is cached per (source, minDate filter), so
// one fetch serves every page of that view and a filter change is a natural
// cache miss.
type CircularService struct {
	store    Store
	registry *sources.Registry
	cache    *cache.Cache
	pageSize int
	retries  int
}

// NewCircularService creates the aggregator. Cached sets expire after ttl.
func NewCircularService(store Store, registry *sources.Registry, pageSize int, ttl time.Duration, retries int) *CircularService {
	if pageSize < 1 {
		pageSize = 6
	}
	return &CircularService{
		store:    store,
		registry: registry,
		cache:    cache.New(ttl, ttl/2),
		pageSize: pageSize,
		retries:  retries,
	}
}

// PageSize returns the configured page size.
func (s *CircularService) PageSize() int {
	return s.pageSize
}

// ListPage returns one page of a source's circulars, newest first. minDate
// restricts the view to circulars on or after that day; the zero Date means
// no restriction. An out-of-range page (including page < 1) yields an empty
// item list with the real TotalPages so the caller can fix its navigation.
func (s *CircularService) ListPage(ctx context.Context, source string, page int, minDate dates.Date) (*models.CircularPage, error) {
	if _, ok := s.registry.Get(source); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	sorted, err := s.sortedSet(ctx, source, minDate)
	if err != nil {
		return nil, err
	}

	total := len(sorted)
	totalPages := (total + s.pageSize - 1) / s.pageSize

	result := &models.CircularPage{
		Items:      []models.Circular{},
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	}

	if page < 1 || page > totalPages {
		return result, nil
	}

	start := (page - 1) * s.pageSize
	end := start + s.pageSize
	if end > total {
		end = total
	}

	items := make([]models.Circular, end-start)
	copy(items, sorted[start:end])
	for i := range items {
		items[i].Source = source
	}
	result.Items = items
	return result, nil
}

// InvalidateSource drops every cached view of a source. Exposed as the cache
// invalidation hook for callers that know the underlying data changed.
func (s *CircularService) InvalidateSource(source string) int {
	prefix := source + "|"
	removed := 0
	for key := range s.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Delete(key)
			removed++
		}
	}
	if removed > 0 {
		slog.Info("invalidated page cache", "source", source, "entries", removed)
	}
	return removed
}

// sortedSet returns the cached sorted circular set for (source, minDate),
// fetching and normalizing on a miss.
func (s *CircularService) sortedSet(ctx context.Context, source string, minDate dates.Date) ([]models.Circular, error) {
	key := source + "|" + minDate.Key()

	if cached, found := s.cache.Get(key); found {
		recordCacheHit("pages")
		return cached.([]models.Circular), nil
	}
	recordCacheMiss("pages")

	fetched, err := s.fetchWithRetry(ctx, source, minDate.Key())
	if err != nil {
		return nil, err
	}

	sorted := normalizeAndSort(fetched, minDate)
	s.cache.Set(key, sorted, cache.DefaultExpiration)
	return sorted, nil
}

// fetchWithRetry calls the store with a small bounded retry and backoff.
// After the attempts are exhausted the failure surfaces as ErrUnavailable —
// never as a fabricated empty page.
func (s *CircularService) fetchWithRetry(ctx context.Context, source, minDateKey string) ([]models.Circular, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 200 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			slog.Debug("retrying circular fetch", "source", source, "attempt", attempt)
		}

		started := time.Now()
		circulars, err := s.store.ListCirculars(ctx, source, minDateKey)
		recordStoreLatency("list_circulars", time.Since(started).Seconds())
		if err == nil {
			return circulars, nil
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		lastErr = err
	}
	slog.Error("circular fetch failed", "source", source, "error", lastErr)
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

type datedCircular struct {
	circular models.Circular
	date     dates.Date
}

// normalizeAndSort orders circulars by normalized date descending. Circulars
// whose date cannot be normalized sort after all dated ones; the sort is
// stable, so ties and undated runs keep fetch order. Under an active minDate
// filter, circulars that cannot be compared against the bound are dropped.
func normalizeAndSort(circulars []models.Circular, minDate dates.Date) []models.Circular {
	dated := make([]datedCircular, 0, len(circulars))
	for _, c := range circulars {
		d := dates.Parse(c.Date)
		if !d.Valid() && c.DateSort != "" {
			d = dates.ParseKey(c.DateSort)
		}
		if minDate.Valid() {
			if !d.Valid() || d.Before(minDate) {
				continue
			}
		}
		dated = append(dated, datedCircular{circular: c, date: d})
	}

	sort.SliceStable(dated, func(i, j int) bool {
		return dates.Compare(dated[i].date, dated[j].date) < 0
	})

	sorted := make([]models.Circular, len(dated))
	for i, dc := range dated {
		sorted[i] = dc.circular
	}
	return sorted
}
