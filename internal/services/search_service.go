package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"regdesk/internal/models"
	"regdesk/internal/sources"
)

// SearchService answers free-text searches over circulars, products and
// clients. Each principal has at most one search in flight: issuing a new one
// cancels the previous, so a slow older response can never overwrite a newer
// one at the caller.
type SearchService struct {
	store      Store
	registry   *sources.Registry
	minLength  int
	maxResults int
	timeout    time.Duration

	mu       sync.Mutex
	inflight map[string]*searchToken
}

// searchToken identifies one in-flight search so a finished search only
// clears its own registration, not a newer one's.
type searchToken struct {
	cancel context.CancelFunc
}

// NewSearchService creates the search aggregator.
func NewSearchService(store Store, registry *sources.Registry, minLength, maxResults int, timeout time.Duration) *SearchService {
	if minLength < 1 {
		minLength = 2
	}
	if maxResults < 1 {
		maxResults = 5
	}
	return &SearchService{
		store:      store,
		registry:   registry,
		minLength:  minLength,
		maxResults: maxResults,
		timeout:    timeout,
		inflight:   make(map[string]*searchToken),
	}
}

// Search runs one capped search for a principal. Terms below the minimum
// length return empty results without touching the store. A superseded
// search returns context.Canceled.
func (s *SearchService) Search(ctx context.Context, principal, term string) (*models.SearchResults, error) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < s.minLength {
		return models.EmptySearchResults(), nil
	}

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	token := &searchToken{cancel: cancel}

	s.mu.Lock()
	if prev, ok := s.inflight[principal]; ok {
		prev.cancel()
		recordSearchSuperseded()
		slog.Debug("superseded in-flight search", "principal", principal)
	}
	s.inflight[principal] = token
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		// Only clear our own entry; a newer search may have replaced it.
		if s.inflight[principal] == token {
			delete(s.inflight, principal)
		}
		s.mu.Unlock()
		cancel()
	}()

	results := models.EmptySearchResults()
	sourceKeys := s.registry.Keys()

	started := time.Now()
	circulars, err := s.store.SearchCirculars(sctx, sourceKeys, term, s.maxResults)
	recordStoreLatency("search_circulars", time.Since(started).Seconds())
	if err != nil {
		return nil, s.searchErr(err)
	}
	results.Circulars = append(results.Circulars, circulars...)

	products, err := s.store.SearchProducts(sctx, term, s.maxResults)
	if err != nil {
		return nil, s.searchErr(err)
	}
	for _, p := range products {
		hit := models.ProductHit{Product: p}
		// Best-effort: absence or failure of the reverse lookup is not an error.
		if ref, err := s.store.RelatedCircularByProduct(sctx, sourceKeys, p.ID); err == nil {
			hit.RelatedCircular = ref
		} else if errors.Is(err, context.Canceled) {
			return nil, err
		}
		results.Products = append(results.Products, hit)
	}

	clients, err := s.store.SearchClients(sctx, term, s.maxResults)
	if err != nil {
		return nil, s.searchErr(err)
	}
	for _, c := range clients {
		hit := models.ClientHit{Client: c}
		if ref, err := s.store.RelatedCircularByClient(sctx, sourceKeys, c.ID); err == nil {
			hit.RelatedCircular = ref
		} else if errors.Is(err, context.Canceled) {
			return nil, err
		}
		results.Clients = append(results.Clients, hit)
	}

	return results, nil
}

func (s *SearchService) searchErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: search timed out", ErrUnavailable)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
