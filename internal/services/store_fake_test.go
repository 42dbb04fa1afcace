package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"regdesk/internal/models"
)

// fakeStore is an in-memory Store with per-method call counting, used to
// verify caching (no duplicate fetches) and failure surfacing.
type fakeStore struct {
	mu sync.Mutex

	circulars map[string][]models.Circular          // source -> documents
	analyses  map[string]map[string]models.Analysis // source -> id -> analysis
	clients   map[string]models.Client
	products  map[string]models.Product

	relatedByProduct map[string]models.CircularRef
	relatedByClient  map[string]models.CircularRef

	calls map[string]int

	// listFailures makes ListCirculars fail that many times before
	// succeeding; listErr makes it fail forever.
	listFailures int
	listErr      error
	clientErr    error

	// searchGate, when set, makes the first SearchCirculars call close the
	// channel and block until the context is cancelled (supersede testing).
	searchGate chan struct{}
	gatedOnce  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		circulars:        make(map[string][]models.Circular),
		analyses:         make(map[string]map[string]models.Analysis),
		clients:          make(map[string]models.Client),
		products:         make(map[string]models.Product),
		relatedByProduct: make(map[string]models.CircularRef),
		relatedByClient:  make(map[string]models.CircularRef),
		calls:            make(map[string]int),
	}
}

func (f *fakeStore) count(method string) {
	f.mu.Lock()
	f.calls[method]++
	f.mu.Unlock()
}

func (f *fakeStore) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeStore) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakeStore) addAnalysis(source string, a models.Analysis) {
	if f.analyses[source] == nil {
		f.analyses[source] = make(map[string]models.Analysis)
	}
	f.analyses[source][a.ID] = a
}

func (f *fakeStore) ListCirculars(ctx context.Context, source, minDateKey string) ([]models.Circular, error) {
	f.count("ListCirculars")

	f.mu.Lock()
	if f.listFailures > 0 {
		f.listFailures--
		f.mu.Unlock()
		return nil, errors.New("transient store failure")
	}
	listErr := f.listErr
	f.mu.Unlock()
	if listErr != nil {
		return nil, listErr
	}

	var out []models.Circular
	for _, c := range f.circulars[source] {
		// Mirrors the server-side filter: date_sort >= key, or field absent.
		if minDateKey != "" && c.DateSort != "" && c.DateSort < minDateKey {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) GetCircular(ctx context.Context, source, id string) (*models.Circular, error) {
	f.count("GetCircular")
	for _, c := range f.circulars[source] {
		if c.ID == id {
			copied := c
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) GetAnalysis(ctx context.Context, source, id string) (*models.Analysis, error) {
	f.count("GetAnalysis")
	if a, ok := f.analyses[source][id]; ok {
		copied := a
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (f *fakeStore) GetClient(ctx context.Context, id string) (*models.Client, error) {
	f.count("GetClient")
	f.mu.Lock()
	clientErr := f.clientErr
	f.mu.Unlock()
	if clientErr != nil {
		return nil, clientErr
	}
	if c, ok := f.clients[id]; ok {
		copied := c
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (f *fakeStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	f.count("GetProduct")
	if p, ok := f.products[id]; ok {
		copied := p
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (f *fakeStore) SearchCirculars(ctx context.Context, sourceKeys []string, term string, limit int) ([]models.Circular, error) {
	f.count("SearchCirculars")

	f.mu.Lock()
	gate := f.searchGate
	gated := gate != nil && !f.gatedOnce
	if gated {
		f.gatedOnce = true
	}
	f.mu.Unlock()

	if gated {
		close(gate)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	var out []models.Circular
	for _, source := range sourceKeys {
		for _, c := range f.circulars[source] {
			if len(out) >= limit {
				return out, nil
			}
			if strings.Contains(strings.ToLower(c.Title), strings.ToLower(term)) {
				c.Source = source
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) SearchProducts(ctx context.Context, term string, limit int) ([]models.Product, error) {
	f.count("SearchProducts")
	var out []models.Product
	for _, p := range f.products {
		if len(out) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(p.Title), strings.ToLower(term)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) SearchClients(ctx context.Context, term string, limit int) ([]models.Client, error) {
	f.count("SearchClients")
	var out []models.Client
	for _, c := range f.clients {
		if len(out) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(term)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) RelatedCircularByProduct(ctx context.Context, sourceKeys []string, productID string) (*models.CircularRef, error) {
	f.count("RelatedCircularByProduct")
	if ref, ok := f.relatedByProduct[productID]; ok {
		return &ref, nil
	}
	return nil, ErrNotFound
}

func (f *fakeStore) RelatedCircularByClient(ctx context.Context, sourceKeys []string, clientID string) (*models.CircularRef, error) {
	f.count("RelatedCircularByClient")
	if ref, ok := f.relatedByClient[clientID]; ok {
		return &ref, nil
	}
	return nil, ErrNotFound
}
