package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"regdesk/internal/models"
)

func seedSearchStore() *fakeStore {
	store := newFakeStore()
	store.circulars["rbi"] = []models.Circular{
		{ID: "c1", Title: "KYC norms revised"},
		{ID: "c2", Title: "Unrelated notice"},
	}
	store.circulars["sebi"] = []models.Circular{
		{ID: "c3", Title: "KYC for intermediaries"},
	}
	store.products["p1"] = models.Product{ID: "p1", Title: "KYC Suite"}
	store.clients["cl1"] = models.Client{ID: "cl1", Name: "KYC Services Ltd"}
	return store
}

func newTestSearchService(t *testing.T, store Store) *SearchService {
	return NewSearchService(store, testRegistry(t), 2, 5, 2*time.Second)
}

func TestSearchShortTermSkipsStore(t *testing.T) {
	store := seedSearchStore()
	svc := newTestSearchService(t, store)

	for _, term := range []string{"", "k", "  k  ", "   "} {
		res, err := svc.Search(context.Background(), "user-1", term)
		if err != nil {
			t.Fatalf("Search(%q) failed: %v", term, err)
		}
		if len(res.Circulars) != 0 || len(res.Products) != 0 || len(res.Clients) != 0 {
			t.Errorf("Search(%q) should be empty", term)
		}
		if res.Circulars == nil || res.Products == nil || res.Clients == nil {
			t.Errorf("Search(%q) lists must be empty, not nil", term)
		}
	}
	if store.totalCalls() != 0 {
		t.Errorf("sub-threshold terms must not touch the store, got %d calls", store.totalCalls())
	}
}

func TestSearchFindsAcrossCollections(t *testing.T) {
	store := seedSearchStore()
	store.relatedByProduct["p1"] = models.CircularRef{Source: "rbi", ID: "c1"}
	svc := newTestSearchService(t, store)

	res, err := svc.Search(context.Background(), "user-1", "kyc")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(res.Circulars) != 2 {
		t.Errorf("got %d circular hits, want 2", len(res.Circulars))
	}
	for _, c := range res.Circulars {
		if c.Source == "" {
			t.Errorf("circular hit %s missing its source", c.ID)
		}
	}
	if len(res.Products) != 1 {
		t.Fatalf("got %d product hits, want 1", len(res.Products))
	}
	if ref := res.Products[0].RelatedCircular; ref == nil || ref.ID != "c1" || ref.Source != "rbi" {
		t.Errorf("product hit should carry its related circular, got %+v", res.Products[0].RelatedCircular)
	}
	if len(res.Clients) != 1 {
		t.Fatalf("got %d client hits, want 1", len(res.Clients))
	}
	if res.Clients[0].RelatedCircular != nil {
		t.Error("client without a referencing analysis should have no related circular")
	}
}

func TestSearchCapsResults(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 20; i++ {
		store.circulars["rbi"] = append(store.circulars["rbi"], models.Circular{
			ID:    fmt.Sprintf("c%d", i),
			Title: fmt.Sprintf("KYC circular %d", i),
		})
		id := fmt.Sprintf("p%d", i)
		store.products[id] = models.Product{ID: id, Title: fmt.Sprintf("KYC product %d", i)}
	}
	svc := newTestSearchService(t, store)

	res, err := svc.Search(context.Background(), "user-1", "kyc")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(res.Circulars) != 5 {
		t.Errorf("got %d circular hits, want the cap of 5", len(res.Circulars))
	}
	if len(res.Products) != 5 {
		t.Errorf("got %d product hits, want the cap of 5", len(res.Products))
	}
}

func TestSearchSupersedesPrevious(t *testing.T) {
	store := seedSearchStore()
	gate := make(chan struct{})
	store.searchGate = gate
	svc := newTestSearchService(t, store)

	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Search(context.Background(), "user-1", "kyc")
		firstErr <- err
	}()

	// Wait until the first search is blocked inside the store.
	select {
	case <-gate:
	case <-time.After(2 * time.Second):
		t.Fatal("first search never reached the store")
	}

	res, err := svc.Search(context.Background(), "user-1", "kyc norms")
	if err != nil {
		t.Fatalf("second search failed: %v", err)
	}
	if len(res.Circulars) != 1 || res.Circulars[0].ID != "c1" {
		t.Errorf("second search results = %+v, want the single matching circular", res.Circulars)
	}

	select {
	case err := <-firstErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("superseded search returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("superseded search never returned")
	}
}

func TestSearchDifferentPrincipalsDoNotInterfere(t *testing.T) {
	store := seedSearchStore()
	gate := make(chan struct{})
	store.searchGate = gate
	svc := newTestSearchService(t, store)

	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Search(context.Background(), "user-1", "kyc")
		firstErr <- err
	}()
	select {
	case <-gate:
	case <-time.After(2 * time.Second):
		t.Fatal("first search never reached the store")
	}

	if _, err := svc.Search(context.Background(), "user-2", "kyc"); err != nil {
		t.Fatalf("another principal's search failed: %v", err)
	}

	select {
	case <-firstErr:
		t.Fatal("a different principal must not cancel the in-flight search")
	default:
	}
}

func TestSearchStoreFailureSurfaces(t *testing.T) {
	store := seedSearchStore()
	svc := NewSearchService(&failingSearchStore{fakeStore: store}, testRegistry(t), 2, 5, 2*time.Second)

	_, err := svc.Search(context.Background(), "user-1", "kyc")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
}

// failingSearchStore overrides circular search with a hard failure.
type failingSearchStore struct {
	*fakeStore
}

func (f *failingSearchStore) SearchCirculars(ctx context.Context, sourceKeys []string, term string, limit int) ([]models.Circular, error) {
	return nil, errors.New("index unavailable")
}
