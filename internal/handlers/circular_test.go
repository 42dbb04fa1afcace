package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"regdesk/internal/models"
	"regdesk/internal/services"
	"regdesk/internal/sources"

	"github.com/gofiber/fiber/v2"
)

// stubStore is a minimal services.Store for exercising the HTTP surface.
type stubStore struct {
	circulars map[string][]models.Circular
	analyses  map[string]models.Analysis
	clients   map[string]models.Client
	products  map[string]models.Product
	listErr   error
}

func newStubStore() *stubStore {
	return &stubStore{
		circulars: make(map[string][]models.Circular),
		analyses:  make(map[string]models.Analysis),
		clients:   make(map[string]models.Client),
		products:  make(map[string]models.Product),
	}
}

func (s *stubStore) ListCirculars(ctx context.Context, source, minDateKey string) ([]models.Circular, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.circulars[source], nil
}

func (s *stubStore) GetCircular(ctx context.Context, source, id string) (*models.Circular, error) {
	for _, c := range s.circulars[source] {
		if c.ID == id {
			copied := c
			return &copied, nil
		}
	}
	return nil, services.ErrNotFound
}

func (s *stubStore) GetAnalysis(ctx context.Context, source, id string) (*models.Analysis, error) {
	if a, ok := s.analyses[source+"|"+id]; ok {
		copied := a
		return &copied, nil
	}
	return nil, services.ErrNotFound
}

func (s *stubStore) GetClient(ctx context.Context, id string) (*models.Client, error) {
	if c, ok := s.clients[id]; ok {
		copied := c
		return &copied, nil
	}
	return nil, services.ErrNotFound
}

func (s *stubStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if p, ok := s.products[id]; ok {
		copied := p
		return &copied, nil
	}
	return nil, services.ErrNotFound
}

func (s *stubStore) SearchCirculars(ctx context.Context, sourceKeys []string, term string, limit int) ([]models.Circular, error) {
	var out []models.Circular
	for _, source := range sourceKeys {
		for _, c := range s.circulars[source] {
			if len(out) >= limit {
				return out, nil
			}
			c.Source = source
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubStore) SearchProducts(ctx context.Context, term string, limit int) ([]models.Product, error) {
	return nil, nil
}

func (s *stubStore) SearchClients(ctx context.Context, term string, limit int) ([]models.Client, error) {
	return nil, nil
}

func (s *stubStore) RelatedCircularByProduct(ctx context.Context, sourceKeys []string, productID string) (*models.CircularRef, error) {
	return nil, services.ErrNotFound
}

func (s *stubStore) RelatedCircularByClient(ctx context.Context, sourceKeys []string, clientID string) (*models.CircularRef, error) {
	return nil, services.ErrNotFound
}

func newTestApp(t *testing.T, store services.Store) *fiber.App {
	t.Helper()
	registry, err := sources.Load("/nonexistent/sources.yaml")
	if err != nil {
		t.Fatalf("Failed to load default registry: %v", err)
	}

	circularService := services.NewCircularService(store, registry, 2, time.Minute, 0)
	detailService := services.NewDetailService(store, registry, time.Minute)
	searchService := services.NewSearchService(store, registry, 2, 5, 2*time.Second)

	circularHandler := NewCircularHandler(circularService, detailService)
	searchHandler := NewSearchHandler(searchService)
	sourceHandler := NewSourceHandler(registry)

	app := fiber.New()
	api := app.Group("/api")
	api.Get("/sources", sourceHandler.List)
	api.Get("/search", searchHandler.Handle)
	api.Get("/circulars/:source", circularHandler.List)
	api.Get("/circulars/:source/:id", circularHandler.Detail)
	api.Post("/cache/circulars/:source/invalidate", circularHandler.InvalidateSource)
	api.Post("/cache/circulars/:source/:id/invalidate", circularHandler.InvalidateDetail)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target string, wantStatus int) map[string]any {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s = %d, want %d (body: %s)", method, target, resp.StatusCode, wantStatus, body)
	}
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Failed to decode %s %s response: %v", method, target, err)
	}
	return decoded
}

func TestListEndpoint(t *testing.T) {
	store := newStubStore()
	store.circulars["rbi"] = []models.Circular{
		{ID: "a", Title: "Oldest", Date: "01-01-2020"},
		{ID: "b", Title: "Middle", Date: "15-06-2021"},
		{ID: "c", Title: "Newest", Date: "Dec 31, 2021"},
	}
	app := newTestApp(t, store)

	body := doJSON(t, app, http.MethodGet, "/api/circulars/rbi?page=1", http.StatusOK)
	if body["total_pages"].(float64) != 2 {
		t.Errorf("total_pages = %v, want 2", body["total_pages"])
	}
	items := body["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("page 1 has %d items, want 2", len(items))
	}
	first := items[0].(map[string]any)
	if first["title"] != "Newest" {
		t.Errorf("first item = %v, want the newest circular", first["title"])
	}
	if first["source"] != "rbi" {
		t.Errorf("items should carry their source, got %v", first["source"])
	}
}

func TestListEndpointRejectsBadMinDate(t *testing.T) {
	app := newTestApp(t, newStubStore())

	body := doJSON(t, app, http.MethodGet, "/api/circulars/rbi?min_date=2021-12-31", http.StatusBadRequest)
	if body["error"] == "" {
		t.Error("expected an error message for a malformed min_date")
	}
}

func TestListEndpointUnknownSource(t *testing.T) {
	app := newTestApp(t, newStubStore())

	body := doJSON(t, app, http.MethodGet, "/api/circulars/unheard-of", http.StatusNotFound)
	if body["error"] != "unknown_source" {
		t.Errorf("error = %v, want unknown_source", body["error"])
	}
}

func TestListEndpointStoreDown(t *testing.T) {
	store := newStubStore()
	store.listErr = errors.New("connection refused")
	app := newTestApp(t, store)

	body := doJSON(t, app, http.MethodGet, "/api/circulars/rbi", http.StatusServiceUnavailable)
	if body["error"] != "store_unavailable" {
		t.Errorf("error = %v, want store_unavailable", body["error"])
	}
	if body["retryable"] != true {
		t.Error("store outages should be marked retryable")
	}
}

func TestDetailEndpoint(t *testing.T) {
	store := newStubStore()
	store.circulars["rbi"] = []models.Circular{
		{ID: "circ-1", Title: "KYC Update", Date: "15-06-2021", Description: "desc"},
	}
	store.analyses["rbi|circ-1"] = models.Analysis{
		ID:              "circ-1",
		Summary:         "the summary",
		ImpactedClients: []string{"client-1", "ghost"},
	}
	store.clients["client-1"] = models.Client{ID: "client-1", Name: "Acme Bank"}
	app := newTestApp(t, store)

	body := doJSON(t, app, http.MethodGet, "/api/circulars/rbi/circ-1", http.StatusOK)
	if body["summary"] != "the summary" {
		t.Errorf("summary = %v, want the analysis summary", body["summary"])
	}
	clients := body["impacted_clients"].([]any)
	if len(clients) != 1 {
		t.Errorf("got %d impacted clients, want 1 (dangling reference dropped)", len(clients))
	}

	notFound := doJSON(t, app, http.MethodGet, "/api/circulars/rbi/nope", http.StatusNotFound)
	if notFound["error"] != "not_found" {
		t.Errorf("error = %v, want not_found", notFound["error"])
	}
}

func TestSourcesEndpoint(t *testing.T) {
	app := newTestApp(t, newStubStore())

	body := doJSON(t, app, http.MethodGet, "/api/sources", http.StatusOK)
	list := body["sources"].([]any)
	if len(list) != 2 {
		t.Fatalf("got %d sources, want the 2 defaults", len(list))
	}
}

func TestInvalidateEndpoints(t *testing.T) {
	store := newStubStore()
	store.circulars["rbi"] = []models.Circular{
		{ID: "circ-1", Title: "KYC Update", Date: "15-06-2021"},
	}
	store.analyses["rbi|circ-1"] = models.Analysis{ID: "circ-1"}
	app := newTestApp(t, store)

	// Warm both caches.
	doJSON(t, app, http.MethodGet, "/api/circulars/rbi", http.StatusOK)
	doJSON(t, app, http.MethodGet, "/api/circulars/rbi/circ-1", http.StatusOK)

	body := doJSON(t, app, http.MethodPost, "/api/cache/circulars/rbi/invalidate", http.StatusOK)
	if body["entries"].(float64) != 1 {
		t.Errorf("entries = %v, want 1", body["entries"])
	}

	body = doJSON(t, app, http.MethodPost, "/api/cache/circulars/rbi/circ-1/invalidate", http.StatusOK)
	if body["existed"] != true {
		t.Error("invalidating a warm detail entry should report existed=true")
	}

	// refresh=true recomposes and returns the fresh view.
	body = doJSON(t, app, http.MethodPost, "/api/cache/circulars/rbi/circ-1/invalidate?refresh=true", http.StatusOK)
	if body["id"] != "circ-1" {
		t.Errorf("refresh should return the composed detail, got %v", body)
	}
}
