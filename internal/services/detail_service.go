package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"regdesk/internal/models"
	"regdesk/internal/sources"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

// DetailService is the detail composer: it joins a circular with its
// analysis, resolves the impacted client and product references, and caches
// the merged view per (source, id). The composed view is a best-effort
// snapshot; a concurrent update between the outer fetches and the reference
// resolution is not detected.
type DetailService struct {
	store    Store
	registry *sources.Registry
	cache    *cache.Cache
}

// NewDetailService creates the composer. Composed views expire after ttl.
func NewDetailService(store Store, registry *sources.Registry, ttl time.Duration) *DetailService {
	return &DetailService{
		store:    store,
		registry: registry,
		cache:    cache.New(ttl, ttl/2),
	}
}

// clientResolution and productResolution keep the dropped/resolved outcome of
// each reference visible to tests even though callers only see the resolved
// subset.
type clientResolution struct {
	client  models.Client
	dropped bool
}

type productResolution struct {
	product models.ImpactedProduct
	dropped bool
}

// GetDetail returns the composed view for one circular. Either the circular
// or its analysis missing yields ErrNotFound; a dangling client or product
// reference is dropped from the resolved list, not an error.
func (s *DetailService) GetDetail(ctx context.Context, source, id string) (*models.CircularDetail, error) {
	if _, ok := s.registry.Get(source); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	key := source + "|" + id
	if cached, found := s.cache.Get(key); found {
		recordCacheHit("details")
		return cached.(*models.CircularDetail), nil
	}
	recordCacheMiss("details")

	detail, err := s.compose(ctx, source, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, detail, cache.DefaultExpiration)
	return detail, nil
}

// Invalidate drops the cached view for one circular. Returns whether an
// entry existed.
func (s *DetailService) Invalidate(source, id string) bool {
	key := source + "|" + id
	_, found := s.cache.Get(key)
	s.cache.Delete(key)
	return found
}

// Refresh drops the cached view and recomposes it from the store.
func (s *DetailService) Refresh(ctx context.Context, source, id string) (*models.CircularDetail, error) {
	s.Invalidate(source, id)
	return s.GetDetail(ctx, source, id)
}

func (s *DetailService) compose(ctx context.Context, source, id string) (*models.CircularDetail, error) {
	// The two outer fetches are independent; run them concurrently.
	var circular *models.Circular
	var analysis *models.Analysis

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		started := time.Now()
		c, err := s.store.GetCircular(gctx, source, id)
		recordStoreLatency("get_circular", time.Since(started).Seconds())
		if err != nil {
			return err
		}
		circular = c
		return nil
	})
	g.Go(func() error {
		started := time.Now()
		a, err := s.store.GetAnalysis(gctx, source, id)
		recordStoreLatency("get_analysis", time.Since(started).Seconds())
		if err != nil {
			return err
		}
		analysis = a
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	clients, err := s.resolveClients(ctx, analysis.ImpactedClients)
	if err != nil {
		return nil, err
	}
	products, err := s.resolveProducts(ctx, analysis.ImpactedProducts)
	if err != nil {
		return nil, err
	}

	return models.ComposeDetail(source, circular, analysis, clients, products), nil
}

// resolveClients looks up each impacted client id concurrently. Dangling ids
// are dropped; result order follows the analysis list.
func (s *DetailService) resolveClients(ctx context.Context, ids []string) ([]models.Client, error) {
	resolutions := make([]clientResolution, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			c, err := s.store.GetClient(gctx, id)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					slog.Debug("dropping dangling client reference", "client_id", id)
					resolutions[i] = clientResolution{dropped: true}
					return nil
				}
				return err
			}
			resolutions[i] = clientResolution{client: *c}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	clients := make([]models.Client, 0, len(ids))
	for _, r := range resolutions {
		if !r.dropped {
			clients = append(clients, r.client)
		}
	}
	return clients, nil
}

// resolveProducts mirrors resolveClients and attaches the per-entry impact
// description from the analysis, which the product document does not carry.
func (s *DetailService) resolveProducts(ctx context.Context, refs []models.ImpactedProductRef) ([]models.ImpactedProduct, error) {
	resolutions := make([]productResolution, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		g.Go(func() error {
			p, err := s.store.GetProduct(gctx, ref.ProductID)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					slog.Debug("dropping dangling product reference", "product_id", ref.ProductID)
					resolutions[i] = productResolution{dropped: true}
					return nil
				}
				return err
			}
			resolutions[i] = productResolution{product: models.ImpactedProduct{
				Product:           *p,
				ImpactDescription: ref.ImpactDescription,
			}}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	products := make([]models.ImpactedProduct, 0, len(refs))
	for _, r := range resolutions {
		if !r.dropped {
			products = append(products, r.product)
		}
	}
	return products, nil
}
