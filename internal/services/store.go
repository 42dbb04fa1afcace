package services

import (
	"context"

	"regdesk/internal/models"
)

// Store is the document-store capability the aggregation services depend on.
// The production implementation is MongoStore; tests use in-memory fakes.
//
// Lookup methods return ErrNotFound (possibly wrapped) when the document does
// not exist; any other error is a transient store failure.
type Store interface {
	// ListCirculars returns all circulars for a source, optionally restricted
	// to documents on or after minDateKey (ISO day key, "" for no filter).
	// Documents without a date_sort field are included regardless of filter;
	// the aggregator re-checks them after normalization.
	ListCirculars(ctx context.Context, source, minDateKey string) ([]models.Circular, error)

	GetCircular(ctx context.Context, source, id string) (*models.Circular, error)
	GetAnalysis(ctx context.Context, source, id string) (*models.Analysis, error)
	GetClient(ctx context.Context, id string) (*models.Client, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)

	// Search methods run indexed, case-insensitive substring matches and cap
	// results at limit.
	SearchCirculars(ctx context.Context, sourceKeys []string, term string, limit int) ([]models.Circular, error)
	SearchProducts(ctx context.Context, term string, limit int) ([]models.Product, error)
	SearchClients(ctx context.Context, term string, limit int) ([]models.Client, error)

	// Reverse lookups find one circular whose analysis references the given
	// entity. ErrNotFound when no analysis references it.
	RelatedCircularByProduct(ctx context.Context, sourceKeys []string, productID string) (*models.CircularRef, error)
	RelatedCircularByClient(ctx context.Context, sourceKeys []string, clientID string) (*models.CircularRef, error)
}
