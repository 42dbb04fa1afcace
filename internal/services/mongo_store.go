package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"regdesk/internal/database"
	"regdesk/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is the MongoDB-backed document store client. Every call is
// bounded by the configured timeout; the circular and analysis collections
// are resolved per source type.
type MongoStore struct {
	db      *database.MongoDB
	timeout time.Duration
}

// NewMongoStore creates a store over an established MongoDB connection.
func NewMongoStore(db *database.MongoDB, timeout time.Duration) *MongoStore {
	return &MongoStore{db: db, timeout: timeout}
}

func (s *MongoStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// ListCirculars fetches the circulars of one source, pushing the minimum-date
// restriction server-side on the indexed date_sort field. Documents that
// predate the date_sort backfill are returned as-is for the aggregator to
// filter after normalization.
func (s *MongoStore) ListCirculars(ctx context.Context, source, minDateKey string) ([]models.Circular, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	filter := bson.M{}
	if minDateKey != "" {
		filter = bson.M{"$or": bson.A{
			bson.M{"date_sort": bson.M{"$gte": minDateKey}},
			bson.M{"date_sort": bson.M{"$exists": false}},
		}}
	}

	opts := options.Find().SetSort(bson.D{{Key: "date_sort", Value: -1}})
	cursor, err := s.db.Collection(database.CircularsCollection(source)).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list circulars for %s: %w", source, err)
	}
	defer cursor.Close(ctx)

	var circulars []models.Circular
	if err := cursor.All(ctx, &circulars); err != nil {
		return nil, fmt.Errorf("failed to decode circulars for %s: %w", source, err)
	}
	return circulars, nil
}

func (s *MongoStore) GetCircular(ctx context.Context, source, id string) (*models.Circular, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var circular models.Circular
	err := s.db.Collection(database.CircularsCollection(source)).
		FindOne(ctx, bson.M{"_id": id}).Decode(&circular)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("circular %s/%s: %w", source, id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get circular %s/%s: %w", source, id, err)
	}
	return &circular, nil
}

func (s *MongoStore) GetAnalysis(ctx context.Context, source, id string) (*models.Analysis, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var analysis models.Analysis
	err := s.db.Collection(database.AnalysisCollection(source)).
		FindOne(ctx, bson.M{"_id": id}).Decode(&analysis)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("analysis %s/%s: %w", source, id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get analysis %s/%s: %w", source, id, err)
	}
	return &analysis, nil
}

func (s *MongoStore) GetClient(ctx context.Context, id string) (*models.Client, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var client models.Client
	err := s.db.Collection(database.CollectionClients).
		FindOne(ctx, bson.M{"_id": id}).Decode(&client)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("client %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get client %s: %w", id, err)
	}
	return &client, nil
}

func (s *MongoStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var product models.Product
	err := s.db.Collection(database.CollectionProducts).
		FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return &product, nil
}

// substringFilter builds a case-insensitive substring match on a field. The
// term is quoted so user input never becomes regex syntax. searchable_title
// fields are already lowercased by the pipeline, so those skip the "i" option
// and stay index-friendly.
func substringFilter(field, term string, lowered bool) bson.M {
	if lowered {
		return bson.M{field: bson.M{"$regex": regexp.QuoteMeta(strings.ToLower(term))}}
	}
	return bson.M{field: bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}}
}

// SearchCirculars matches the term against titles across every registered
// source, keeping the overall cap.
func (s *MongoStore) SearchCirculars(ctx context.Context, sourceKeys []string, term string, limit int) ([]models.Circular, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	results := make([]models.Circular, 0, limit)
	for _, source := range sourceKeys {
		if len(results) >= limit {
			break
		}
		remaining := int64(limit - len(results))

		cursor, err := s.db.Collection(database.CircularsCollection(source)).Find(ctx,
			substringFilter("searchable_title", term, true),
			options.Find().SetLimit(remaining))
		if err != nil {
			return nil, fmt.Errorf("failed to search circulars in %s: %w", source, err)
		}

		var hits []models.Circular
		if err := cursor.All(ctx, &hits); err != nil {
			return nil, fmt.Errorf("failed to decode circular hits in %s: %w", source, err)
		}
		for i := range hits {
			hits[i].Source = source
		}
		results = append(results, hits...)
	}
	return results, nil
}

func (s *MongoStore) SearchProducts(ctx context.Context, term string, limit int) ([]models.Product, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	cursor, err := s.db.Collection(database.CollectionProducts).Find(ctx,
		substringFilter("searchable_title", term, true),
		options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode product hits: %w", err)
	}
	return products, nil
}

func (s *MongoStore) SearchClients(ctx context.Context, term string, limit int) ([]models.Client, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	cursor, err := s.db.Collection(database.CollectionClients).Find(ctx,
		substringFilter("client_name", term, false),
		options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to search clients: %w", err)
	}

	var clients []models.Client
	if err := cursor.All(ctx, &clients); err != nil {
		return nil, fmt.Errorf("failed to decode client hits: %w", err)
	}
	return clients, nil
}

// RelatedCircularByProduct finds one circular whose analysis references the
// product, checking each source's analysis collection in registry order.
func (s *MongoStore) RelatedCircularByProduct(ctx context.Context, sourceKeys []string, productID string) (*models.CircularRef, error) {
	return s.relatedCircular(ctx, sourceKeys, bson.M{"impacted_products.product_id": productID})
}

// RelatedCircularByClient finds one circular whose analysis references the client.
func (s *MongoStore) RelatedCircularByClient(ctx context.Context, sourceKeys []string, clientID string) (*models.CircularRef, error) {
	return s.relatedCircular(ctx, sourceKeys, bson.M{"impacted_clients": clientID})
}

func (s *MongoStore) relatedCircular(ctx context.Context, sourceKeys []string, filter bson.M) (*models.CircularRef, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	for _, source := range sourceKeys {
		var doc struct {
			ID string `bson:"_id"`
		}
		err := s.db.Collection(database.AnalysisCollection(source)).
			FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).
			Decode(&doc)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				continue
			}
			return nil, fmt.Errorf("reverse lookup in %s failed: %w", source, err)
		}
		return &models.CircularRef{Source: source, ID: doc.ID}, nil
	}
	return nil, ErrNotFound
}
