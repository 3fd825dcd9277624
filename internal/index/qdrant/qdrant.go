// Package qdrant provides a remote document index backed by a Qdrant server,
// searched with lexical hashed term vectors.
package qdrant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"versionrank/internal/domain"
	"versionrank/internal/embedding"
)

const (
	payloadID   = "version_id"
	payloadText = "text"
	payloadMeta = "meta"
)

// pointNamespace scopes the name-based UUIDs derived from version IDs.
var pointNamespace = uuid.MustParse("8f6b3c52-4a4e-4c1b-9d2e-5b7a0f1e2c3d")

// Config contains connection details for a Qdrant server.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// Index stores versions as points in a Qdrant collection.
// It assumes cosine distance and creates the collection if missing.
type Index struct {
	client     *qdrant.Client
	collection string
	vectorizer *embedding.HashingVectorizer
	logger     *zap.Logger
}

// Open connects to Qdrant and ensures the collection exists.
func Open(ctx context.Context, cfg Config, vectorizer *embedding.HashingVectorizer, logger *zap.Logger) (*Index, error) {
	if vectorizer == nil {
		return nil, errors.New("vectorizer is required")
	}
	if cfg.Collection == "" {
		return nil, errors.New("qdrant collection is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	s := &Index{client: client, collection: cfg.Collection, vectorizer: vectorizer, logger: logger}
	if err := s.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

func (s *Index) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", s.collection, err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.vectorizer.Dimension()),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", s.collection, err)
	}
	s.logger.Info("qdrant collection created",
		zap.String("collection", s.collection),
		zap.Int("dimension", s.vectorizer.Dimension()),
	)
	return nil
}

// Add upserts doc. The point ID is derived from the document ID, so
// re-adding an ID replaces the point.
func (s *Index) Add(ctx context.Context, doc domain.IndexedDocument) error {
	if doc.ID == "" {
		return errors.New("document id is required")
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(PointID(doc.ID)),
			Vectors: qdrant.NewVectors(s.vectorizer.Vectorize(doc.Text)...),
			Payload: qdrant.NewValueMap(payload(doc)),
		}},
	})
	if err != nil {
		return fmt.Errorf("upserting %s to collection %s: %w", doc.ID, s.collection, err)
	}
	return nil
}

// Query returns up to topN documents by cosine similarity of term vectors.
func (s *Index) Query(ctx context.Context, text string, topN int) ([]domain.IndexedDocument, error) {
	if topN <= 0 {
		topN = 5
	}
	if s.vectorizer.Empty(text) {
		return []domain.IndexedDocument{}, nil
	}
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(s.vectorizer.Vectorize(text)...),
		Limit:          qdrant.PtrOf(uint64(topN)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("searching collection %s: %w", s.collection, err)
	}
	docs := make([]domain.IndexedDocument, 0, len(points))
	for _, p := range points {
		docs = append(docs, docFromPayload(p.GetPayload()))
	}
	return docs, nil
}

// Get returns the document stored under id.
func (s *Index) Get(ctx context.Context, id string) (domain.IndexedDocument, bool, error) {
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(PointID(id))},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return domain.IndexedDocument{}, false, fmt.Errorf("getting %s from collection %s: %w", id, s.collection, err)
	}
	if len(points) == 0 {
		return domain.IndexedDocument{}, false, nil
	}
	return docFromPayload(points[0].GetPayload()), true, nil
}

// Count returns the exact number of points in the collection.
func (s *Index) Count(ctx context.Context) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting collection %s: %w", s.collection, err)
	}
	return int(n), nil
}

// Close closes the gRPC connection.
func (s *Index) Close() error { return s.client.Close() }

// PointID returns the Qdrant point UUID for a version ID.
func PointID(id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

func payload(doc domain.IndexedDocument) map[string]any {
	meta := make(map[string]any, len(doc.Metadata))
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	return map[string]any{
		payloadID:   doc.ID,
		payloadText: doc.Text,
		payloadMeta: meta,
	}
}

func docFromPayload(p map[string]*qdrant.Value) domain.IndexedDocument {
	doc := domain.IndexedDocument{
		ID:       p[payloadID].GetStringValue(),
		Text:     p[payloadText].GetStringValue(),
		Metadata: map[string]string{},
	}
	for k, v := range p[payloadMeta].GetStructValue().GetFields() {
		doc.Metadata[k] = v.GetStringValue()
	}
	return doc
}
