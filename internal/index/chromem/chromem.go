// Package chromem provides an embedded document index backed by chromem-go,
// searched with lexical hashed term vectors.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"versionrank/internal/domain"
	"versionrank/internal/embedding"
)

// DefaultCollection is the collection holding document versions.
const DefaultCollection = "chapter_versions"

// Config configures the chromem index.
type Config struct {
	// Path is the persistence directory. Empty keeps everything in memory.
	Path string
	// Compress gzip-compresses persisted documents.
	Compress bool
	// Collection name, DefaultCollection when empty.
	Collection string
}

// Index stores versions in a chromem collection.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	vectorizer *embedding.HashingVectorizer
	logger     *zap.Logger
}

// Open opens or creates the chromem database and collection.
func Open(cfg Config, vectorizer *embedding.HashingVectorizer, logger *zap.Logger) (*Index, error) {
	if vectorizer == nil {
		return nil, errors.New("vectorizer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	var db *chromem.DB
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		path, err := expandPath(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("expanding path: %w", err)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", path, err)
		}
		db, err = chromem.NewPersistentDB(path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, embedding.Func(vectorizer))
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", cfg.Collection, err)
	}

	logger.Info("chromem index opened",
		zap.String("path", cfg.Path),
		zap.String("collection", cfg.Collection),
		zap.Int("documents", collection.Count()),
		zap.Int("dimension", vectorizer.Dimension()),
	)
	return &Index{db: db, collection: collection, vectorizer: vectorizer, logger: logger}, nil
}

// Add stores doc with a precomputed lexical vector. Re-adding an ID replaces it.
func (s *Index) Add(ctx context.Context, doc domain.IndexedDocument) error {
	if doc.ID == "" {
		return errors.New("document id is required")
	}
	err := s.collection.AddDocument(ctx, chromem.Document{
		ID:        doc.ID,
		Content:   doc.Text,
		Metadata:  copyMetadata(doc.Metadata),
		Embedding: s.vectorizer.Vectorize(doc.Text),
	})
	if err != nil {
		return fmt.Errorf("adding document %s: %w", doc.ID, err)
	}
	return nil
}

// Query returns up to topN documents by cosine similarity of term vectors.
// A query without indexable words matches nothing.
func (s *Index) Query(ctx context.Context, text string, topN int) ([]domain.IndexedDocument, error) {
	if topN <= 0 {
		topN = 5
	}
	count := s.collection.Count()
	if count == 0 || s.vectorizer.Empty(text) {
		return []domain.IndexedDocument{}, nil
	}
	// chromem requires nResults <= document count
	if topN > count {
		topN = count
	}
	results, err := s.collection.Query(ctx, text, topN, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", s.collection.Name, err)
	}
	docs := make([]domain.IndexedDocument, len(results))
	for i, r := range results {
		docs[i] = domain.IndexedDocument{ID: r.ID, Text: r.Content, Metadata: copyMetadata(r.Metadata)}
	}
	s.logger.Debug("searched chromem collection",
		zap.Int("k", topN),
		zap.Int("results", len(docs)),
	)
	return docs, nil
}

// Get returns the document stored under id.
func (s *Index) Get(ctx context.Context, id string) (domain.IndexedDocument, bool, error) {
	if id == "" {
		return domain.IndexedDocument{}, false, nil
	}
	if s.collection.Count() == 0 {
		return domain.IndexedDocument{}, false, nil
	}
	doc, err := s.collection.GetByID(ctx, id)
	if err != nil {
		if isNotFound(id, err) {
			return domain.IndexedDocument{}, false, nil
		}
		return domain.IndexedDocument{}, false, fmt.Errorf("getting document %s: %w", id, err)
	}
	return domain.IndexedDocument{ID: doc.ID, Text: doc.Content, Metadata: copyMetadata(doc.Metadata)}, true, nil
}

// Count returns the number of stored documents.
func (s *Index) Count(_ context.Context) (int, error) { return s.collection.Count(), nil }

// Close is a no-op; chromem persists on every write.
func (s *Index) Close() error { return nil }

// isNotFound reports whether err is chromem's error for an absent ID.
func isNotFound(id string, err error) bool {
	return err.Error() == fmt.Sprintf("document with ID '%v' not found", id)
}

func copyMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
