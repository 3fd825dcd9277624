// Package bleve provides a persistent full-text document index backed by Bleve.
package bleve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/whitespace"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	"go.uber.org/zap"

	"versionrank/internal/domain"
)

const (
	// AnalyzerName is the analyzer applied to version text: whitespace
	// tokens, lower-cased.
	AnalyzerName = "version_text"

	textField = "text"
	metaField = "meta"
)

// Index wraps a Bleve index of document versions.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
	logger *zap.Logger
}

// Open opens the index at path, creating it when missing.
// An empty path creates an in-memory index.
func Open(path string, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		idx, err = bleve.Open(path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			logger.Info("creating bleve index", zap.String("path", path))
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index %s: %w", path, err)
	}
	return &Index{index: idx, path: path, logger: logger}, nil
}

func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()
	err := indexMapping.AddCustomAnalyzer(AnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     whitespace.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}
	indexMapping.DefaultAnalyzer = AnalyzerName
	return indexMapping, nil
}

// Add indexes doc under its ID, replacing any previous document with that ID.
func (b *Index) Add(_ context.Context, doc domain.IndexedDocument) error {
	if doc.ID == "" {
		return errors.New("document id is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("index is closed")
	}
	if err := b.index.Index(doc.ID, toFields(doc)); err != nil {
		return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
	}
	return nil
}

// Query returns up to topN documents matching text, best match first.
func (b *Index) Query(ctx context.Context, text string, topN int) ([]domain.IndexedDocument, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if strings.TrimSpace(text) == "" {
		return []domain.IndexedDocument{}, nil
	}
	if topN <= 0 {
		topN = 5
	}

	matchQuery := bleve.NewMatchQuery(text)
	matchQuery.SetField(textField)
	req := bleve.NewSearchRequest(matchQuery)
	req.Size = topN
	req.Fields = []string{"*"}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	docs := make([]domain.IndexedDocument, 0, len(result.Hits))
	for _, hit := range result.Hits {
		docs = append(docs, fromHit(hit))
	}
	b.logger.Debug("bleve query",
		zap.Int("top_n", topN),
		zap.Int("hits", len(docs)),
		zap.Uint64("total", result.Total),
	)
	return docs, nil
}

// Get returns the document stored under id.
func (b *Index) Get(ctx context.Context, id string) (domain.IndexedDocument, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return domain.IndexedDocument{}, false, fmt.Errorf("index is closed")
	}
	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{id}))
	req.Size = 1
	req.Fields = []string{"*"}
	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return domain.IndexedDocument{}, false, fmt.Errorf("lookup of %s failed: %w", id, err)
	}
	if len(result.Hits) == 0 {
		return domain.IndexedDocument{}, false, nil
	}
	return fromHit(result.Hits[0]), true, nil
}

// Count returns the number of indexed documents.
func (b *Index) Count(_ context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, fmt.Errorf("index is closed")
	}
	n, err := b.index.DocCount()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close closes the index.
func (b *Index) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

func toFields(doc domain.IndexedDocument) map[string]interface{} {
	meta := make(map[string]interface{}, len(doc.Metadata))
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	return map[string]interface{}{
		textField: doc.Text,
		metaField: meta,
	}
}

func fromHit(hit *search.DocumentMatch) domain.IndexedDocument {
	doc := domain.IndexedDocument{ID: hit.ID, Metadata: map[string]string{}}
	for name, v := range hit.Fields {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch {
		case name == textField:
			doc.Text = s
		case strings.HasPrefix(name, metaField+"."):
			doc.Metadata[strings.TrimPrefix(name, metaField+".")] = s
		}
	}
	return doc
}
