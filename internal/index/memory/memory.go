package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"versionrank/internal/domain"
	"versionrank/internal/similarity"
)

// Index is a simple in-process document index ranking by lexical overlap.
// Documents with equal scores keep their insertion order.
type Index struct {
	mu     sync.RWMutex
	docs   []domain.IndexedDocument
	byID   map[string]int
	closed bool
}

// NewIndex returns an empty index.
func NewIndex() *Index { return &Index{byID: make(map[string]int)} }

// Add stores doc, replacing any document with the same ID in place.
func (s *Index) Add(_ context.Context, doc domain.IndexedDocument) error {
	if doc.ID == "" {
		return errors.New("document id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("index is closed")
	}
	if i, ok := s.byID[doc.ID]; ok {
		s.docs[i] = doc
		return nil
	}
	s.byID[doc.ID] = len(s.docs)
	s.docs = append(s.docs, doc)
	return nil
}

// Query returns up to topN documents, best lexical overlap first.
func (s *Index) Query(_ context.Context, text string, topN int) ([]domain.IndexedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errors.New("index is closed")
	}
	if topN <= 0 {
		topN = 5
	}
	scores := make([]float64, len(s.docs))
	for i := range s.docs {
		scores[i] = similarity.Score(text, s.docs[i].Text)
	}
	idxs := argsortDesc(scores)
	if topN > len(idxs) {
		topN = len(idxs)
	}
	results := make([]domain.IndexedDocument, 0, topN)
	for i := 0; i < topN; i++ {
		results = append(results, s.docs[idxs[i]])
	}
	return results, nil
}

// Get returns the document stored under id.
func (s *Index) Get(_ context.Context, id string) (domain.IndexedDocument, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return domain.IndexedDocument{}, false, nil
	}
	return s.docs[i], true, nil
}

// Count returns the number of stored documents.
func (s *Index) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

// Close drops all documents.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = nil
	s.byID = nil
	s.closed = true
	return nil
}

func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return vals[idxs[a]] > vals[idxs[b]] })
	return idxs
}
