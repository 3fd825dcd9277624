// Package versionstore registers accepted document versions in a document
// index and retrieves candidate texts for a query.
package versionstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"versionrank/internal/domain"
)

// Metadata keys written alongside each version.
const (
	MetaFilename  = "filename"
	MetaCreatedAt = "created_at"
)

// DuplicatePolicy decides what AddVersion does when the derived ID already exists.
type DuplicatePolicy string

const (
	// Overwrite replaces the stored version.
	Overwrite DuplicatePolicy = "overwrite"
	// Reject refuses the new version with ErrVersionExists.
	Reject DuplicatePolicy = "reject"
)

var (
	ErrVersionExists   = errors.New("version already exists")
	ErrInvalidFilename = errors.New("filename does not yield a version id")
	ErrInvalidN        = errors.New("n must be at least 1")
	ErrUnknownPolicy   = errors.New("unknown duplicate policy")
)

// ParseDuplicatePolicy maps a configuration value to a policy. Empty means Overwrite.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Overwrite:
		return Overwrite, nil
	case Reject:
		return Reject, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Store is the append-only registry of document versions.
type Store struct {
	index     domain.Index
	duplicate DuplicatePolicy
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithDuplicatePolicy sets the policy for re-added IDs.
func WithDuplicatePolicy(p DuplicatePolicy) Option { return func(s *Store) { s.duplicate = p } }

// WithClock sets the time source for CreatedAt.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Store over index.
func New(index domain.Index, opts ...Option) *Store {
	s := &Store{index: index, duplicate: Overwrite, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VersionID derives a version ID from a filename: its base name without extension.
func VersionID(filename string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// AddVersion stores text as a new version named after filename.
func (s *Store) AddVersion(ctx context.Context, text, filename string) (domain.DocumentVersion, error) {
	id := VersionID(filename)
	if id == "" {
		return domain.DocumentVersion{}, fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	_, exists, err := s.index.Get(ctx, id)
	if err != nil {
		return domain.DocumentVersion{}, fmt.Errorf("checking version %s: %w", id, err)
	}
	if exists {
		if s.duplicate == Reject {
			return domain.DocumentVersion{}, fmt.Errorf("%w: %s", ErrVersionExists, id)
		}
		s.logger.Warn("overwriting existing version", zap.String("id", id))
	}

	v := domain.DocumentVersion{
		ID:        id,
		Text:      text,
		Filename:  filename,
		CreatedAt: s.now(),
	}
	doc := domain.IndexedDocument{
		ID:   v.ID,
		Text: v.Text,
		Metadata: map[string]string{
			MetaFilename:  v.Filename,
			MetaCreatedAt: v.CreatedAt.Format(time.RFC3339Nano),
		},
	}
	if err := s.index.Add(ctx, doc); err != nil {
		return domain.DocumentVersion{}, fmt.Errorf("storing version %s: %w", id, err)
	}
	s.logger.Info("version added",
		zap.String("id", v.ID),
		zap.String("filename", v.Filename),
		zap.Int("bytes", len(v.Text)),
	)
	return v, nil
}

// Retrieve returns up to n candidate texts for query in the index's relevance order.
func (s *Store) Retrieve(ctx context.Context, query string, n int) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidN, n)
	}
	docs, err := s.index.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("retrieving candidates: %w", err)
	}
	if len(docs) > n {
		docs = docs[:n]
	}
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Text
	}
	return out, nil
}

// Get returns the stored version with id.
func (s *Store) Get(ctx context.Context, id string) (domain.DocumentVersion, bool, error) {
	doc, ok, err := s.index.Get(ctx, id)
	if err != nil || !ok {
		return domain.DocumentVersion{}, ok, err
	}
	v := domain.DocumentVersion{ID: doc.ID, Text: doc.Text, Filename: doc.Metadata[MetaFilename]}
	if ts := doc.Metadata[MetaCreatedAt]; ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			v.CreatedAt = t
		}
	}
	return v, true, nil
}

// Count returns the number of stored versions.
func (s *Store) Count(ctx context.Context) (int, error) { return s.index.Count(ctx) }
