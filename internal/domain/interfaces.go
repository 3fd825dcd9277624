package domain

import (
	"context"
	"time"
)

// DocumentVersion is one accepted text version of a document.
type DocumentVersion struct {
	ID        string
	Text      string
	Filename  string
	CreatedAt time.Time
}

// IndexedDocument is what a document index stores and returns.
type IndexedDocument struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// ScoredCandidate is a retrieved candidate text with its policy score.
// Rank is the candidate's position in the retrieval order.
type ScoredCandidate struct {
	Text  string
	Score float64
	Rank  int
}

// Index stores document texts and answers nearest-match queries.
// Query returns at most topN documents in the index's own relevance order.
type Index interface {
	Add(ctx context.Context, doc IndexedDocument) error
	Query(ctx context.Context, text string, topN int) ([]IndexedDocument, error)
	Get(ctx context.Context, id string) (IndexedDocument, bool, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Scorer scores the textual overlap between a query and a candidate.
type Scorer interface {
	Score(query, candidate string) float64
}

// ValueStore holds learned per-(query, candidate) values.
type ValueStore interface {
	Get(query, candidate string) float64
	UpdateDefault(query, candidate string, reward float64) error
}

// RankingPolicy assigns a score to a candidate for a query.
type RankingPolicy interface {
	Name() string
	Score(query, candidate string) float64
}

// JudgmentSource supplies a binary relevance judgment for a shown candidate.
type JudgmentSource interface {
	RequestJudgment(ctx context.Context, query, candidate string) (bool, error)
}

// Rewriter produces a rewritten version of a text.
type Rewriter interface {
	Name() string
	Rewrite(ctx context.Context, text string) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
