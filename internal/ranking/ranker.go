// Package ranking selects the best candidate for a query under a named
// ranking policy.
package ranking

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"versionrank/internal/domain"
)

// NoDocumentsFound is returned by SelectBest in place of a text when
// retrieval yields no candidates.
const NoDocumentsFound = "No documents found."

// Retriever supplies candidate texts for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, n int) ([]string, error)
}

// Ranker reranks retrieved candidates. It has no side effects.
type Ranker struct {
	retriever Retriever
	logger    *zap.Logger
}

// NewRanker creates a Ranker over retriever.
func NewRanker(retriever Retriever, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{retriever: retriever, logger: logger}
}

// Rank retrieves up to n candidates and orders them by policy score, highest
// first. Equal scores keep retrieval order.
func (r *Ranker) Rank(ctx context.Context, query string, n int, policy domain.RankingPolicy) ([]domain.ScoredCandidate, error) {
	if policy == nil {
		return nil, errors.New("ranking policy is required")
	}
	candidates, err := r.retriever.Retrieve(ctx, query, n)
	if err != nil {
		return nil, err
	}
	scored := Score(query, candidates, policy)
	r.logger.Debug("ranked candidates",
		zap.String("policy", policy.Name()),
		zap.Int("candidates", len(scored)),
	)
	return scored, nil
}

// SelectBest returns the top-ranked candidate text, or NoDocumentsFound.
func (r *Ranker) SelectBest(ctx context.Context, query string, n int, policy domain.RankingPolicy) (string, error) {
	scored, err := r.Rank(ctx, query, n, policy)
	if err != nil {
		return "", err
	}
	return Best(scored), nil
}

// Score scores candidates under policy and stable-sorts them by score descending.
func Score(query string, candidates []string, policy domain.RankingPolicy) []domain.ScoredCandidate {
	scored := make([]domain.ScoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = domain.ScoredCandidate{Text: c, Score: policy.Score(query, c), Rank: i}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored
}

// Best returns the first candidate's text, or NoDocumentsFound when empty.
func Best(scored []domain.ScoredCandidate) string {
	if len(scored) == 0 {
		return NoDocumentsFound
	}
	return scored[0].Text
}
