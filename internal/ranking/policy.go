package ranking

import (
	"errors"
	"fmt"
	"strings"

	"versionrank/internal/domain"
	"versionrank/internal/similarity"
)

// Policy names accepted by PolicyByName.
const (
	PolicyLearned = "learned"
	PolicyLexical = "lexical"
	PolicyBlend   = "blend"
)

// DefaultBlendWeight is the weight of the learned value in the blend policy.
const DefaultBlendWeight = 0.5

var (
	ErrUnknownPolicy = errors.New("unknown ranking policy")
	ErrInvalidWeight = errors.New("blend weight must be in [0, 1]")
)

// LearnedPolicy scores a candidate by its learned value.
type LearnedPolicy struct {
	Values domain.ValueStore
}

func (LearnedPolicy) Name() string { return PolicyLearned }

func (p LearnedPolicy) Score(query, candidate string) float64 {
	return p.Values.Get(query, candidate)
}

// LexicalPolicy scores a candidate by lexical similarity to the query.
type LexicalPolicy struct {
	Scorer domain.Scorer
}

func (LexicalPolicy) Name() string { return PolicyLexical }

func (p LexicalPolicy) Score(query, candidate string) float64 {
	if p.Scorer == nil {
		return similarity.Score(query, candidate)
	}
	return p.Scorer.Score(query, candidate)
}

// BlendPolicy mixes both signals: Weight*learned + (1-Weight)*lexical.
type BlendPolicy struct {
	Learned LearnedPolicy
	Lexical LexicalPolicy
	Weight  float64
}

func (BlendPolicy) Name() string { return PolicyBlend }

func (p BlendPolicy) Score(query, candidate string) float64 {
	return p.Weight*p.Learned.Score(query, candidate) + (1-p.Weight)*p.Lexical.Score(query, candidate)
}

// PolicyByName builds the named policy. weight is used only by the blend policy.
func PolicyByName(name string, values domain.ValueStore, weight float64) (domain.RankingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PolicyLearned:
		return LearnedPolicy{Values: values}, nil
	case PolicyLexical:
		return LexicalPolicy{Scorer: similarity.NewScorer()}, nil
	case PolicyBlend:
		if weight < 0 || weight > 1 {
			return nil, fmt.Errorf("%w: got %v", ErrInvalidWeight, weight)
		}
		return BlendPolicy{
			Learned: LearnedPolicy{Values: values},
			Lexical: LexicalPolicy{Scorer: similarity.NewScorer()},
			Weight:  weight,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want %s, %s or %s)", ErrUnknownPolicy, name, PolicyLearned, PolicyLexical, PolicyBlend)
	}
}
