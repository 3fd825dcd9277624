// Package feedback turns binary relevance judgments into learned-value updates.
package feedback

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"versionrank/internal/domain"
	"versionrank/internal/ranking"
	"versionrank/internal/valuetable"
)

// ErrNothingShown is returned when feedback targets the no-documents sentinel.
var ErrNothingShown = errors.New("no candidate was shown")

// Loop is the only writer of learned values.
type Loop struct {
	values domain.ValueStore
	judge  domain.JudgmentSource
	logger *zap.Logger
}

// NewLoop creates a feedback loop. judge may be nil when only RecordFeedback is used.
func NewLoop(values domain.ValueStore, judge domain.JudgmentSource, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{values: values, judge: judge, logger: logger}
}

// Reward maps a judgment to the update reward.
func Reward(isRelevant bool) float64 {
	if isRelevant {
		return valuetable.RewardRelevant
	}
	return valuetable.RewardNotRelevant
}

// RecordFeedback applies the judgment for chosen under query.
func (l *Loop) RecordFeedback(query, chosen string, isRelevant bool) error {
	if chosen == ranking.NoDocumentsFound {
		return ErrNothingShown
	}
	if err := l.values.UpdateDefault(query, chosen, Reward(isRelevant)); err != nil {
		return err
	}
	l.logger.Info("feedback recorded",
		zap.String("query", query),
		zap.Bool("relevant", isRelevant),
		zap.Float64("value", l.values.Get(query, chosen)),
	)
	return nil
}

// Review asks the judgment source about chosen and records the answer.
func (l *Loop) Review(ctx context.Context, query, chosen string) (bool, error) {
	if l.judge == nil {
		return false, errors.New("no judgment source configured")
	}
	if chosen == ranking.NoDocumentsFound {
		return false, ErrNothingShown
	}
	relevant, err := l.judge.RequestJudgment(ctx, query, chosen)
	if err != nil {
		return false, fmt.Errorf("requesting judgment: %w", err)
	}
	return relevant, l.RecordFeedback(query, chosen, relevant)
}
