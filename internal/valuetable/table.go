// Package valuetable keeps the learned (query, candidate) values that feedback
// updates and the learned ranking policy reads.
//
// The table lives in memory for the life of the process. Every update is
// written through to its Storage by rewriting the whole table.
package valuetable

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"go.uber.org/zap"
)

const (
	// DefaultAlpha is the step size of the update rule.
	DefaultAlpha = 0.5

	// RewardRelevant is the reward for a candidate judged relevant.
	RewardRelevant = 1.0
	// RewardNotRelevant is the reward for a candidate judged not relevant.
	RewardNotRelevant = -1.0
)

var (
	// ErrInvalidAlpha is returned for a step size outside (0, 1].
	ErrInvalidAlpha = errors.New("alpha must be in (0, 1]")
	// ErrInvalidReward is returned for a NaN or infinite reward.
	ErrInvalidReward = errors.New("reward must be finite")
	// ErrMalformedState is returned when persisted values cannot be decoded.
	ErrMalformedState = errors.New("malformed value table state")
)

// Values maps query -> candidate -> learned value.
type Values map[string]map[string]float64

// Storage is the durable medium behind a Table.
type Storage interface {
	// Load returns the persisted values, or an empty map if nothing was persisted yet.
	Load() (Values, error)
	// Save replaces the persisted values with v.
	Save(v Values) error
	// Location describes where values are kept, for diagnostics.
	Location() string
}

// Table is the in-memory authoritative copy of the learned values.
type Table struct {
	mu      sync.Mutex
	values  Values
	storage Storage
	alpha   float64
	logger  *zap.Logger
}

// Option configures a Table.
type Option func(*Table)

// WithAlpha sets the step size used by UpdateDefault.
func WithAlpha(alpha float64) Option {
	return func(t *Table) { t.alpha = alpha }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Table) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// Open loads the table from storage, starting empty when nothing was persisted.
func Open(storage Storage, opts ...Option) (*Table, error) {
	if storage == nil {
		return nil, errors.New("value table storage is required")
	}
	t := &Table{
		storage: storage,
		alpha:   DefaultAlpha,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if err := validateAlpha(t.alpha); err != nil {
		return nil, err
	}
	values, err := storage.Load()
	if err != nil {
		return nil, fmt.Errorf("loading value table from %s: %w", storage.Location(), err)
	}
	if values == nil {
		values = Values{}
	}
	t.values = values
	t.logger.Debug("value table loaded",
		zap.String("location", storage.Location()),
		zap.Int("queries", len(values)),
	)
	return t, nil
}

// Get returns the learned value for (query, candidate), 0 when unseen.
func (t *Table) Get(query, candidate string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.values[query][candidate]
}

// Alpha returns the step size used by UpdateDefault.
func (t *Table) Alpha() float64 { return t.alpha }

// Update moves the value for (query, candidate) toward reward by alpha and
// persists the whole table. A persistence error leaves the in-memory value
// updated; memory and storage then disagree until the next successful save.
func (t *Table) Update(query, candidate string, reward, alpha float64) error {
	if err := validateAlpha(alpha); err != nil {
		return err
	}
	if math.IsNaN(reward) || math.IsInf(reward, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidReward, reward)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.values[query]
	if !ok {
		row = make(map[string]float64)
		t.values[query] = row
	}
	old := row[candidate]
	row[candidate] = old + alpha*(reward-old)

	t.logger.Debug("value updated",
		zap.String("query", query),
		zap.Float64("reward", reward),
		zap.Float64("old", old),
		zap.Float64("new", row[candidate]),
	)

	if err := t.storage.Save(t.values); err != nil {
		return fmt.Errorf("persisting value table to %s: %w", t.storage.Location(), err)
	}
	return nil
}

// UpdateDefault is Update with the table's configured alpha.
func (t *Table) UpdateDefault(query, candidate string, reward float64) error {
	return t.Update(query, candidate, reward, t.alpha)
}

// Snapshot returns a deep copy of the current values.
func (t *Table) Snapshot() Values {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(Values, len(t.values))
	for q, row := range t.values {
		cp := make(map[string]float64, len(row))
		for c, v := range row {
			cp[c] = v
		}
		out[q] = cp
	}
	return out
}

// Len returns the number of stored (query, candidate) entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, row := range t.values {
		n += len(row)
	}
	return n
}

// Close releases the storage if it holds open resources.
func (t *Table) Close() error {
	if c, ok := t.storage.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func validateAlpha(alpha float64) error {
	if !(alpha > 0 && alpha <= 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidAlpha, alpha)
	}
	return nil
}
