package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"versionrank/internal/domain"
	"versionrank/internal/feedback"
	"versionrank/internal/ranking"
	"versionrank/internal/valuetable"
	"versionrank/internal/versionstore"
)

const (
	// DefaultTopN is how many candidates are retrieved per query.
	DefaultTopN = 3
	// DefaultPreviewSentences bounds the preview summary.
	DefaultPreviewSentences = 3

	timestampLayout = "20060102_150405"
)

var (
	// ErrNoDocuments is returned by Ingest when no .txt file matched.
	ErrNoDocuments = errors.New("no .txt documents found")
	// ErrNoRewriter is returned by RewriteAndStore when no rewriter is configured.
	ErrNoRewriter = errors.New("no rewriter configured")
	// ErrEmptyText is returned when an accepted version has no content.
	ErrEmptyText = errors.New("version text is empty")
)

// Selection is the outcome of one search.
type Selection struct {
	Query      string
	Text       string
	Policy     string
	Candidates []domain.ScoredCandidate
	Preview    string
}

// Found reports whether a version was selected.
func (s Selection) Found() bool { return s.Text != ranking.NoDocumentsFound }

// Deps are the collaborators of a Service. Store and Values are required.
type Deps struct {
	Store      *versionstore.Store
	Values     *valuetable.Table
	Judge      domain.JudgmentSource
	Rewriter   domain.Rewriter
	Summarizer domain.Summarizer
	Logger     *zap.Logger
}

// Options tune a Service.
type Options struct {
	TopN             int
	Policy           string
	BlendWeight      float64
	VersionsDir      string
	PreviewSentences int
	Now              func() time.Time
}

// Service ties retrieval, ranking, feedback and the rewrite pipeline together.
type Service struct {
	store      *versionstore.Store
	values     *valuetable.Table
	ranker     *ranking.Ranker
	loop       *feedback.Loop
	rewriter   domain.Rewriter
	summarizer domain.Summarizer
	policy     domain.RankingPolicy
	opts       Options
	logger     *zap.Logger
}

// New validates the options and assembles a Service.
func New(deps Deps, opts Options) (*Service, error) {
	if deps.Store == nil || deps.Values == nil {
		return nil, errors.New("service requires a version store and a value table")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Policy == "" {
		opts.Policy = ranking.PolicyLearned
	}
	if opts.PreviewSentences <= 0 {
		opts.PreviewSentences = DefaultPreviewSentences
	}
	if opts.VersionsDir == "" {
		opts.VersionsDir = "."
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	policy, err := ranking.PolicyByName(opts.Policy, deps.Values, opts.BlendWeight)
	if err != nil {
		return nil, err
	}
	return &Service{
		store:      deps.Store,
		values:     deps.Values,
		ranker:     ranking.NewRanker(deps.Store, logger),
		loop:       feedback.NewLoop(deps.Values, deps.Judge, logger),
		rewriter:   deps.Rewriter,
		summarizer: deps.Summarizer,
		policy:     policy,
		opts:       opts,
		logger:     logger,
	}, nil
}

// Policy returns the name of the default ranking policy.
func (s *Service) Policy() string { return s.policy.Name() }

// Ingest adds every .txt file matched by paths (globs allowed) as a version.
func (s *Service) Ingest(ctx context.Context, paths []string) ([]domain.DocumentVersion, error) {
	var files []string
	for _, p := range paths {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			if strings.HasSuffix(strings.ToLower(m), ".txt") {
				files = append(files, m)
			}
		}
	}
	if len(files) == 0 {
		return nil, ErrNoDocuments
	}
	out := make([]domain.DocumentVersion, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return out, err
		}
		v, err := s.store.AddVersion(ctx, string(data), filepath.Base(f))
		if err != nil {
			return out, fmt.Errorf("adding %s: %w", f, err)
		}
		out = append(out, v)
	}
	s.logger.Info("ingested versions", zap.Int("count", len(out)))
	return out, nil
}

// Search ranks versions for query under the default policy.
func (s *Service) Search(ctx context.Context, query string) (Selection, error) {
	return s.search(ctx, query, s.policy)
}

// SearchWithPolicy ranks versions for query under the named policy.
func (s *Service) SearchWithPolicy(ctx context.Context, query, policy string) (Selection, error) {
	p, err := ranking.PolicyByName(policy, s.values, s.opts.BlendWeight)
	if err != nil {
		return Selection{}, err
	}
	return s.search(ctx, query, p)
}

func (s *Service) search(ctx context.Context, query string, policy domain.RankingPolicy) (Selection, error) {
	scored, err := s.ranker.Rank(ctx, query, s.opts.TopN, policy)
	if err != nil {
		return Selection{}, err
	}
	sel := Selection{
		Query:      query,
		Text:       ranking.Best(scored),
		Policy:     policy.Name(),
		Candidates: scored,
	}
	if sel.Found() && s.summarizer != nil {
		preview, err := s.summarizer.Summarize(sel.Text, s.opts.PreviewSentences)
		if err != nil {
			s.logger.Warn("preview failed", zap.Error(err))
		} else {
			sel.Preview = preview
		}
	}
	return sel, nil
}

// Feedback records an explicit judgment for a shown version.
func (s *Service) Feedback(query, chosen string, isRelevant bool) error {
	return s.loop.RecordFeedback(query, chosen, isRelevant)
}

// Review asks the judge about a selection and records the answer.
func (s *Service) Review(ctx context.Context, sel Selection) (bool, error) {
	if !sel.Found() {
		return false, feedback.ErrNothingShown
	}
	return s.loop.Review(ctx, sel.Query, sel.Text)
}

// Values returns a copy of the learned table.
func (s *Service) Values() valuetable.Values { return s.values.Snapshot() }

// RewriteAndStore rewrites the text at inputPath and stores the result as
// final_<timestamp>.txt, or as outputName when given. An existing output file
// is reused without calling the rewriter; the bool result reports that.
func (s *Service) RewriteAndStore(ctx context.Context, inputPath, outputName string) (domain.DocumentVersion, bool, error) {
	if outputName == "" {
		outputName = "final_" + s.opts.Now().Format(timestampLayout) + ".txt"
	}
	outPath := filepath.Join(s.opts.VersionsDir, outputName)
	if data, err := os.ReadFile(outPath); err == nil {
		s.logger.Info("rewrite output exists, skipping rewrite", zap.String("path", outPath))
		v, err := s.store.AddVersion(ctx, string(data), outputName)
		return v, true, err
	} else if !errors.Is(err, os.ErrNotExist) {
		return domain.DocumentVersion{}, false, err
	}

	if s.rewriter == nil {
		return domain.DocumentVersion{}, false, ErrNoRewriter
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return domain.DocumentVersion{}, false, err
	}
	rewritten, err := s.rewriter.Rewrite(ctx, string(data))
	if err != nil {
		return domain.DocumentVersion{}, false, fmt.Errorf("%s rewrite: %w", s.rewriter.Name(), err)
	}
	if err := s.writeVersion(outPath, rewritten); err != nil {
		return domain.DocumentVersion{}, false, err
	}
	s.logger.Info("rewrote chapter",
		zap.String("rewriter", s.rewriter.Name()),
		zap.String("input", inputPath),
		zap.String("output", outPath))
	v, err := s.store.AddVersion(ctx, rewritten, outputName)
	return v, false, err
}

// AcceptVersion saves a human-approved text as edited_<timestamp>.txt, or as
// filename when given, and stores it.
func (s *Service) AcceptVersion(ctx context.Context, text, filename string) (domain.DocumentVersion, error) {
	if strings.TrimSpace(text) == "" {
		return domain.DocumentVersion{}, ErrEmptyText
	}
	if filename == "" {
		filename = "edited_" + s.opts.Now().Format(timestampLayout) + ".txt"
	}
	if err := s.writeVersion(filepath.Join(s.opts.VersionsDir, filename), text); err != nil {
		return domain.DocumentVersion{}, err
	}
	return s.store.AddVersion(ctx, text, filename)
}

func (s *Service) writeVersion(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}
