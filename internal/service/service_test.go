package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"versionrank/internal/domain"
	"versionrank/internal/feedback"
	"versionrank/internal/index/memory"
	"versionrank/internal/ranking"
	"versionrank/internal/summarizer"
	"versionrank/internal/valuetable"
	"versionrank/internal/versionstore"
)

const (
	chiefText = "The chief betrayed his people"
	seaText   = "A quiet morning by the sea"
)

var fixed = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

type fakeRewriter struct {
	calls int
	out   string
	err   error
}

func (f *fakeRewriter) Name() string { return "fake" }

func (f *fakeRewriter) Rewrite(_ context.Context, text string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.out != "" {
		return f.out, nil
	}
	return "Rewritten: " + text, nil
}

type fixture struct {
	svc      *Service
	table    *valuetable.Table
	store    *versionstore.Store
	dir      string
	rewriter *fakeRewriter
}

func newFixture(t *testing.T, judge domain.JudgmentSource, opts Options) *fixture {
	t.Helper()
	dir := t.TempDir()
	table, err := valuetable.Open(valuetable.NewFileStorage(filepath.Join(dir, "q_table.json")))
	require.NoError(t, err)
	store := versionstore.New(memory.NewIndex(), versionstore.WithClock(func() time.Time { return fixed }))
	rw := &fakeRewriter{}

	opts.VersionsDir = filepath.Join(dir, "versions")
	opts.Now = func() time.Time { return fixed }
	svc, err := New(Deps{
		Store:      store,
		Values:     table,
		Judge:      judge,
		Rewriter:   rw,
		Summarizer: summarizer.NewFrequencySummarizer(),
	}, opts)
	require.NoError(t, err)
	return &fixture{svc: svc, table: table, store: store, dir: dir, rewriter: rw}
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.store.AddVersion(ctx, chiefText, "v1.txt")
	require.NoError(t, err)
	_, err = f.store.AddVersion(ctx, seaText, "v2.txt")
	require.NoError(t, err)
}

func TestLexicalThenLearnedAfterFeedback(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Options{Policy: ranking.PolicyLexical})
	f.seed(t)

	sel, err := f.svc.Search(ctx, "betrayal chief")
	require.NoError(t, err)
	require.True(t, sel.Found())
	assert.Equal(t, chiefText, sel.Text)
	assert.Equal(t, ranking.PolicyLexical, sel.Policy)
	require.Len(t, sel.Candidates, 2)
	assert.Greater(t, sel.Candidates[0].Score, 0.0)
	assert.Equal(t, 0.0, sel.Candidates[1].Score)

	require.NoError(t, f.svc.Feedback("betrayal chief", sel.Text, true))

	learned, err := f.svc.SearchWithPolicy(ctx, "betrayal chief", ranking.PolicyLearned)
	require.NoError(t, err)
	assert.Equal(t, chiefText, learned.Text)
	assert.Equal(t, 0.5, f.table.Get("betrayal chief", chiefText))
	assert.Equal(t, 0.0, f.table.Get("betrayal chief", seaText))
}

func TestLearnedFeedbackFlipsRanking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Options{})
	f.seed(t)

	require.NoError(t, f.svc.Feedback("betrayal chief", chiefText, false))
	sel, err := f.svc.Search(ctx, "betrayal chief")
	require.NoError(t, err)
	assert.Equal(t, ranking.PolicyLearned, sel.Policy)
	assert.Equal(t, seaText, sel.Text)
}

func TestSearchEmptyStoreReturnsSentinel(t *testing.T) {
	f := newFixture(t, nil, Options{})
	sel, err := f.svc.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.False(t, sel.Found())
	assert.Equal(t, ranking.NoDocumentsFound, sel.Text)
	assert.Empty(t, sel.Preview)

	_, err = f.svc.Review(context.Background(), sel)
	assert.ErrorIs(t, err, feedback.ErrNothingShown)
}

func TestSearchUnknownPolicy(t *testing.T) {
	f := newFixture(t, nil, Options{})
	_, err := f.svc.SearchWithPolicy(context.Background(), "q", "random")
	assert.ErrorIs(t, err, ranking.ErrUnknownPolicy)
}

func TestNewRejectsUnknownPolicy(t *testing.T) {
	table, err := valuetable.Open(valuetable.NewFileStorage(filepath.Join(t.TempDir(), "q.json")))
	require.NoError(t, err)
	_, err = New(Deps{Store: versionstore.New(memory.NewIndex()), Values: table}, Options{Policy: "nope"})
	assert.ErrorIs(t, err, ranking.ErrUnknownPolicy)
}

func TestReviewRecordsJudgment(t *testing.T) {
	ctx := context.Background()
	judge := feedback.NewScriptedJudge(true)
	f := newFixture(t, judge, Options{Policy: ranking.PolicyLexical})
	f.seed(t)

	sel, err := f.svc.Search(ctx, "chief")
	require.NoError(t, err)
	assert.Equal(t, chiefText, sel.Preview)

	relevant, err := f.svc.Review(ctx, sel)
	require.NoError(t, err)
	assert.True(t, relevant)
	assert.Equal(t, []string{chiefText}, judge.Asked())
	assert.Equal(t, valuetable.Values{"chief": {chiefText: 0.5}}, f.svc.Values())
}

func TestIngestOnlyTextFiles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Options{})
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "v1.txt"), []byte(chiefText), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "v2.TXT"), []byte(seaText), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.md"), []byte("skip"), 0o644))

	versions, err := f.svc.Ingest(ctx, []string{filepath.Join(src, "*")})
	require.NoError(t, err)
	require.Len(t, versions, 2)

	n, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = f.svc.Ingest(ctx, []string{filepath.Join(src, "*.md")})
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestRewriteAndStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Options{})
	input := filepath.Join(f.dir, "chapter.txt")
	require.NoError(t, os.WriteFile(input, []byte("old chapter"), 0o644))

	v, cached, err := f.svc.RewriteAndStore(ctx, input, "")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "final_20250314_092653", v.ID)
	assert.Equal(t, "Rewritten: old chapter", v.Text)

	data, err := os.ReadFile(filepath.Join(f.dir, "versions", "final_20250314_092653.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Rewritten: old chapter", string(data))

	v, cached, err = f.svc.RewriteAndStore(ctx, input, "")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "Rewritten: old chapter", v.Text)
	assert.Equal(t, 1, f.rewriter.calls)
}

func TestRewriteFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Options{})
	f.rewriter.err = errors.New("quota exceeded")
	input := filepath.Join(f.dir, "chapter.txt")
	require.NoError(t, os.WriteFile(input, []byte("old"), 0o644))

	_, _, err := f.svc.RewriteAndStore(ctx, input, "out.txt")
	assert.ErrorContains(t, err, "quota exceeded")
	assert.NoFileExists(t, filepath.Join(f.dir, "versions", "out.txt"))

	n, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAcceptVersion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Options{})

	v, err := f.svc.AcceptVersion(ctx, "edited text", "")
	require.NoError(t, err)
	assert.Equal(t, "edited_20250314_092653", v.ID)
	assert.FileExists(t, filepath.Join(f.dir, "versions", "edited_20250314_092653.txt"))

	_, err = f.svc.AcceptVersion(ctx, "  ", "")
	assert.ErrorIs(t, err, ErrEmptyText)
}
