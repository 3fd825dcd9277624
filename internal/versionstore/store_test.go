package versionstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"versionrank/internal/domain"
	"versionrank/internal/index/memory"
)

var fixed = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func newStore(opts ...Option) *Store {
	opts = append([]Option{WithClock(func() time.Time { return fixed })}, opts...)
	return New(memory.NewIndex(), opts...)
}

func TestVersionID(t *testing.T) {
	tests := map[string]string{
		"final_20250314_092653.txt": "final_20250314_092653",
		"dir/edited_1.txt":          "edited_1",
		"v1":                        "v1",
		"archive.tar.gz":            "archive.tar",
		"":                          "",
		"  ":                        "",
	}
	for in, want := range tests {
		assert.Equal(t, want, VersionID(in), "input %q", in)
	}
}

func TestAddVersionRecordsMetadata(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	v, err := s.AddVersion(ctx, "The chief betrayed his people", "v1.txt")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentVersion{
		ID: "v1", Text: "The chief betrayed his people", Filename: "v1.txt", CreatedAt: fixed,
	}, v)

	got, ok, err := s.Get(ctx, "v1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, v, got)
}

func TestAddVersionInvalidFilename(t *testing.T) {
	_, err := newStore().AddVersion(context.Background(), "text", "")
	assert.ErrorIs(t, err, ErrInvalidFilename)
}

func TestDuplicatePolicies(t *testing.T) {
	ctx := context.Background()

	over := newStore()
	_, err := over.AddVersion(ctx, "first", "v1.txt")
	require.NoError(t, err)
	_, err = over.AddVersion(ctx, "second", "v1.txt")
	require.NoError(t, err)
	got, _, err := over.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Text)
	n, err := over.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rej := newStore(WithDuplicatePolicy(Reject))
	_, err = rej.AddVersion(ctx, "first", "v1.txt")
	require.NoError(t, err)
	_, err = rej.AddVersion(ctx, "second", "v1.txt")
	assert.ErrorIs(t, err, ErrVersionExists)
	got, _, err = rej.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Text)
}

func TestParseDuplicatePolicy(t *testing.T) {
	p, err := ParseDuplicatePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Overwrite, p)

	p, err = ParseDuplicatePolicy(" Reject ")
	require.NoError(t, err)
	assert.Equal(t, Reject, p)

	_, err = ParseDuplicatePolicy("version")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	got, err := s.Retrieve(ctx, "betrayal chief", 3)
	require.NoError(t, err)
	assert.Empty(t, got, "an empty index is not an error")

	_, err = s.AddVersion(ctx, "The chief betrayed his people", "v1.txt")
	require.NoError(t, err)
	_, err = s.AddVersion(ctx, "A quiet morning by the sea", "v2.txt")
	require.NoError(t, err)

	got, err = s.Retrieve(ctx, "betrayal chief", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"The chief betrayed his people", "A quiet morning by the sea"}, got)

	got, err = s.Retrieve(ctx, "betrayal chief", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = s.Retrieve(ctx, "x", 0)
	assert.ErrorIs(t, err, ErrInvalidN)
}

type failingIndex struct{ *memory.Index }

func (failingIndex) Query(context.Context, string, int) ([]domain.IndexedDocument, error) {
	return nil, errors.New("index offline")
}

func TestRetrievePropagatesIndexErrors(t *testing.T) {
	s := New(failingIndex{memory.NewIndex()})
	_, err := s.Retrieve(context.Background(), "x", 1)
	assert.ErrorContains(t, err, "index offline")
}
