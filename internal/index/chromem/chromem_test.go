package chromem

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"versionrank/internal/domain"
	"versionrank/internal/embedding"
)

func newTestIndex(t *testing.T, path string) *Index {
	t.Helper()
	idx, err := Open(Config{Path: path}, embedding.NewHashingVectorizer(embedding.DefaultDimension), nil)
	require.NoError(t, err)
	return idx
}

func seed(t *testing.T, idx *Index) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, domain.IndexedDocument{
		ID: "v1", Text: "The chief betrayed his people",
		Metadata: map[string]string{"filename": "v1.txt"},
	}))
	require.NoError(t, idx.Add(ctx, domain.IndexedDocument{
		ID: "v2", Text: "A quiet morning by the sea",
		Metadata: map[string]string{"filename": "v2.txt"},
	}))
}

func TestQueryRanksLexicalMatchFirst(t *testing.T) {
	idx := newTestIndex(t, "")
	seed(t, idx)

	got, err := idx.Query(context.Background(), "betrayal chief", 5)
	require.NoError(t, err)
	require.Len(t, got, 2, "topN is capped at the document count")
	assert.Equal(t, "v1", got[0].ID)
	assert.Equal(t, "The chief betrayed his people", got[0].Text)
	assert.Equal(t, "v1.txt", got[0].Metadata["filename"])
}

func TestQueryEmptyCases(t *testing.T) {
	idx := newTestIndex(t, "")
	got, err := idx.Query(context.Background(), "chief", 3)
	require.NoError(t, err)
	assert.Empty(t, got)

	seed(t, idx)
	got, err = idx.Query(context.Background(), "the of and", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetAndOverwrite(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, "")
	seed(t, idx)

	require.NoError(t, idx.Add(ctx, domain.IndexedDocument{ID: "v2", Text: "A stormy evening"}))
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	doc, ok, err := idx.Get(ctx, "v2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A stormy evening", doc.Text)

	_, ok, err = idx.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetOnEmptyIndex(t *testing.T) {
	_, ok, err := newTestIndex(t, "").Get(context.Background(), "v1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound("v7", errors.New("document with ID 'v7' not found")))
	assert.False(t, isNotFound("v7", errors.New("document with ID 'v8' not found")))
	assert.False(t, isNotFound("", errors.New("document ID is empty")))
	assert.False(t, isNotFound("v7", errors.New("disk failure")))
}

func TestPersistentIndexReopens(t *testing.T) {
	dir := t.TempDir()
	idx := newTestIndex(t, dir)
	seed(t, idx)
	require.NoError(t, idx.Close())

	reopened := newTestIndex(t, dir)
	n, err := reopened.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
