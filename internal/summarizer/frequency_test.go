package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chapter = "The chief betrayed his people. Rain fell on the village. " +
	"The people remembered the betrayal of the chief for years. Nobody spoke."

func TestSummarizeKeepsOriginalOrder(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize(chapter, 2)
	require.NoError(t, err)
	assert.Equal(t, "The chief betrayed his people. The people remembered the betrayal of the chief for years.", got)
}

func TestSummarizeWithoutPunctuation(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize("  no sentence end here ", 2)
	require.NoError(t, err)
	assert.Equal(t, "no sentence end here", got)
}

func TestSummarizeLimitLargerThanText(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize("One. Two!", 10)
	require.NoError(t, err)
	assert.Equal(t, "One. Two!", got)
}
