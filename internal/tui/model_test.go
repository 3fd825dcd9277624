package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"versionrank/internal/domain"
	"versionrank/internal/ranking"
	"versionrank/internal/service"
)

type feedbackCall struct {
	query, chosen string
	relevant      bool
}

type fakePort struct {
	policies  []string
	feedbacks []feedbackCall
	empty     bool
	err       error
}

func (f *fakePort) SearchWithPolicy(_ context.Context, query, policy string) (service.Selection, error) {
	f.policies = append(f.policies, policy)
	if f.err != nil {
		return service.Selection{}, f.err
	}
	if f.empty {
		return service.Selection{Query: query, Text: ranking.NoDocumentsFound, Policy: policy}, nil
	}
	return service.Selection{
		Query:  query,
		Text:   "The chief betrayed his people.",
		Policy: policy,
		Candidates: []domain.ScoredCandidate{
			{Text: "The chief betrayed his people.", Score: 0.5},
			{Text: "A quiet morning by the sea.", Score: 0},
		},
	}, nil
}

func (f *fakePort) Feedback(query, chosen string, relevant bool) error {
	f.feedbacks = append(f.feedbacks, feedbackCall{query, chosen, relevant})
	return nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func TestSearchThenFeedback(t *testing.T) {
	port := &fakePort{}
	m := New(context.Background(), port, ranking.PolicyLexical)
	m.input.SetValue("betrayal chief")

	m = send(t, m, key("enter"))
	assert.True(t, m.reviewing)
	assert.Equal(t, []string{ranking.PolicyLexical}, port.policies)

	m = send(t, m, key("y"))
	assert.False(t, m.reviewing)
	assert.Equal(t, []feedbackCall{{"betrayal chief", "The chief betrayed his people.", true}}, port.feedbacks)
	assert.Equal(t, "Recorded: relevant.", m.status)
	assert.Equal(t, "betrayal chief", m.input.Value())
}

func TestFeedbackOnBrowsedCandidate(t *testing.T) {
	port := &fakePort{}
	m := New(context.Background(), port, ranking.PolicyLearned)
	m.input.SetValue("sea")

	m = send(t, m, key("enter"), key("down"), key("n"))
	require.Len(t, port.feedbacks, 1)
	assert.Equal(t, "A quiet morning by the sea.", port.feedbacks[0].chosen)
	assert.False(t, port.feedbacks[0].relevant)
}

func TestTabCyclesPolicyAndReranks(t *testing.T) {
	port := &fakePort{}
	m := New(context.Background(), port, ranking.PolicyLearned)
	m.input.SetValue("q")

	m = send(t, m, key("enter"), key("tab"), key("tab"), key("tab"))
	assert.Equal(t, []string{ranking.PolicyLearned, ranking.PolicyLexical, ranking.PolicyBlend, ranking.PolicyLearned}, port.policies)
}

func TestEscSkipsFeedback(t *testing.T) {
	port := &fakePort{}
	m := New(context.Background(), port, ranking.PolicyLearned)
	m.input.SetValue("q")
	m = send(t, m, key("enter"), key("esc"))
	assert.False(t, m.reviewing)
	assert.Empty(t, port.feedbacks)
}

func TestEmptyResultDoesNotAskForFeedback(t *testing.T) {
	port := &fakePort{empty: true}
	m := New(context.Background(), port, ranking.PolicyLearned)
	m.input.SetValue("q")
	m = send(t, m, key("enter"), key("y"))
	assert.False(t, m.reviewing)
	assert.Empty(t, port.feedbacks)
	assert.Equal(t, ranking.NoDocumentsFound, m.renderCurrentResult())
}

func TestSearchError(t *testing.T) {
	port := &fakePort{err: errors.New("index offline")}
	m := New(context.Background(), port, ranking.PolicyLearned)
	m.input.SetValue("q")
	m = send(t, m, key("enter"))
	assert.Equal(t, "Error: index offline", m.status)
	assert.False(t, m.reviewing)
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("Rain fell. The chief betrayed them.", "chief")
	assert.Contains(t, out, "Rain fell.")
	assert.Contains(t, out, "The chief betrayed them.")
	assert.Equal(t, "plain text", highlightBestSentence("plain text", ""))
}
