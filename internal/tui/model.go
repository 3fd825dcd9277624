package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"versionrank/internal/chunker"
	"versionrank/internal/ranking"
	"versionrank/internal/service"
)

// Port is the TUI-facing subset of the service.
type Port interface {
	SearchWithPolicy(ctx context.Context, query, policy string) (service.Selection, error)
	Feedback(query, chosen string, isRelevant bool) error
}

var policies = []string{ranking.PolicyLearned, ranking.PolicyLexical, ranking.PolicyBlend}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx       context.Context
	service   Port
	input     textinput.Model
	viewport  viewport.Model
	selection service.Selection
	policy    int
	status    string
	cursor    int
	reviewing bool
	ready     bool
}

// New creates a new TUI model instance starting with the named policy.
func New(ctx context.Context, svc Port, policy string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type query and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	m := Model{ctx: ctx, service: svc, input: ti, viewport: vp, status: "Type to search. Tab switches policy."}
	for i, p := range policies {
		if p == policy {
			m.policy = i
		}
	}
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, hint, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "tab":
			m.policy = (m.policy + 1) % len(policies)
			m.status = "Policy: " + policies[m.policy]
			if m.selection.Query != "" {
				m.search(m.selection.Query)
			}
			return m, nil
		case "enter":
			if q := strings.TrimSpace(m.input.Value()); q != "" && !m.reviewing {
				m.search(q)
				return m, nil
			}
		case "down":
			if n := len(m.selection.Candidates); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if n := len(m.selection.Candidates); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
		if m.reviewing {
			switch msg.String() {
			case "y", "n":
				m.record(msg.String() == "y")
			case "esc":
				m.status = "Skipped."
				m.endReview()
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) search(q string) {
	sel, err := m.service.SearchWithPolicy(m.ctx, q, policies[m.policy])
	m.cursor = 0
	if err != nil {
		m.status = "Error: " + err.Error()
		m.selection = service.Selection{}
		m.endReview()
	} else {
		m.selection = sel
		if sel.Found() {
			m.status = fmt.Sprintf("Best for %q under %s. Relevant? y/n (esc skips)", q, sel.Policy)
			m.reviewing = true
			m.input.Blur()
		} else {
			m.status = ranking.NoDocumentsFound
			m.endReview()
		}
	}
	m.viewport.SetContent(m.renderCurrentResult())
}

func (m *Model) record(relevant bool) {
	c := m.selection.Candidates[m.cursor]
	if err := m.service.Feedback(m.selection.Query, c.Text, relevant); err != nil {
		m.status = "Error: " + err.Error()
	} else if relevant {
		m.status = "Recorded: relevant."
	} else {
		m.status = "Recorded: not relevant."
	}
	m.endReview()
}

func (m *Model) endReview() {
	m.reviewing = false
	m.input.Focus()
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Version Ranker") +
		hintStyle.Render("  policy: "+policies[m.policy])
	hint := hintStyle.Render("enter search · tab policy · ↑/↓ candidates · y/n feedback · ctrl+c quit")
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + hint + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	cands := m.selection.Candidates
	if len(cands) == 0 {
		if m.selection.Query != "" {
			return ranking.NoDocumentsFound
		}
		return "No results yet."
	}
	c := cands[m.cursor]
	title := fmt.Sprintf("Candidate %d/%d  score=%.3f", m.cursor+1, len(cands), c.Score)
	body := highlightBestSentence(c.Text, m.selection.Query)
	if m.cursor == 0 && m.selection.Preview != "" && m.selection.Preview != c.Text {
		body = hintStyle.Render(m.selection.Preview) + "\n\n" + body
	}
	return title + "\n\n" + body
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

func highlightBestSentence(text, query string) string {
	sentences := chunker.Sentences(text)
	if len(sentences) == 0 {
		return text
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
