package feedback

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrNoMoreAnswers is returned by ScriptedJudge once its answers run out.
var ErrNoMoreAnswers = errors.New("no scripted answers left")

// ConsoleJudge asks "Was this relevant? (y/n)" and reads one line.
// "y" and "yes" mean relevant; any other answer means not relevant.
type ConsoleJudge struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsoleJudge reads answers from in and writes prompts to out.
func NewConsoleJudge(in io.Reader, out io.Writer) *ConsoleJudge {
	return &ConsoleJudge{in: bufio.NewReader(in), out: out}
}

// RequestJudgment implements domain.JudgmentSource.
func (c *ConsoleJudge) RequestJudgment(ctx context.Context, _, _ string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := fmt.Fprint(c.out, "\nWas this relevant? (y/n): "); err != nil {
		return false, err
	}
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return false, err
	}
	return ParseAnswer(line), nil
}

// ParseAnswer interprets a typed or transcribed answer.
func ParseAnswer(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// ScriptedJudge replays fixed answers in order.
type ScriptedJudge struct {
	mu      sync.Mutex
	answers []bool
	asked   []string
}

// NewScriptedJudge returns a judge answering with answers in order.
func NewScriptedJudge(answers ...bool) *ScriptedJudge {
	return &ScriptedJudge{answers: answers}
}

// RequestJudgment implements domain.JudgmentSource.
func (s *ScriptedJudge) RequestJudgment(_ context.Context, _, candidate string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.answers) == 0 {
		return false, ErrNoMoreAnswers
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	s.asked = append(s.asked, candidate)
	return a, nil
}

// Asked returns the candidates judged so far.
func (s *ScriptedJudge) Asked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.asked...)
}
