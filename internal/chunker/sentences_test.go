package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentences(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Rain fell. Who knew?!\n Nobody.", []string{"Rain fell.", "Who knew?!", "Nobody."}},
		{"  no punctuation ", []string{"no punctuation"}},
		{"Done. tail", []string{"Done.", "tail"}},
		{"   ", nil},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sentences(tt.in), "input %q", tt.in)
	}
}
