// Package chunker splits chapter text into sentences.
package chunker

import (
	"regexp"
	"strings"
)

var sentencePattern = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)

// Sentences returns the trimmed sentences of text. A trailing fragment without
// terminal punctuation counts as a sentence; blank text yields nil.
func Sentences(text string) []string {
	var out []string
	for _, s := range sentencePattern.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
