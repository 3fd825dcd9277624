// Package rewrite holds what the rewriter adapters share.
package rewrite

import "strings"

// Instruction is the system instruction sent with every rewrite request.
const Instruction = "You are an AI writer. Rewrite the following literary text in a modern, vivid storytelling style. " +
	"Keep the original meaning but improve its emotional and narrative clarity."

// Prompt wraps chapter text for the model.
func Prompt(text string) string {
	return "Chapter Content:" + text
}

// Clean trims model output.
func Clean(s string) string { return strings.TrimSpace(s) }
