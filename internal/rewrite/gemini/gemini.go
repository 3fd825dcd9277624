// Package gemini rewrites chapter text with the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/genai"

	"versionrank/internal/rewrite"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-1.5-flash"

// DefaultAPIKeyEnv names the environment variable holding the key.
const DefaultAPIKeyEnv = "GEMINI_API_KEY"

// Config configures the Gemini rewriter.
type Config struct {
	APIKeyEnv   string
	Model       string
	Temperature *float32
}

// Client implements domain.Rewriter on top of genai.
type Client struct {
	client *genai.Client
	model  string
	cfg    *genai.GenerateContentConfig
}

// NewClient reads the API key from the configured environment variable.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	envName := cfg.APIKeyEnv
	if envName == "" {
		envName = DefaultAPIKeyEnv
	}
	key := os.Getenv(envName)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", envName)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{client: client, model: model, cfg: generateConfig(cfg)}, nil
}

func generateConfig(cfg Config) *genai.GenerateContentConfig {
	out := &genai.GenerateContentConfig{}
	if cfg.Temperature != nil {
		out.Temperature = genai.Ptr(*cfg.Temperature)
	}
	if system := genai.Text(rewrite.Instruction); len(system) > 0 {
		out.SystemInstruction = system[0]
	}
	return out
}

// Name returns the identifier of this rewriter.
func (c *Client) Name() string { return "gemini" }

// Model returns the model used for rewrites.
func (c *Client) Model() string { return c.model }

// Rewrite returns the model's rewrite of text.
func (c *Client) Rewrite(ctx context.Context, text string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(rewrite.Prompt(text)), c.cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	out := rewrite.Clean(resp.Text())
	if out == "" {
		return "", errors.New("no rewrite returned")
	}
	return out, nil
}
