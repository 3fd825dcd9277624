package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"versionrank/internal/rewrite"
)

// Client is an OpenAI-compatible chat completions client implementing domain.Rewriter.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	client     *http.Client
	maxRetries int
	sleep      func(time.Duration)
}

// Config configures the OpenAI-compatible client.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// NewClient creates a new client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 5
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		model:      cfg.Model,
		client:     &http.Client{Timeout: t},
		maxRetries: retries,
		sleep:      time.Sleep,
	}, nil
}

// Name returns the identifier of this rewriter.
func (c *Client) Name() string { return "openai" }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Rewrite returns the model's rewrite of text.
func (c *Client) Rewrite(ctx context.Context, text string) (string, error) {
	type reqBody struct {
		Model    string    `json:"model"`
		Messages []message `json:"messages"`
	}
	url := fmt.Sprintf("%s/chat/completions", c.baseURL)
	data, err := json.Marshal(reqBody{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: rewrite.Instruction},
			{Role: "user", Content: rewrite.Prompt(text)},
		},
	})
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if attempt < c.maxRetries {
				c.sleep(retryDelay(attempt))
				continue
			}
			return "", err
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			if attempt < c.maxRetries {
				// Respect Retry-After if provided
				if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
					c.sleep(time.Duration(secs) * time.Second)
				} else {
					c.sleep(retryDelay(attempt))
				}
				continue
			}
			return "", fmt.Errorf("openai chat completion failed: %s", resp.Status)
		}

		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return "", fmt.Errorf("openai chat completion failed: %s", resp.Status)
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			if attempt < c.maxRetries {
				c.sleep(retryDelay(attempt))
				continue
			}
			return "", err
		}
		var out struct {
			Choices []struct {
				Message message `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(payload, &out); err != nil {
			return "", fmt.Errorf("decoding chat completion: %w", err)
		}
		if len(out.Choices) == 0 || rewrite.Clean(out.Choices[0].Message.Content) == "" {
			return "", errors.New("no rewrite returned")
		}
		return rewrite.Clean(out.Choices[0].Message.Content), nil
	}
	return "", errors.New("no rewrite returned")
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
