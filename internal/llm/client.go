package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/codebuildervaibhav/video-summary/internal/logger"
)

// ErrNoJSON is returned when a completion contains no JSON object.
var ErrNoJSON = errors.New("no JSON found in completion")

// Completer is the text-completion collaborator
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Options configures a Client
type Options struct {
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float64
	Timeout      time.Duration
	MaxRetryTime time.Duration
}

// Client calls an OpenAI-compatible chat completions endpoint
type Client struct {
	opts   Options
	client *http.Client
	log    *logger.Logger
}

// NewClient creates a Client
func NewClient(opts Options, log *logger.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetryTime <= 0 {
		opts.MaxRetryTime = 30 * time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Client{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		log:    log.Component("llm"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one system+user exchange and returns the assistant text.
// Network errors, 429 and 5xx are retried with exponential backoff.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	if c.opts.BaseURL == "" || c.opts.APIKey == "" {
		return "", errors.New("llm not configured")
	}

	msgs := make([]chatMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: prompt})

	data, err := json.Marshal(chatRequest{Model: c.opts.Model, Messages: msgs, Temperature: c.opts.Temperature})
	if err != nil {
		return "", err
	}

	var content string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/chat/completions", bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			c.log.WithError(err).Warn("llm request failed")
			return err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			statusErr := fmt.Errorf("llm returned %d: %s", resp.StatusCode, truncate(string(body), 300))
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				// Permanent: don't retry on client errors
				return backoff.Permanent(statusErr)
			}
			c.log.WithField("http_status", resp.StatusCode).Warn("llm call failed, retrying")
			return statusErr
		}

		var parsed chatResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("decode completion: %w", err))
		}
		if len(parsed.Choices) == 0 {
			return backoff.Permanent(errors.New("completion has no choices"))
		}
		content = parsed.Choices[0].Message.Content
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.opts.MaxRetryTime

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return content, nil
}

// CompleteJSON runs Complete and decodes the embedded JSON object into out
func CompleteJSON(ctx context.Context, c Completer, system, prompt string, out any) error {
	text, err := c.Complete(ctx, system, prompt)
	if err != nil {
		return err
	}
	obj := ExtractJSON(text)
	if obj == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(obj), out); err != nil {
		return fmt.Errorf("decode completion JSON: %w", err)
	}
	return nil
}

// ExtractJSON returns the text from the first '{' to the last '}', which
// tolerates prose and markdown fences around the object.
func ExtractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end < start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
