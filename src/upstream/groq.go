// Package upstream implements the AI responder the router calls for chat
// events, speaking the OpenAI-compatible chat completions protocol used
// by Groq-hosted models.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// ErrUpstream marks any transport or protocol failure talking to the
// completions API.
var ErrUpstream = errors.New("completion request failed")

const defaultSystemPrompt = "You are a concise AI pair programmer. Answer with working code and short explanations."

// Config holds completion provider settings.
type Config struct {
	BaseURL string // e.g. "https://api.groq.com/openai/v1"
	APIKey  string
	Model   string // e.g. "llama-3.3-70b-versatile"
	Timeout time.Duration
}

// Client is a chat completions client over fasthttp.
type Client struct {
	http   *fasthttp.Client
	cfg    Config
	logger zerolog.Logger
}

// NewClient creates a completions client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		http:   &fasthttp.Client{Name: "relay"},
		cfg:    cfg,
		logger: logger.With().Str("component", "upstream").Logger(),
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the prompt to the completions endpoint and returns the
// model's reply. Any failure maps to ErrUpstream; the caller decides how
// to surface it.
func (c *Client) Complete(ctx context.Context, prompt string, extra map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	messages := []chatMessage{{Role: "system", Content: defaultSystemPrompt}}
	if len(extra) > 0 {
		if enc, err := json.Marshal(extra); err == nil {
			messages = append(messages, chatMessage{
				Role:    "system",
				Content: "Context: " + string(enc),
			})
		}
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{Model: c.cfg.Model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.cfg.BaseURL + "/chat/completions")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.SetBody(body)

	if err := c.http.DoTimeout(req, resp, c.cfg.Timeout); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode()).Msg("completion request rejected")
		return "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode())
	}

	var out chatResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrUpstream)
	}
	return out.Choices[0].Message.Content, nil
}
