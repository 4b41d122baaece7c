package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/valyala/fasthttp"
)

const (
	DefaultBaseURL = "https://api.wavespeed.ai"
	DefaultModel   = "google/gemini-2.5-flash"
	completionPath = "/api/v3/wavespeed-ai/any-llm"
	defaultTimeout = 90 * time.Second
)

var (
	ErrMissingAPIKey = errors.New("llm api key is not configured")
	ErrEmptyOutput   = errors.New("llm returned no output")
)

// UpstreamError carries the provider's status and message unchanged.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream llm error (%d): %s", e.StatusCode, e.Message)
}

type Request struct {
	Prompt       string
	Model        string
	SystemPrompt string
}

type Response struct {
	Text  string
	Model string
	ID    string
}

// Completer is what the chat handler depends on.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// KeyFunc returns the current API key, or "" when none is set.
type KeyFunc func(ctx context.Context) string

type Config struct {
	BaseURL      string
	APIKey       KeyFunc
	DefaultModel string
	Timeout      time.Duration
}

// Client calls the WaveSpeed any-llm endpoint in synchronous mode.
type Client struct {
	cfg    Config
	client *fasthttp.Client
}

func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg: cfg,
		client: &fasthttp.Client{
			Name:                "nexo-llm",
			MaxIdleConnDuration: time.Minute,
			ReadTimeout:         cfg.Timeout,
		},
	}
}

type completionRequest struct {
	Prompt         string `json:"prompt"`
	Model          string `json:"model"`
	SystemPrompt   string `json:"system_prompt,omitempty"`
	EnableSyncMode bool   `json:"enable_sync_mode"`
}

type completionResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		ID      string   `json:"id"`
		Model   string   `json:"model"`
		Status  string   `json:"status"`
		Outputs []string `json:"outputs"`
		Error   string   `json:"error"`
	} `json:"data"`
}

func (c *Client) Complete(ctx context.Context, in Request) (Response, error) {
	var key string
	if c.cfg.APIKey != nil {
		key = c.cfg.APIKey(ctx)
	}
	if key == "" {
		return Response{}, ErrMissingAPIKey
	}

	model := strings.TrimSpace(in.Model)
	if model == "" {
		model = c.cfg.DefaultModel
	}

	body, err := json.Marshal(completionRequest{
		Prompt:         in.Prompt,
		Model:          model,
		SystemPrompt:   in.SystemPrompt,
		EnableSyncMode: true,
	})
	if err != nil {
		return Response{}, fmt.Errorf("encode llm request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.cfg.BaseURL + completionPath)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+key)
	req.SetBody(body)

	started := time.Now()
	if err := c.client.DoDeadline(req, resp, c.deadline(ctx)); err != nil {
		return Response{}, fmt.Errorf("llm request: %w", err)
	}

	var out completionResponse
	decodeErr := json.Unmarshal(resp.Body(), &out)

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		msg := out.Message
		if msg == "" {
			msg = strings.TrimSpace(string(resp.Body()))
		}
		return Response{}, &UpstreamError{StatusCode: status, Message: msg}
	}
	if decodeErr != nil {
		return Response{}, fmt.Errorf("decode llm response: %w", decodeErr)
	}
	if out.Data.Error != "" || out.Data.Status == "failed" {
		return Response{}, &UpstreamError{StatusCode: status, Message: out.Data.Error}
	}
	if len(out.Data.Outputs) == 0 {
		return Response{}, ErrEmptyOutput
	}

	log.Infof("[LLM] %s completed in %s", model, time.Since(started).Round(time.Millisecond))
	return Response{Text: out.Data.Outputs[0], Model: model, ID: out.Data.ID}, nil
}

func (c *Client) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(c.cfg.Timeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}
	return d
}
