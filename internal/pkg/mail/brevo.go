package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	DefaultBrevoEndpoint = "https://api.brevo.com/v3/smtp/email"
	defaultSendTimeout   = 10 * time.Second
)

var ErrMissingAPIKey = errors.New("mail provider api key is not configured")

// APIKeyFunc returns the current provider key, or "" when none is set.
type APIKeyFunc func(ctx context.Context) string

// SenderFunc returns the current sender address and display name. Empty
// values fall back to the static BrevoConfig fields.
type SenderFunc func(ctx context.Context) (email, name string)

type BrevoConfig struct {
	APIKey      APIKeyFunc
	Sender      SenderFunc
	SenderEmail string
	SenderName  string
	Endpoint    string
	Timeout     time.Duration
}

// BrevoMailer sends through the Brevo transactional email API.
type BrevoMailer struct {
	cfg    BrevoConfig
	client *fasthttp.Client
}

func NewBrevoMailer(cfg BrevoConfig) *BrevoMailer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultBrevoEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSendTimeout
	}
	return &BrevoMailer{
		cfg: cfg,
		client: &fasthttp.Client{
			Name:                "nexo-mailer",
			MaxIdleConnDuration: time.Minute,
		},
	}
}

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoRequest struct {
	Sender      brevoContact   `json:"sender"`
	To          []brevoContact `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

type brevoResponse struct {
	MessageID string `json:"messageId"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func (m *BrevoMailer) Send(ctx context.Context, msg Message) (string, error) {
	var key string
	if m.cfg.APIKey != nil {
		key = m.cfg.APIKey(ctx)
	}
	if key == "" {
		return "", ErrMissingAPIKey
	}

	body, err := json.Marshal(brevoRequest{
		Sender:      m.sender(ctx),
		To:          []brevoContact{{Email: msg.To, Name: msg.ToName}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("encode brevo request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(m.cfg.Endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", key)
	req.SetBody(body)

	if err := m.client.DoDeadline(req, resp, deadline(ctx, m.cfg.Timeout)); err != nil {
		return "", fmt.Errorf("brevo request: %w", err)
	}

	var out brevoResponse
	_ = json.Unmarshal(resp.Body(), &out)
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		if out.Message == "" {
			out.Message = string(resp.Body())
		}
		return "", fmt.Errorf("brevo returned %d: %s", code, out.Message)
	}
	return out.MessageID, nil
}

// deadline is the earlier of the context deadline and now+timeout.
func (m *BrevoMailer) sender(ctx context.Context) brevoContact {
	c := brevoContact{Email: m.cfg.SenderEmail, Name: m.cfg.SenderName}
	if m.cfg.Sender == nil {
		return c
	}
	email, name := m.cfg.Sender(ctx)
	if email != "" {
		c.Email = email
	}
	if name != "" {
		c.Name = name
	}
	return c
}

func deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}
	return d
}
