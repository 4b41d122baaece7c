package billing

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"
)

var (
	ErrSecretMismatch      = errors.New("integration key mismatch")
	ErrSecretNotConfigured = errors.New("integration key not configured")
)

// SecretPolicy decides what happens when no expected secret is configured.
type SecretPolicy string

const (
	// SecretPolicyOpen accepts webhooks and logs a warning.
	SecretPolicyOpen SecretPolicy = "open"
	// SecretPolicyClosed rejects webhooks until a secret is configured.
	SecretPolicyClosed SecretPolicy = "closed"
)

// ParseSecretPolicy maps a config string to a policy, defaulting to open.
func ParseSecretPolicy(s string) SecretPolicy {
	if strings.EqualFold(strings.TrimSpace(s), string(SecretPolicyClosed)) {
		return SecretPolicyClosed
	}
	return SecretPolicyOpen
}

// SharedSecret is the expected integration key; Configured is false when the
// operator never set one.
type SharedSecret struct {
	Value      string
	Configured bool
}

func NewSharedSecret(value string) SharedSecret {
	v := strings.TrimSpace(value)
	return SharedSecret{Value: v, Configured: v != ""}
}

// WebhookConfig is the typed webhook configuration.
type WebhookConfig struct {
	Secret SharedSecret
	Policy SecretPolicy
}

// CheckSecret compares the inbound key with the configured one. It returns
// (warn=true, nil) when no secret is configured and the policy is open.
func (c WebhookConfig) CheckSecret(got string) (warn bool, err error) {
	if !c.Secret.Configured {
		if c.Policy == SecretPolicyClosed {
			return false, ErrSecretNotConfigured
		}
		return true, nil
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(c.Secret.Value)) != 1 {
		return false, ErrSecretMismatch
	}
	return false, nil
}

// Outcome names what a webhook delivery did.
type Outcome string

const (
	OutcomeCreated         Outcome = "created"
	OutcomeRenewed         Outcome = "renewed"
	OutcomeProvisionFailed Outcome = "provision_failed"
	OutcomeRecorded        Outcome = "recorded"
	OutcomeStatusUpdated   Outcome = "status_updated"
	OutcomeDuplicate       Outcome = "duplicate"
)

// WebhookResult is what the HTTP layer needs to build its response.
type WebhookResult struct {
	Outcome      Outcome
	PurchaseID   uint
	UserID       *uint
	UserCreated  bool
	Plan         string
	PlanFallback bool
	Message      string
}

// WelcomeNotice and RenewalNotice are what the billing service hands to the
// notifier. Password is plaintext and only present on welcome.
type WelcomeNotice struct {
	Name       string
	Email      string
	Password   string
	Plan       string
	DailyLimit int
	PriceCents int64
}

type RenewalNotice struct {
	Name       string
	Email      string
	Plan       string
	DailyLimit int
	PriceCents int64
	ExpiresAt  time.Time
}

// Notifier delivers account emails. Errors are logged by the caller and
// never retried.
type Notifier interface {
	SendWelcome(ctx context.Context, n WelcomeNotice) error
	SendRenewal(ctx context.Context, n RenewalNotice) error
}
