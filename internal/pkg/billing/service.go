package billing

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nexochat/nexo/app/models"
)

var (
	// ErrInvalidPayload wraps decode and validation failures of a webhook body.
	ErrInvalidPayload = errors.New("invalid webhook payload")
	// ErrProcessingPanic is returned when a delivery panicked mid-flight.
	ErrProcessingPanic = errors.New("webhook processing panicked")
)

// PendingProvisionMessage marks a claimed paid purchase whose outcome has not
// been written yet. FinalizePurchase replaces it.
const PendingProvisionMessage = "provisioning pending"

const (
	notifyTimeout = 15 * time.Second
	auditTimeout  = 5 * time.Second
)

// Service provisions and renews accounts from payment webhooks.
type Service struct {
	repo     Repository
	cfg      WebhookConfig
	notifier Notifier
	now      func() time.Time
}

// NewService creates a billing service from an injected repository. notifier
// may be nil, in which case no emails are sent.
func NewService(repo Repository, cfg WebhookConfig, notifier Notifier) *Service {
	return &Service{repo: repo, cfg: cfg, notifier: notifier, now: time.Now}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, cfg WebhookConfig, notifier Notifier) *Service {
	return NewService(NewRepository(db), cfg, notifier)
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ProcessPaytWebhook runs one delivery through validate, dedupe, provision,
// notify and audit. Secret failures return ErrSecretMismatch or
// ErrSecretNotConfigured and write nothing. Unparsable bodies are recorded
// under a synthetic transaction id and returned as ErrInvalidPayload; a panic
// is recorded the same way and returned as ErrProcessingPanic.
// Provisioning and notification failures do not produce an error.
func (s *Service) ProcessPaytWebhook(ctx context.Context, raw []byte) (res *WebhookResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrProcessingPanic, r)
			log.Errorf("[Webhook] %v\n%s", err, debug.Stack())
			s.recordErrorRow(ctx, raw, err)
			res = nil
		}
	}()

	payload, err := DecodePaytPayload(raw)
	if err != nil {
		s.recordErrorRow(ctx, raw, err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	warn, err := s.cfg.CheckSecret(payload.IntegrationKey)
	if err != nil {
		log.Warnf("[Webhook] rejected transaction %q: %v", payload.TransactionID, err)
		return nil, err
	}
	if warn {
		log.Warn("[Webhook] PAYT_INTEGRATION_KEY is not configured, accepting unauthenticated webhook")
	}

	if err := payload.Validate(); err != nil {
		s.recordErrorRow(ctx, raw, err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	purchase := purchaseFromPayload(payload, raw)
	created, stored, err := s.repo.ClaimPurchase(ctx, purchase)
	if err != nil {
		return nil, fmt.Errorf("claim purchase %s: %w", payload.TransactionID, err)
	}

	if !created {
		return s.handleRedelivery(ctx, stored, payload.Status)
	}

	result := &WebhookResult{PurchaseID: stored.ID}
	if !isPaidStatus(payload.Status) {
		result.Outcome = OutcomeRecorded
		result.Message = fmt.Sprintf("Purchase recorded with status %s", payload.Status)
		log.Infof("[Webhook] recorded transaction %s with status %s", payload.TransactionID, payload.Status)
		return result, nil
	}

	prov, provErr := s.provision(ctx, payload)
	var errMsg *string
	if provErr != nil {
		msg := provErr.Error()
		errMsg = &msg
		log.Errorf("[Webhook] provisioning failed for transaction %s: %v", payload.TransactionID, provErr)
		result.Outcome = OutcomeProvisionFailed
		result.Message = "Purchase recorded but account provisioning failed"
	} else {
		s.notify(ctx, prov)
		result.UserID = &prov.user.ID
		result.UserCreated = prov.created
		result.Plan = prov.plan.Plan
		result.PlanFallback = prov.fallback
		if prov.created {
			result.Outcome = OutcomeCreated
			result.Message = "Account created"
		} else {
			result.Outcome = OutcomeRenewed
			result.Message = "Account renewed"
		}
	}

	actx, cancel := auditContext(ctx)
	defer cancel()
	if err := s.repo.FinalizePurchase(actx, stored.ID, result.UserID, prov.planName(), prov.fallbackFlag(), errMsg); err != nil {
		log.Errorf("[Webhook] could not finalize transaction %s (outcome %s): %v", payload.TransactionID, result.Outcome, err)
		return nil, fmt.Errorf("finalize purchase %s: %w", payload.TransactionID, err)
	}
	return result, nil
}

// auditContext detaches audit writes from the request deadline so the
// outcome is stored even when the caller has given up.
func auditContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
}

func (s *Service) handleRedelivery(ctx context.Context, stored *models.Purchase, status string) (*WebhookResult, error) {
	result := &WebhookResult{PurchaseID: stored.ID, UserID: stored.UserID}
	if stored.Status == status {
		if stored.ErrorMessage != nil && *stored.ErrorMessage == PendingProvisionMessage {
			log.Warnf("[Webhook] transaction %s was claimed but never finalized, not provisioning again", stored.TransactionID)
		}
		result.Outcome = OutcomeDuplicate
		result.Message = "Purchase already processed"
		return result, nil
	}

	changed, err := s.repo.UpdatePurchaseStatusIfChanged(ctx, stored.TransactionID, status)
	if err != nil {
		return nil, fmt.Errorf("update purchase status %s: %w", stored.TransactionID, err)
	}
	if !changed {
		result.Outcome = OutcomeDuplicate
		result.Message = "Purchase already processed"
		return result, nil
	}
	log.Infof("[Webhook] transaction %s status %s -> %s", stored.TransactionID, stored.Status, status)
	result.Outcome = OutcomeStatusUpdated
	result.Message = fmt.Sprintf("Purchase status updated to %s", status)
	return result, nil
}

type provisioned struct {
	user     *models.User
	created  bool
	password string
	plan     PlanEntry
	fallback bool
	price    int64
}

func (p *provisioned) planName() string {
	if p == nil {
		return ""
	}
	return p.plan.Plan
}

func (p *provisioned) fallbackFlag() bool {
	return p != nil && p.fallback
}

func (s *Service) provision(ctx context.Context, payload *PaytPayload) (*provisioned, error) {
	price := payload.PriceCents()
	entry, err := ResolvePlan(price)
	fallback := errors.Is(err, ErrUnmappedPrice)
	if fallback {
		log.Warnf("[Webhook] price %d is not in the plan catalog, applying %s", price, entry.Plan)
	}

	email := models.NormalizeEmail(payload.Customer.Email)
	if email == "" {
		return nil, errors.New("customer email is missing")
	}

	now := s.now()
	expires := now.Add(PlanDuration)
	out := &provisioned{plan: entry, fallback: fallback, price: price}

	user, err := s.repo.FindUserByEmail(ctx, email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		password, err := GeneratePassword(DefaultPasswordLength)
		if err != nil {
			return nil, err
		}
		user = &models.User{
			Name:              payload.Customer.Name,
			Email:             email,
			Phone:             payload.Customer.Phone,
			Document:          payload.Customer.Doc,
			Role:              models.ROLE_USER,
			Status:            models.STATUS_ACTIVE,
			Plan:              entry.Plan,
			MessagesLimit:     entry.DailyMessageLimit,
			MessagesUsedToday: 0,
			LastResetAt:       now,
			PlanExpiresAt:     &expires,
		}
		if err := user.SetPassword(password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		if err := user.Validate(); err != nil {
			return nil, fmt.Errorf("invalid account: %w", err)
		}
		if err := s.repo.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("create account: %w", err)
		}
		out.created = true
		out.password = password
		log.Infof("[Webhook] created account %d for %s on plan %s", user.ID, email, entry.Plan)
	case err != nil:
		return nil, fmt.Errorf("find account: %w", err)
	default:
		user.Plan = entry.Plan
		user.MessagesLimit = entry.DailyMessageLimit
		user.MessagesUsedToday = 0
		user.LastResetAt = now
		user.PlanExpiresAt = &expires
		if err := s.repo.SaveUser(ctx, user); err != nil {
			return nil, fmt.Errorf("renew account: %w", err)
		}
		log.Infof("[Webhook] renewed account %d for %s on plan %s", user.ID, email, entry.Plan)
	}

	out.user = user
	return out, nil
}

// notify is best-effort: failures are logged and dropped.
func (s *Service) notify(ctx context.Context, p *provisioned) {
	if s.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	var err error
	if p.created {
		err = s.notifier.SendWelcome(nctx, WelcomeNotice{
			Name:       p.user.Name,
			Email:      p.user.Email,
			Password:   p.password,
			Plan:       p.plan.Plan,
			DailyLimit: p.plan.DailyMessageLimit,
			PriceCents: p.price,
		})
	} else {
		err = s.notifier.SendRenewal(nctx, RenewalNotice{
			Name:       p.user.Name,
			Email:      p.user.Email,
			Plan:       p.plan.Plan,
			DailyLimit: p.plan.DailyMessageLimit,
			PriceCents: p.price,
			ExpiresAt:  *p.user.PlanExpiresAt,
		})
	}
	if err != nil {
		log.Errorf("[Webhook] email to %s failed: %v", p.user.Email, err)
	}
}

// recordErrorRow writes a minimal audit row for a body that could not be
// processed. Failures here are only logged.
func (s *Service) recordErrorRow(ctx context.Context, raw []byte, cause error) {
	msg := cause.Error()
	p := &models.Purchase{
		Provider:      models.PurchaseProviderPayt,
		TransactionID: "error-" + uuid.NewString(),
		Status:        models.PurchaseStatusError,
		ErrorMessage:  &msg,
		RawPayload:    string(raw),
	}
	actx, cancel := auditContext(ctx)
	defer cancel()
	if err := s.repo.InsertErrorPurchase(actx, p); err != nil {
		log.Errorf("[Webhook] could not record failed delivery: %v", err)
		return
	}
	log.Warnf("[Webhook] recorded failed delivery as %s: %v", p.TransactionID, cause)
}

func purchaseFromPayload(p *PaytPayload, raw []byte) *models.Purchase {
	var pending *string
	if isPaidStatus(p.Status) {
		msg := PendingProvisionMessage
		pending = &msg
	}
	return &models.Purchase{
		Provider:         models.PurchaseProviderPayt,
		TransactionID:    p.TransactionID,
		SellerID:         p.SellerID,
		Status:           p.Status,
		Test:             bool(p.Test),
		CustomerName:     p.Customer.Name,
		CustomerEmail:    p.Customer.Email,
		CustomerDocument: p.Customer.Doc,
		CustomerPhone:    p.Customer.Phone,
		ProductName:      p.Product.Name,
		ProductCode:      p.Product.Code,
		ProductPrice:     int64(p.Product.Price),
		PaymentMethod:    p.Transaction.PaymentMethod,
		TotalPrice:       int64(p.Transaction.TotalPrice),
		Processed:        isPaidStatus(p.Status),
		ErrorMessage:     pending,
		RawPayload:       string(raw),
	}
}
