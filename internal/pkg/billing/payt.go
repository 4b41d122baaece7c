package billing

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
)

// Cents is an amount in minor currency units. Payt sends these as JSON
// numbers on some integrations and as strings on others. Values must be whole
// cents: "97.00" is rejected rather than read as 97.
type Cents int64

func (c *Cents) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*c = 0
		return nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			*c = 0
			return nil
		}
		if strings.ContainsAny(s, ".,") {
			return fmt.Errorf("invalid amount %s: expected whole cents", string(b))
		}
		raw = s
	case float64:
		if v != math.Trunc(v) {
			return fmt.Errorf("invalid amount %s: expected whole cents", string(b))
		}
	}
	n, err := cast.ToInt64E(raw)
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", string(b), err)
	}
	*c = Cents(n)
	return nil
}

// Flag is a boolean that also accepts "true"/"1" strings.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*f = false
		return nil
	}
	v, err := cast.ToBoolE(raw)
	if err != nil {
		return fmt.Errorf("invalid flag %s: %w", string(b), err)
	}
	*f = Flag(v)
	return nil
}

// PaytCustomer is copied verbatim onto the purchase record.
type PaytCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Doc   string `json:"doc"`
	Phone string `json:"phone"`
}

type PaytProduct struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	SKU      string `json:"sku"`
	Price    Cents  `json:"price"`
	Quantity Cents  `json:"quantity"`
}

type PaytTransaction struct {
	PaymentMethod string `json:"payment_method"`
	TotalPrice    Cents  `json:"total_price"`
	Installments  Cents  `json:"installments"`
}

// PaytPayload is the postback body Payt delivers for each transaction event.
type PaytPayload struct {
	IntegrationKey string          `json:"integration_key"`
	TransactionID  string          `json:"transaction_id" validate:"required,max=191"`
	SellerID       string          `json:"seller_id"`
	Test           Flag            `json:"test"`
	Type           string          `json:"type"`
	Status         string          `json:"status" validate:"required,max=40"`
	Customer       PaytCustomer    `json:"customer"`
	Product        PaytProduct     `json:"product"`
	Transaction    PaytTransaction `json:"transaction"`
}

var payloadValidator = validator.New()

// DecodePaytPayload decodes a raw postback body without validating it, so the
// integration key can be checked before anything else.
func DecodePaytPayload(raw []byte) (*PaytPayload, error) {
	var p PaytPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode payt payload: %w", err)
	}
	p.TransactionID = strings.TrimSpace(p.TransactionID)
	p.Status = strings.ToLower(strings.TrimSpace(p.Status))
	return &p, nil
}

// Validate checks the fields the dedupe and status logic depend on.
func (p *PaytPayload) Validate() error {
	if err := payloadValidator.Struct(p); err != nil {
		return fmt.Errorf("validate payt payload: %w", err)
	}
	return nil
}

// ParsePaytPayload decodes and validates a raw postback body.
func ParsePaytPayload(raw []byte) (*PaytPayload, error) {
	p, err := DecodePaytPayload(raw)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// PriceCents is the amount used for plan resolution: the product price, or the
// transaction total when the product price is absent.
func (p *PaytPayload) PriceCents() int64 {
	if p.Product.Price > 0 {
		return int64(p.Product.Price)
	}
	return int64(p.Transaction.TotalPrice)
}
