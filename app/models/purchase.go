package models

import "time"

// Payment provider constants.
const (
	PurchaseProviderPayt = "payt"
)

// Status values Payt reports. The set is provider-defined and not enforced.
const (
	PurchaseStatusPaid           = "paid"
	PurchaseStatusWaitingPayment = "waiting_payment"
	PurchaseStatusCanceled       = "canceled"
	PurchaseStatusRefunded       = "refunded"
	PurchaseStatusError          = "error"
)

// Purchase is the audit record of one provider transaction. TransactionID is
// the dedupe key: the row is inserted once on first receipt, and later
// deliveries only move Status.
type Purchase struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Provider      string `gorm:"type:varchar(20);not null;default:'payt';index" json:"provider"`
	TransactionID string `gorm:"type:varchar(191);not null;uniqueIndex" json:"transaction_id"`
	SellerID      string `gorm:"type:varchar(100);default:''" json:"seller_id"`
	Status        string `gorm:"type:varchar(40);not null;index" json:"status"`
	Test          bool   `gorm:"default:false" json:"test"`

	CustomerName     string `gorm:"type:varchar(200);default:''" json:"customer_name"`
	CustomerEmail    string `gorm:"type:varchar(200);default:'';index" json:"customer_email"`
	CustomerDocument string `gorm:"type:varchar(40);default:''" json:"customer_document"`
	CustomerPhone    string `gorm:"type:varchar(40);default:''" json:"customer_phone"`

	ProductName   string `gorm:"type:varchar(200);default:''" json:"product_name"`
	ProductCode   string `gorm:"type:varchar(100);default:''" json:"product_code"`
	ProductPrice  int64  `gorm:"default:0" json:"product_price"`
	PaymentMethod string `gorm:"type:varchar(40);default:''" json:"payment_method"`
	TotalPrice    int64  `gorm:"default:0" json:"total_price"`

	ResolvedPlan string  `gorm:"type:varchar(50);default:''" json:"resolved_plan"`
	PlanFallback bool    `gorm:"default:false" json:"plan_fallback"`
	Processed    bool    `gorm:"default:false;index" json:"processed"`
	ErrorMessage *string `gorm:"type:text" json:"error_message"`
	UserID       *uint   `gorm:"index" json:"user_id"`
	User         *User   `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	RawPayload   string  `gorm:"type:text" json:"raw_payload"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
