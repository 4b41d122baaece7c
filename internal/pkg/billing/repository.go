package billing

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nexochat/nexo/app/models"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	ClaimPurchase(ctx context.Context, p *models.Purchase) (bool, *models.Purchase, error)
	UpdatePurchaseStatusIfChanged(ctx context.Context, transactionID, status string) (bool, error)
	FinalizePurchase(ctx context.Context, id uint, userID *uint, resolvedPlan string, planFallback bool, processingErr *string) error
	InsertErrorPurchase(ctx context.Context, p *models.Purchase) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	SaveUser(ctx context.Context, u *models.User) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// ClaimPurchase inserts the purchase unless its transaction id already exists.
// It reports whether this call inserted the row and returns the stored row.
// The insert is the dedupe point: only the caller that gets created=true may
// provision.
func (r *gormRepository) ClaimPurchase(ctx context.Context, p *models.Purchase) (bool, *models.Purchase, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_id"}},
		DoNothing: true,
	}).Create(p)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.Purchase
	if err := r.db.WithContext(ctx).Where("transaction_id = ?", p.TransactionID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// UpdatePurchaseStatusIfChanged moves the status of an existing purchase in a
// single conditional UPDATE and reports whether a row changed.
func (r *gormRepository) UpdatePurchaseStatusIfChanged(ctx context.Context, transactionID, status string) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("transaction_id = ? AND status <> ?", transactionID, status).
		Update("status", status)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) FinalizePurchase(ctx context.Context, id uint, userID *uint, resolvedPlan string, planFallback bool, processingErr *string) error {
	updates := map[string]interface{}{
		"user_id":       userID,
		"resolved_plan": resolvedPlan,
		"plan_fallback": planFallback,
		"error_message": processingErr,
	}
	return r.db.WithContext(ctx).Model(&models.Purchase{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) InsertErrorPurchase(ctx context.Context, p *models.Purchase) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *gormRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("LOWER(email) = ?", models.NormalizeEmail(email)).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *gormRepository) CreateUser(ctx context.Context, u *models.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *gormRepository) SaveUser(ctx context.Context, u *models.User) error {
	return r.db.WithContext(ctx).Save(u).Error
}
