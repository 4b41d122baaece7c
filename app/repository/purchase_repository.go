package repository

import (
	"gorm.io/gorm"

	"github.com/nexochat/nexo/app/models"
)

const maxPurchasePage = 500

type purchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) GetByID(id uint) (*models.Purchase, error) {
	var p models.Purchase
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *purchaseRepository) GetByTransactionID(transactionID string) (*models.Purchase, error) {
	var p models.Purchase
	if err := r.db.Where("transaction_id = ?", transactionID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns matches newest first together with the total match count. A
// zero Limit returns every match.
func (r *purchaseRepository) List(f PurchaseFilter) ([]models.Purchase, int64, error) {
	q := r.db.Model(&models.Purchase{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Email != "" {
		q = q.Where("LOWER(customer_email) = ?", models.NormalizeEmail(f.Email))
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Order("created_at DESC").Order("id DESC")
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(min(f.Limit, maxPurchasePage))
	}
	var out []models.Purchase
	err := q.Find(&out).Error
	return out, total, err
}
