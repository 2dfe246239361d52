package otp

import (
	"context"

	"gorm.io/gorm"

	"github.com/chanmoly/khmart-backend/pkg/db/models"
	"github.com/chanmoly/khmart-backend/pkg/enums"
)

// Repository stores issued OTP codes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.EmailOTP) error
	Save(ctx context.Context, record *models.EmailOTP) error
	FindLatestActive(ctx context.Context, email string, purpose enums.OTPPurpose) (*models.EmailOTP, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an OTP repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.EmailOTP) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) Save(ctx context.Context, record *models.EmailOTP) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *repository) FindLatestActive(ctx context.Context, email string, purpose enums.OTPPurpose) (*models.EmailOTP, error) {
	var record models.EmailOTP
	err := r.db.WithContext(ctx).
		Where("email = ? AND purpose = ? AND consumed_at IS NULL", email, purpose).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}
