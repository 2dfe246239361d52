package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/chanmoly/khmart-backend/pkg/enums"
)

// EmailOTP is a single-use login/registration code. Only the bcrypt hash of
// the code is stored.
type EmailOTP struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email      string           `gorm:"column:email;not null;index:ix_email_otps_email_purpose"`
	Purpose    enums.OTPPurpose `gorm:"column:purpose;not null;index:ix_email_otps_email_purpose"`
	CodeHash   string           `gorm:"column:code_hash;not null"`
	ExpiresAt  time.Time        `gorm:"column:expires_at;not null"`
	ConsumedAt *time.Time       `gorm:"column:consumed_at"`
	SentCount  int              `gorm:"column:sent_count;not null;default:1"`
	LastSentAt time.Time        `gorm:"column:last_sent_at;autoCreateTime"`
	IPAddress  *string          `gorm:"column:ip_address"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
}

// Expired reports whether the code is past its TTL at the given instant.
func (o EmailOTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
