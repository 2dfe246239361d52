package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/chanmoly/khmart-backend/pkg/enums"
)

// User is the authenticated principal carts and orders belong to.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string         `gorm:"column:email;not null;uniqueIndex"`
	FullName  string         `gorm:"column:full_name"`
	Phone     string         `gorm:"column:phone"`
	Role      enums.UserRole `gorm:"column:role;not null;default:'customer'"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
