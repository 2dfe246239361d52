package models

import "github.com/google/uuid"

// Supplier is the counterpart stock imports are received from.
type Supplier struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	ContactEmail string    `gorm:"column:contact_email"`
	Phone        string    `gorm:"column:phone"`
	Address      string    `gorm:"column:address"`
}
