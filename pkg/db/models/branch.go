package models

import "github.com/google/uuid"

// Branch is a physical stock-holding location.
type Branch struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name    string    `gorm:"column:name;not null"`
	Code    string    `gorm:"column:code;not null;uniqueIndex"`
	Address string    `gorm:"column:address"`
	Phone   string    `gorm:"column:phone"`
}
