package enums

import "fmt"

// AlertType classifies a stock alert raised by the scanner.
type AlertType string

const (
	AlertTypeLow        AlertType = "LOW"
	AlertTypeOutOfStock AlertType = "OUT_OF_STOCK"
)

var validAlertTypes = []AlertType{
	AlertTypeLow,
	AlertTypeOutOfStock,
}

// IsValid reports whether the value is a known AlertType.
func (a AlertType) IsValid() bool {
	for _, candidate := range validAlertTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAlertType converts the raw string to AlertType.
func ParseAlertType(value string) (AlertType, error) {
	for _, candidate := range validAlertTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid alert type %q", value)
}
