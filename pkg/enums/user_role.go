package enums

import "fmt"

// UserRole is the coarse authorization role carried in the access token.
type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleCustomer UserRole = "customer"
)

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	return u == UserRoleAdmin || u == UserRoleCustomer
}

// ParseUserRole converts the raw string to UserRole.
func ParseUserRole(value string) (UserRole, error) {
	switch UserRole(value) {
	case UserRoleAdmin:
		return UserRoleAdmin, nil
	case UserRoleCustomer:
		return UserRoleCustomer, nil
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
