package enums

import "fmt"

// OTPPurpose names the flow an OTP code was issued for.
type OTPPurpose string

const (
	OTPPurposeRegister OTPPurpose = "REGISTER"
	OTPPurposeLogin    OTPPurpose = "LOGIN"
)

// IsValid reports whether the value is a known OTPPurpose.
func (p OTPPurpose) IsValid() bool {
	return p == OTPPurposeRegister || p == OTPPurposeLogin
}

// ParseOTPPurpose converts the raw string to OTPPurpose.
func ParseOTPPurpose(value string) (OTPPurpose, error) {
	switch OTPPurpose(value) {
	case OTPPurposeRegister:
		return OTPPurposeRegister, nil
	case OTPPurposeLogin:
		return OTPPurposeLogin, nil
	}
	return "", fmt.Errorf("invalid otp purpose %q", value)
}
