package notifications

import (
	"context"

	"github.com/chanmoly/khmart-backend/pkg/enums"
	"github.com/chanmoly/khmart-backend/pkg/logger"
)

// Sender delivers one-time codes to users. The production deployment plugs in
// an email provider; the default implementation only logs.
type Sender interface {
	SendOTP(ctx context.Context, email, code string, purpose enums.OTPPurpose) error
}

type logSender struct {
	logg *logger.Logger
}

// NewLogSender returns a Sender that records deliveries in the service log.
func NewLogSender(logg *logger.Logger) Sender {
	return &logSender{logg: logg}
}

func (s *logSender) SendOTP(ctx context.Context, email, code string, purpose enums.OTPPurpose) error {
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"email":   email,
			"purpose": purpose,
		})
		s.logg.Info(logCtx, "otp code issued")
	}
	return nil
}
