package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/chanmoly/khmart-backend/internal/notifications"
	"github.com/chanmoly/khmart-backend/internal/users"
	"github.com/chanmoly/khmart-backend/pkg/config"
	"github.com/chanmoly/khmart-backend/pkg/db/models"
	"github.com/chanmoly/khmart-backend/pkg/enums"
	"github.com/chanmoly/khmart-backend/pkg/errors"
	"github.com/chanmoly/khmart-backend/pkg/logger"

	"github.com/google/uuid"
)

const codeDigits = 1000000

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Service issues and verifies single-use email codes. A successful LOGIN or
// REGISTER verification provisions the account when it does not exist yet.
type Service interface {
	Request(ctx context.Context, email string, purpose enums.OTPPurpose, ip *string) error
	Verify(ctx context.Context, email string, purpose enums.OTPPurpose, code string) (*models.User, error)
}

type service struct {
	repo    Repository
	users   users.Repository
	sender  notifications.Sender
	limiter rateLimiter
	cfg     config.OTPConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the OTP service.
func NewService(
	repo Repository,
	userRepo users.Repository,
	sender notifications.Sender,
	limiter rateLimiter,
	cfg config.OTPConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("otp repository required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if sender == nil {
		return nil, fmt.Errorf("otp sender required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter required")
	}
	return &service{
		repo:    repo,
		users:   userRepo,
		sender:  sender,
		limiter: limiter,
		cfg:     cfg,
		logg:    logg,
		now:     time.Now,
	}, nil
}

func (s *service) Request(ctx context.Context, email string, purpose enums.OTPPurpose, ip *string) error {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return errors.New(errors.CodeValidation, "a valid email is required")
	}
	if !purpose.IsValid() {
		return errors.New(errors.CodeValidation, "invalid otp purpose")
	}

	allowed, _, err := s.limiter.FixedWindowAllow(ctx, "otp:"+email, int64(s.cfg.ResendLimit), s.cfg.ResendWindow)
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "checking otp rate limit")
	}
	if !allowed {
		return errors.New(errors.CodeRateLimit, "too many codes requested, try again later")
	}

	code, err := generateCode()
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "generating otp code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "hashing otp code")
	}

	record := &models.EmailOTP{
		ID:        uuid.New(),
		Email:     email,
		Purpose:   purpose,
		CodeHash:  string(hash),
		ExpiresAt: s.now().Add(s.cfg.TTL),
		IPAddress: ip,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "storing otp code")
	}

	if err := s.sender.SendOTP(ctx, email, code, purpose); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "delivering otp code")
	}
	return nil
}

func (s *service) Verify(ctx context.Context, email string, purpose enums.OTPPurpose, code string) (*models.User, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, errors.New(errors.CodeValidation, "email and code are required")
	}

	record, err := s.repo.FindLatestActive(ctx, email, purpose)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.CodeValidation, "invalid otp code")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading otp code")
	}

	now := s.now()
	if record.Expired(now) {
		return nil, errors.New(errors.CodeValidation, "otp code expired")
	}
	if bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(code)) != nil {
		return nil, errors.New(errors.CodeValidation, "invalid otp code")
	}

	record.ConsumedAt = &now
	if err := s.repo.Save(ctx, record); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "consuming otp code")
	}

	user, err := s.users.FindOrCreateByEmail(ctx, email)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "resolving user account")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id": user.ID.String(),
			"purpose": purpose,
		})
		s.logg.Info(logCtx, "otp verified")
	}
	return user, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeDigits))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
