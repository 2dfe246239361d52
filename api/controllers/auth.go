package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/chanmoly/khmart-backend/api/responses"
	"github.com/chanmoly/khmart-backend/api/validators"
	otpsvc "github.com/chanmoly/khmart-backend/internal/otp"
	pkgAuth "github.com/chanmoly/khmart-backend/pkg/auth"
	"github.com/chanmoly/khmart-backend/pkg/config"
	"github.com/chanmoly/khmart-backend/pkg/enums"
	pkgerrors "github.com/chanmoly/khmart-backend/pkg/errors"
	"github.com/chanmoly/khmart-backend/pkg/logger"
)

type otpRequestBody struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required"`
}

type otpVerifyBody struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required"`
	Code    string `json:"code" validate:"required,len=6,numeric"`
}

type userResponse struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name,omitempty"`
	Role     string    `json:"role"`
}

type otpVerifyResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        userResponse `json:"user"`
}

// AuthOTPRequest issues a one time code to the supplied email address.
func AuthOTPRequest(svc otpsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "otp service unavailable"))
			return
		}

		var payload otpRequestBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		purpose, err := enums.ParseOTPPurpose(payload.Purpose)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purpose"))
			return
		}

		var ip *string
		if addr := clientAddr(r); addr != "" {
			ip = &addr
		}

		if err := svc.Request(r.Context(), payload.Email, purpose, ip); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "sent"})
	}
}

// AuthOTPVerify exchanges a valid code for an access token, provisioning the
// user on first login.
func AuthOTPVerify(svc otpsvc.Service, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "otp service unavailable"))
			return
		}

		var payload otpVerifyBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		purpose, err := enums.ParseOTPPurpose(payload.Purpose)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purpose"))
			return
		}

		user, err := svc.Verify(r.Context(), payload.Email, purpose, payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
			UserID: user.ID,
			Email:  user.Email,
			Role:   user.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token"))
			return
		}

		responses.WriteSuccess(w, otpVerifyResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   int64(cfg.Expiration().Seconds()),
			User: userResponse{
				ID:       user.ID,
				Email:    user.Email,
				FullName: user.FullName,
				Role:     string(user.Role),
			},
		})
	}
}

func clientAddr(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	return r.RemoteAddr
}
