package webhooks

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/chanmoly/khmart-backend/api/responses"
	paywaywebhook "github.com/chanmoly/khmart-backend/internal/webhooks/payway"
	pkgerrors "github.com/chanmoly/khmart-backend/pkg/errors"
	"github.com/chanmoly/khmart-backend/pkg/logger"
)

const maxCallbackBytes = 64 * 1024

type paywayCallbackBody struct {
	TranID  string `json:"tran_id"`
	ReqTime string `json:"req_time"`
	Amount  string `json:"amount"`
	Status  string `json:"status"`
	APV     string `json:"apv"`
	Hash    string `json:"hash"`
}

// PayWayWebhook receives the gateway's pushback and applies it to the order.
func PayWayWebhook(svc *paywaywebhook.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBytes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading callback body"))
			return
		}

		var payload paywayCallbackBody
		if err := json.Unmarshal(raw, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid callback body"))
			return
		}

		err = svc.Reconcile(r.Context(), paywaywebhook.Callback{
			TranID:  payload.TranID,
			ReqTime: payload.ReqTime,
			Amount:  payload.Amount,
			Status:  payload.Status,
			APV:     payload.APV,
			Hash:    payload.Hash,
			Raw:     json.RawMessage(raw),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
