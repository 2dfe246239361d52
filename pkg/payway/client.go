package payway

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/chanmoly/khmart-backend/pkg/config"
	"github.com/shopspring/decimal"
)

const (
	gatewayPath = "/api/payment-gateway"

	// PayWay expects request timestamps formatted as YYYYMMDDHHMMSS.
	reqTimeLayout = "20060102150405"
)

var (
	errMerchantIDRequired = errors.New("payway merchant id is required")
	errAPIKeyRequired     = errors.New("payway api key is required")
	errTranIDRequired     = errors.New("payway transaction id is required")
)

// Client signs PayWay checkout requests and verifies callbacks.
type Client struct {
	merchantID string
	apiKey     string
	baseURL    string
}

// Redirect describes a signed hosted-checkout request.
type Redirect struct {
	TranID     string
	ReqTime    string
	Amount     string
	Hash       string
	PaymentURL string
}

// NewClient validates the PayWay credentials and returns a signer.
func NewClient(cfg config.PayWayConfig) (*Client, error) {
	merchantID := strings.TrimSpace(cfg.MerchantID)
	if merchantID == "" {
		return nil, errMerchantIDRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://checkout.payway.com.kh"
	}
	return &Client{merchantID: merchantID, apiKey: apiKey, baseURL: baseURL}, nil
}

// BuildRedirect signs a checkout request for the given transaction id and amount.
// The signature covers req_time, merchant_id, tran_id and amount in that order.
func (c *Client) BuildRedirect(tranID string, amount decimal.Decimal, now time.Time) (Redirect, error) {
	tranID = strings.TrimSpace(tranID)
	if tranID == "" {
		return Redirect{}, errTranIDRequired
	}

	reqTime := now.UTC().Format(reqTimeLayout)
	amountStr := amount.StringFixed(2)
	hash := c.sign(reqTime + c.merchantID + tranID + amountStr)

	q := url.Values{}
	q.Set("merchant_id", c.merchantID)
	q.Set("tran_id", tranID)
	q.Set("amount", amountStr)
	q.Set("hash", hash)

	return Redirect{
		TranID:     tranID,
		ReqTime:    reqTime,
		Amount:     amountStr,
		Hash:       hash,
		PaymentURL: c.baseURL + gatewayPath + "?" + q.Encode(),
	}, nil
}

// VerifyCallback checks a callback signature in constant time. The callback
// signature covers the same fields the redirect was signed with.
func (c *Client) VerifyCallback(tranID, reqTime, amount, hash string) bool {
	if tranID == "" || hash == "" {
		return false
	}
	expected := c.sign(reqTime + c.merchantID + tranID + amount)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(hash))) == 1
}

// MerchantID exposes the configured merchant account.
func (c *Client) MerchantID() string {
	return c.merchantID
}

func (c *Client) sign(payload string) string {
	mac := hmac.New(sha512.New, []byte(c.apiKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
