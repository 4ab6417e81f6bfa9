package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/servicebooking/config"
	"github.com/Domenick1991/servicebooking/internal/domain"
	"go.uber.org/zap"
)

var ErrInvalidPhone = errors.New("invalid mobile money phone number")

// STKPushRequest asks the provider to prompt the payer's phone for approval.
type STKPushRequest struct {
	Reference   string `json:"reference"`
	Method      string `json:"method"`
	PhoneNumber string `json:"phone_number"`
	Amount      string `json:"amount"`
	CallbackURL string `json:"callback_url"`
	Description string `json:"description"`
}

type STKPushResponse struct {
	CheckoutRequestID string `json:"checkout_request_id"`
	ResponseCode      string `json:"response_code"`
	Description       string `json:"response_description"`
}

// MobileMoneyGateway is an HTTP client for the mobile money aggregator.
type MobileMoneyGateway struct {
	baseURL     string
	apiKey      string
	callbackURL string
	client      *http.Client
	log         *zap.Logger
}

func NewMobileMoneyGateway(cfg config.PaymentsConfig, log *zap.Logger) *MobileMoneyGateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &MobileMoneyGateway{
		baseURL:     strings.TrimRight(cfg.GatewayURL, "/"),
		apiKey:      cfg.GatewayAPIKey,
		callbackURL: cfg.CallbackURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
}

// RequestPayment starts an STK push for amount. reference is echoed back by the provider's webhook.
func (g *MobileMoneyGateway) RequestPayment(ctx context.Context, method domain.PaymentMethod, phone string, amount float64, reference string) error {
	msisdn, err := SanitizePhone(phone)
	if err != nil {
		return err
	}

	payload := STKPushRequest{
		Reference:   reference,
		Method:      string(method),
		PhoneNumber: msisdn,
		Amount:      strconv.FormatFloat(amount, 'f', 0, 64),
		CallbackURL: g.callbackURL,
		Description: "Service booking payment",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal STK payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/stkpush", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create STK request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("X-Message-ID", fmt.Sprintf("%s_%d", reference, time.Now().UnixNano()))

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send STK request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read STK response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		g.log.Warn("stk push rejected", zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody))
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var stk STKPushResponse
	if err := json.Unmarshal(respBody, &stk); err != nil {
		return fmt.Errorf("failed to unmarshal STK response: %w", err)
	}
	if stk.ResponseCode != "0" {
		return fmt.Errorf("stk push failed: %s", stk.Description)
	}

	g.log.Info("stk push initiated",
		zap.String("reference", reference),
		zap.String("checkout_request_id", stk.CheckoutRequestID))
	return nil
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// SanitizePhone normalizes a local or international number to 2547XXXXXXXX / 2541XXXXXXXX form.
func SanitizePhone(phone string) (string, error) {
	digits := nonDigits.ReplaceAllString(phone, "")

	switch {
	case (strings.HasPrefix(digits, "07") || strings.HasPrefix(digits, "01")) && len(digits) == 10:
		return "254" + digits[1:], nil
	case (strings.HasPrefix(digits, "7") || strings.HasPrefix(digits, "1")) && len(digits) == 9:
		return "254" + digits, nil
	case strings.HasPrefix(digits, "254") && len(digits) == 12:
		return digits, nil
	}
	return "", ErrInvalidPhone
}
