package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bijouterie-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	stripeBaseURL      = "https://api.stripe.com"
	signatureTolerance = 5 * time.Minute
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrStaleTimestamp   = errors.New("webhook timestamp outside tolerance")
)

type stripeGateway struct {
	secretKey     string
	webhookSecret string
	httpClient    *http.Client
	currency      string
	now           func() time.Time
}

func NewStripeGateway(secretKey, webhookSecret string) Gateway {
	if secretKey == "" {
		logger.L().Warn("Stripe secret key is empty, checkout will use the simulated payment path")
	}

	return &stripeGateway{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		currency: "eur",
		now:      time.Now,
	}
}

func (g *stripeGateway) CreatePaymentIntent(
	ctx context.Context,
	amount decimal.Decimal,
	orderID string,
	metadata map[string]string,
) (*IntentResponse, error) {

	if g.secretKey == "" {
		return nil, ErrNotConfigured
	}

	log := logger.FromCtx(ctx).With(
		zap.String("order_id", orderID),
		zap.String("amount", amount.StringFixed(2)),
	)

	// Stripe takes amounts in minor units.
	cents := amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(cents, 10))
	form.Set("currency", g.currency)
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("metadata[orderId]", orderID)
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		stripeBaseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		log.Error("failed creating request", zap.Error(err))
		return nil, err
	}

	req.SetBasicAuth(g.secretKey, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	log.Info("creating payment intent")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Error("stripe request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("failed to read response body", zap.Error(err))
		return nil, fmt.Errorf("failed to read stripe response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error("stripe returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return nil, fmt.Errorf("stripe error: %s", string(bodyBytes))
	}

	var res struct {
		ID           string `json:"id"`
		ClientSecret string `json:"client_secret"`
		Status       string `json:"status"`
	}
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		log.Error("failed decoding stripe response", zap.Error(err))
		return nil, err
	}

	log.Info("payment intent created",
		zap.String("intent_id", res.ID),
		zap.String("status", res.Status),
	)

	return &IntentResponse{
		IntentID:     res.ID,
		ClientSecret: res.ClientSecret,
		Status:       res.Status,
	}, nil
}

// VerifySignature checks the Stripe-Signature header: an HMAC-SHA256 over
// "{timestamp}.{raw body}" keyed with the webhook secret, with a bounded
// timestamp to blunt replay.
func (g *stripeGateway) VerifySignature(r *http.Request, body []byte) error {
	if g.webhookSecret == "" {
		return ErrNotConfigured
	}

	header := r.Header.Get("Stripe-Signature")
	if header == "" {
		return ErrInvalidSignature
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			signatures = append(signatures, v)
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return ErrInvalidSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}

	age := g.now().Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return ErrStaleTimestamp
	}

	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}

	return ErrInvalidSignature
}
