package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type PaymentClient struct {
	baseURL    string
	secretKey  string
	currency   string
	httpClient *http.Client
}

type PaymentConfig struct {
	BaseURL   string
	SecretKey string
	Currency  string
	Timeout   time.Duration
}

// Payment processor models. Amounts are always in minor currency units (agorot).
type PaymentIntentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type PaymentIntentResponse struct {
	IntentID     string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

func NewPaymentClient(cfg PaymentConfig) *PaymentClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "ils"
	}

	return &PaymentClient{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		currency:  cfg.Currency,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Configured reports whether processor credentials are present in the
// deployment configuration. Without them no intent is ever opened.
func (pc *PaymentClient) Configured() bool {
	return pc.baseURL != "" && pc.secretKey != ""
}

// CreateIntent opens a payment intent for the given amount in minor units
func (pc *PaymentClient) CreateIntent(ctx context.Context, amount int64, metadata map[string]string) (*PaymentIntentResponse, error) {
	req := PaymentIntentRequest{
		Amount:   amount,
		Currency: pc.currency,
		Metadata: metadata,
	}

	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+"/v1/payment_intents", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+pc.secretKey)

	resp, err := pc.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result PaymentIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if result.IntentID == "" {
		return nil, fmt.Errorf("payment intent creation failed")
	}

	return &result, nil
}

// CancelIntent voids a previously opened intent, used by admin cancellation
func (pc *PaymentClient) CancelIntent(ctx context.Context, intentID string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+"/v1/payment_intents/"+intentID+"/cancel", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+pc.secretKey)

	resp, err := pc.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to cancel payment intent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
