package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// IdentityClient verifies opaque bearer tokens against the identity provider.
// Token issuance itself is fully delegated to the provider.
type IdentityClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type IdentityConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type verifyTokenRequest struct {
	IDToken string `json:"idToken"`
}

// VerifiedIdentity is the provider's answer for a valid token
type VerifiedIdentity struct {
	Subject string `json:"subject"`
	Email   string `json:"email"`
}

func NewIdentityClient(cfg IdentityConfig) *IdentityClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &IdentityClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// VerifyToken exchanges a bearer token for the verified subject and email.
// Any non-200 answer means the request is unauthenticated.
func (ic *IdentityClient) VerifyToken(ctx context.Context, token string) (*VerifiedIdentity, error) {
	jsonBody, err := json.Marshal(verifyTokenRequest{IDToken: token})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := ic.baseURL + "/v1/tokens:verify"
	if ic.apiKey != "" {
		url += "?key=" + ic.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ic.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token rejected by identity provider: status %d", resp.StatusCode)
	}

	var result VerifiedIdentity
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Subject == "" {
		return nil, fmt.Errorf("identity provider returned empty subject")
	}

	return &result, nil
}
