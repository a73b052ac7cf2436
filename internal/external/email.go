package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// EmailClient sends transactional email through a Mailjet-compatible API
type EmailClient struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	fromEmail  string
	fromName   string
	adminEmail string
	httpClient *http.Client
}

type EmailConfig struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	FromEmail  string
	FromName   string
	AdminEmail string
	Timeout    time.Duration
}

// Recipient is one {email, name} pair
type Recipient struct {
	Email string `json:"Email"`
	Name  string `json:"Name,omitempty"`
}

type emailMessage struct {
	From       Recipient   `json:"From"`
	To         []Recipient `json:"To"`
	Subject    string      `json:"Subject"`
	HTMLPart   string      `json:"HTMLPart"`
	CustomID   string      `json:"CustomID,omitempty"`
}

type sendEmailRequest struct {
	Messages []emailMessage `json:"Messages"`
}

type sendEmailResponse struct {
	Messages []struct {
		Status string `json:"Status"`
	} `json:"Messages"`
}

func NewEmailClient(cfg EmailConfig) *EmailClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &EmailClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		adminEmail: cfg.AdminEmail,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Configured reports whether an API credential is present
func (ec *EmailClient) Configured() bool {
	return ec.apiKey != "" && ec.apiSecret != ""
}

// AdminRecipient returns the operator notification address, if configured
func (ec *EmailClient) AdminRecipient() *Recipient {
	if ec.adminEmail == "" {
		return nil
	}
	return &Recipient{Email: ec.adminEmail, Name: "Admin"}
}

// Send delivers one rendered subject/HTML message to the given recipients
func (ec *EmailClient) Send(ctx context.Context, to []Recipient, subject, htmlBody string) error {
	if !ec.Configured() {
		return fmt.Errorf("email client is not configured")
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	req := sendEmailRequest{
		Messages: []emailMessage{
			{
				From:     Recipient{Email: ec.fromEmail, Name: ec.fromName},
				To:       to,
				Subject:  subject,
				HTMLPart: htmlBody,
			},
		},
	}

	jsonBody, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ec.baseURL+"/v3.1/send", bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(ec.apiKey, ec.apiSecret)

	resp, err := ec.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result sendEmailResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	for _, m := range result.Messages {
		if m.Status != "success" {
			return fmt.Errorf("email provider reported status %q", m.Status)
		}
	}

	return nil
}
