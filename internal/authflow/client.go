package authflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// User is the profile the server returns on login and verification.
type User struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Response is the envelope every auth endpoint answers with, including
// failures reported with 4xx and 5xx statuses.
type Response struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message"`
	OTPCode string `json:"otp_code,omitempty"`
	Token   string `json:"token,omitempty"`
	User    *User  `json:"user,omitempty"`
}

// API is the server side of the flow.
type API interface {
	Login(ctx context.Context, email string) (*Response, error)
	SendOTP(ctx context.Context, email string) (*Response, error)
	VerifyOTP(ctx context.Context, email, code string) (*Response, error)
}

// Client calls the auth endpoints over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) Login(ctx context.Context, email string) (*Response, error) {
	return c.post(ctx, "/login", map[string]string{"email": email})
}

func (c *Client) SendOTP(ctx context.Context, email string) (*Response, error) {
	return c.post(ctx, "/send-otp", map[string]string{"email": email})
}

func (c *Client) VerifyOTP(ctx context.Context, email, code string) (*Response, error) {
	return c.post(ctx, "/verify-otp", map[string]string{"email": email, "otp_code": code})
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("auth request failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Warn("unexpected auth response",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return nil, fmt.Errorf("unexpected response (HTTP %d)", resp.StatusCode)
	}
	if resp.StatusCode >= 300 && out.Success {
		out.Success = false
	}
	return &out, nil
}
