// Package vend implements the POS gateway against the Vend retail API:
// OAuth code exchange, token refresh and consignment line maintenance.
package vend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stockup/backend/internal/domain/integration"
)

// Config holds the OAuth application and client tuning settings
type Config struct {
	ClientID     string
	ClientSecret string
	// RedirectURI must match the URI registered with the provider
	RedirectURI string
	// RequestTimeout bounds every outbound call
	RequestTimeout time.Duration
}

// Client talks to a retailer's Vend instance. Every retailer lives on its
// own subdomain, so request URLs are built from the credential.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Vend client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
	}
}

// tokenResponse is Vend's token payload. expires is an absolute epoch.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Expires      int64  `json:"expires"`
}

// baseURL returns the retailer's API origin
func baseURL(domainPrefix string) string {
	return "https://" + domainPrefix + ".vendhq.com"
}

// ExchangeCode completes the authorization-code flow for a retailer domain
func (c *Client) ExchangeCode(ctx context.Context, domainPrefix, code string) (integration.TokenSet, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", c.cfg.RedirectURI)

	return c.requestTokens(ctx, baseURL(domainPrefix)+"/api/1.0/token", form)
}

// RefreshTokens exchanges the stored refresh token for a new token set.
// The credential itself is left untouched.
func (c *Client) RefreshTokens(ctx context.Context, credential *integration.Credential) (integration.TokenSet, error) {
	form := url.Values{}
	form.Set("refresh_token", credential.RefreshToken)
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "refresh_token")

	return c.requestTokens(ctx, strings.TrimRight(credential.Resource, "/")+"/api/1.0/token", form)
}

func (c *Client) requestTokens(ctx context.Context, uri string, form url.Values) (integration.TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, strings.NewReader(form.Encode()))
	if err != nil {
		return integration.TokenSet{}, fmt.Errorf("%w: %v", integration.ErrTokenRefreshFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return integration.TokenSet{}, fmt.Errorf("%w: %v", integration.ErrTokenRefreshFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return integration.TokenSet{}, fmt.Errorf("%w: %v", integration.ErrTokenRefreshFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("token request rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return integration.TokenSet{}, fmt.Errorf("%w: token endpoint returned %d", integration.ErrTokenRefreshFailed, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return integration.TokenSet{}, fmt.Errorf("%w: %v", integration.ErrTokenRefreshFailed, err)
	}
	if tr.AccessToken == "" {
		return integration.TokenSet{}, fmt.Errorf("%w: token endpoint returned no access token", integration.ErrTokenRefreshFailed)
	}

	return integration.TokenSet{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		ExpiresOn:    tr.Expires,
	}, nil
}

// UpdateConsignmentProduct records the counted quantity on a consignment line
func (c *Client) UpdateConsignmentProduct(ctx context.Context, credential *integration.Credential, update integration.ConsignmentUpdate) error {
	payload, err := json.Marshal(map[string]string{
		"received": update.ReceivedQuantity.String(),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrInvalidInput, err)
	}

	uri := strings.TrimRight(credential.Resource, "/") + "/api/consignment_product/" + update.ConsignmentProductID
	return c.do(ctx, credential, http.MethodPut, uri, payload)
}

// DeleteConsignmentProduct removes a consignment line that received nothing
func (c *Client) DeleteConsignmentProduct(ctx context.Context, credential *integration.Credential, consignmentProductID string) error {
	uri := strings.TrimRight(credential.Resource, "/") + "/api/consignment_product/" + consignmentProductID
	return c.do(ctx, credential, http.MethodDelete, uri, nil)
}

// MarkConsignmentReceived closes out the consignment on the POS side
func (c *Client) MarkConsignmentReceived(ctx context.Context, credential *integration.Credential, consignmentID string) error {
	payload, err := json.Marshal(map[string]string{
		"status": "RECEIVED",
	})
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrInvalidInput, err)
	}

	uri := strings.TrimRight(credential.Resource, "/") + "/api/consignment/" + consignmentID
	return c.do(ctx, credential, http.MethodPut, uri, payload)
}

func (c *Client) do(ctx context.Context, credential *integration.Credential, method, uri string, payload []byte) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPushFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+credential.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPushFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s %s", integration.ErrRateLimited, method, uri)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		c.logger.Error("consignment call rejected",
			zap.String("tenant_id", credential.TenantID.String()),
			zap.String("method", method),
			zap.String("uri", uri),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return fmt.Errorf("%w: %s returned %d", integration.ErrPushFailed, uri, resp.StatusCode)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Ensure Client implements POSGateway
var _ integration.POSGateway = (*Client)(nil)
