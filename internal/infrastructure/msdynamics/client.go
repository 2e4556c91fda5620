// Package msdynamics implements the ERP gateway against the Microsoft
// Dynamics OData surface: token refresh, cross-company reads and the
// multipart $batch write protocol.
package msdynamics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stockup/backend/internal/domain/integration"
)

// Config holds the OAuth application and client tuning settings
type Config struct {
	// TokenURL is the identity provider's token endpoint
	TokenURL     string
	ClientID     string
	ClientSecret string
	// RedirectURI must match the URI registered with the provider
	RedirectURI string
	// BatchSize is the record count per $batch envelope
	BatchSize int
	// PushConcurrency bounds in-flight batch requests per push
	PushConcurrency int
	// RequestTimeout bounds every outbound call
	RequestTimeout time.Duration
}

// Client talks to a Dynamics instance on behalf of one tenant at a time.
// The tenant's resource URL and tokens come in with each call's credential.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Dynamics client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.PushConcurrency <= 0 {
		cfg.PushConcurrency = 5
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 120 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
	}
}

// tokenResponse is the identity provider's token payload. Numeric fields
// arrive as JSON strings.
type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresOn    json.Number `json:"expires_on"`
	NotBefore    json.Number `json:"not_before"`
}

// ExchangeCode completes the authorization-code flow for a resource instance
func (c *Client) ExchangeCode(ctx context.Context, resource, code string) (integration.TokenSet, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("resource", strings.TrimRight(resource, "/"))
	if c.cfg.RedirectURI != "" {
		form.Set("redirect_uri", c.cfg.RedirectURI)
	}
	return c.requestTokens(ctx, form)
}

// RefreshTokens exchanges the stored refresh token for a new token set.
// The credential itself is left untouched.
func (c *Client) RefreshTokens(ctx context.Context, credential *integration.Credential) (integration.TokenSet, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", credential.RefreshToken)
	form.Set("resource", strings.TrimRight(credential.Resource, "/"))
	return c.requestTokens(ctx, form)
}

func (c *Client) requestTokens(ctx context.Context, form url.Values) (integration.TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
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
			zap.String("grant_type", form.Get("grant_type")),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return integration.TokenSet{}, fmt.Errorf("%w: token endpoint returned %d", integration.ErrTokenRefreshFailed, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return integration.TokenSet{}, fmt.Errorf("%w: %v", integration.ErrTokenRefreshFailed, err)
	}
	if tr.AccessToken == "" || tr.RefreshToken == "" {
		return integration.TokenSet{}, fmt.Errorf("%w: token endpoint returned incomplete token set", integration.ErrTokenRefreshFailed)
	}

	expiresOn, _ := tr.ExpiresOn.Int64()
	notBefore, _ := tr.NotBefore.Int64()

	return integration.TokenSet{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		ExpiresOn:    expiresOn,
		NotBefore:    notBefore,
	}, nil
}

// FetchEntities reads all rows of a data entity. The cross-company flag
// bypasses the instance's default single-company scope; when a filter key is
// given the rows are narrowed back down to the credential's selected company.
func (c *Client) FetchEntities(ctx context.Context, credential *integration.Credential, table, companyFilterKey string) ([]integration.Entity, error) {
	uri := entityURL(credential.Resource, table) + "?cross-company=true"
	if companyFilterKey != "" && credential.CompanyID != "" {
		uri += "&$filter=" + url.QueryEscape(companyFilterKey+" eq '"+credential.CompanyID+"'")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrFetchFailed, err)
	}
	c.setODataHeaders(req, credential)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrFetchFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("entity fetch rejected",
			zap.String("tenant_id", credential.TenantID.String()),
			zap.String("table", table),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, fmt.Errorf("%w: %s returned %d", integration.ErrFetchFailed, table, resp.StatusCode)
	}

	var envelope struct {
		Value []integration.Entity `json:"value"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrInvalidResponse, err)
	}
	return envelope.Value, nil
}

// PushEntity writes a single record to a data entity
func (c *Client) PushEntity(ctx context.Context, credential *integration.Credential, table string, record integration.Entity) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrInvalidInput, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, entityURL(credential.Resource, table), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPushFailed, err)
	}
	c.setODataHeaders(req, credential)
	req.Header.Set("Content-Type", "application/json;odata.metadata=minimal")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPushFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("entity push rejected",
			zap.String("tenant_id", credential.TenantID.String()),
			zap.String("table", table),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return fmt.Errorf("%w: %s returned %d", integration.ErrPushFailed, table, resp.StatusCode)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// PushInBatches writes records through the $batch endpoint in fixed-size
// envelopes with bounded fan-out. Every batch, successful or not, advances
// the progress callback by an equal share so the counter reaches 100.
// Rejected batches come back in the outcome rather than as an error.
func (c *Client) PushInBatches(ctx context.Context, credential *integration.Credential, table string, records []integration.Entity, progress integration.ProgressFunc) (*integration.BatchOutcome, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records to push", integration.ErrInvalidInput)
	}

	totalBatches := (len(records) + c.cfg.BatchSize - 1) / c.cfg.BatchSize
	delta := 100.0 / float64(totalBatches)

	outcome := &integration.BatchOutcome{
		TotalRecords: len(records),
		TotalBatches: totalBatches,
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.PushConcurrency)

	for i := 0; i < totalBatches; i++ {
		batchNumber := i + 1
		start := i * c.cfg.BatchSize
		end := start + c.cfg.BatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		g.Go(func() error {
			err := c.sendBatch(gctx, credential, table, batch, batchNumber)

			mu.Lock()
			if err != nil {
				outcome.FailedBatches = append(outcome.FailedBatches, integration.BatchFailure{
					BatchNumber:  batchNumber,
					RecordCount:  len(batch),
					ErrorMessage: err.Error(),
				})
				c.logger.Warn("batch rejected, continuing",
					zap.String("tenant_id", credential.TenantID.String()),
					zap.String("table", table),
					zap.Int("batch_number", batchNumber),
					zap.Int("record_count", len(batch)),
					zap.Error(err))
			} else {
				outcome.SucceededBatches++
			}
			mu.Unlock()

			if progress != nil {
				progress(gctx, delta)
			}
			return nil
		})
	}

	g.Wait()
	outcome.FinishedAt = time.Now()

	c.logger.Info("batch push finished",
		zap.String("tenant_id", credential.TenantID.String()),
		zap.String("table", table),
		zap.Int("total_batches", outcome.TotalBatches),
		zap.Int("succeeded_batches", outcome.SucceededBatches),
		zap.Int("failed_records", outcome.FailedRecordCount()))

	return outcome, nil
}

// sendBatch encodes and posts one envelope to the $batch endpoint
func (c *Client) sendBatch(ctx context.Context, credential *integration.Credential, table string, batch []integration.Entity, batchNumber int) error {
	body, boundary, err := EncodeBatch(credential.Resource, table, batch, batchNumber)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, entityURL(credential.Resource, "$batch"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPushFailed, err)
	}
	c.setODataHeaders(req, credential)
	req.Header.Set("Content-Type", "multipart/mixed; boundary="+boundary)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPushFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: $batch returned %d: %s", integration.ErrPushFailed, resp.StatusCode, respBody)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// setODataHeaders applies the header set every OData call carries
func (c *Client) setODataHeaders(req *http.Request, credential *integration.Credential) {
	req.Header.Set("OData-MaxVersion", "4.0")
	req.Header.Set("OData-Version", "4.0")
	req.Header.Set("Accept", "application/json;odata.metadata=minimal")
	req.Header.Set("Accept-Charset", "UTF-8")
	req.Header.Set("Authorization", authorizationValue(credential))
	req.Host = resourceHost(credential.Resource)
}

func authorizationValue(credential *integration.Credential) string {
	tokenType := credential.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return tokenType + " " + credential.AccessToken
}

// entityURL joins the resource base URL with a data entity path
func entityURL(resource, table string) string {
	return strings.TrimRight(resource, "/") + "/data/" + table
}

// resourceHost strips the scheme and path from the resource URL
func resourceHost(resource string) string {
	host := strings.TrimPrefix(resource, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimRight(host, "/")
}

// Ensure Client implements ERPGateway
var _ integration.ERPGateway = (*Client)(nil)
