package integration

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stockup/backend/internal/domain/integration"
)

// ConnectConfig holds the OAuth application settings for both providers
type ConnectConfig struct {
	ERPAuthorizeURL string
	ERPClientID     string
	ERPRedirectURI  string
	// POSAuthorizeURL is the provider-wide connect page (not per-retailer)
	POSAuthorizeURL string
	POSClientID     string
	POSRedirectURI  string
}

// ConnectService drives the OAuth connect flow: building authorization URLs,
// exchanging callback codes for tokens, and storing the resulting credential.
type ConnectService struct {
	credentials integration.CredentialRepository
	erp         integration.ERPGateway
	pos         integration.POSGateway
	cfg         ConnectConfig
	logger      *zap.Logger
}

// NewConnectService creates a new ConnectService
func NewConnectService(
	credentials integration.CredentialRepository,
	erp integration.ERPGateway,
	pos integration.POSGateway,
	cfg ConnectConfig,
	logger *zap.Logger,
) *ConnectService {
	return &ConnectService{
		credentials: credentials,
		erp:         erp,
		pos:         pos,
		cfg:         cfg,
		logger:      logger,
	}
}

// AuthorizationURL builds the provider consent page URL. For the ERP the
// resource parameter names the tenant's instance; the POS flow ignores it.
func (s *ConnectService) AuthorizationURL(provider integration.ProviderKind, state, resource string) (string, error) {
	switch provider {
	case integration.ProviderKindERP:
		if resource == "" {
			return "", fmt.Errorf("%w: erp resource url is required", integration.ErrInvalidInput)
		}
		q := url.Values{}
		q.Set("response_type", "code")
		q.Set("client_id", s.cfg.ERPClientID)
		q.Set("redirect_uri", s.cfg.ERPRedirectURI)
		q.Set("resource", strings.TrimRight(resource, "/"))
		q.Set("state", state)
		return s.cfg.ERPAuthorizeURL + "?" + q.Encode(), nil
	case integration.ProviderKindPOS:
		q := url.Values{}
		q.Set("response_type", "code")
		q.Set("client_id", s.cfg.POSClientID)
		q.Set("redirect_uri", s.cfg.POSRedirectURI)
		q.Set("state", state)
		return s.cfg.POSAuthorizeURL + "?" + q.Encode(), nil
	default:
		return "", fmt.Errorf("%w: unknown provider %q", integration.ErrInvalidInput, provider)
	}
}

// CompleteERPConnection exchanges the callback code and stores the credential
func (s *ConnectService) CompleteERPConnection(ctx context.Context, tenantID uuid.UUID, resource, code string) (*integration.Credential, error) {
	if resource == "" || code == "" {
		return nil, fmt.Errorf("%w: resource and code are required", integration.ErrInvalidInput)
	}
	if !strings.HasSuffix(resource, "/") {
		resource += "/"
	}

	tokens, err := s.erp.ExchangeCode(ctx, resource, code)
	if err != nil {
		return nil, err
	}

	credential, err := s.storeCredential(ctx, tenantID, integration.ProviderKindERP, tokens, resource)
	if err != nil {
		return nil, err
	}

	s.logger.Info("erp connected",
		zap.String("tenant_id", tenantID.String()),
		zap.String("resource", resource))
	return credential, nil
}

// CompletePOSConnection exchanges the callback code for the retailer's domain
// and stores the credential.
func (s *ConnectService) CompletePOSConnection(ctx context.Context, tenantID uuid.UUID, domainPrefix, code string) (*integration.Credential, error) {
	if domainPrefix == "" || code == "" {
		return nil, fmt.Errorf("%w: domain_prefix and code are required", integration.ErrInvalidInput)
	}

	tokens, err := s.pos.ExchangeCode(ctx, domainPrefix, code)
	if err != nil {
		return nil, err
	}

	resource := "https://" + domainPrefix + ".vendhq.com/"
	credential, err := s.storeCredential(ctx, tenantID, integration.ProviderKindPOS, tokens, resource)
	if err != nil {
		return nil, err
	}

	credential.DomainPrefix = domainPrefix
	if err := s.credentials.Save(ctx, credential); err != nil {
		return nil, err
	}

	s.logger.Info("pos connected",
		zap.String("tenant_id", tenantID.String()),
		zap.String("domain_prefix", domainPrefix))
	return credential, nil
}

// storeCredential overwrites any existing credential for (tenant, provider)
func (s *ConnectService) storeCredential(ctx context.Context, tenantID uuid.UUID, provider integration.ProviderKind, tokens integration.TokenSet, resource string) (*integration.Credential, error) {
	credential, err := s.credentials.FindByTenantAndProvider(ctx, tenantID, provider)
	switch {
	case err == nil:
		if err := credential.ApplyTokenSet(tokens); err != nil {
			return nil, err
		}
		credential.Resource = resource
	case errors.Is(err, integration.ErrCredentialNotFound):
		credential, err = integration.NewCredential(tenantID, provider, tokens, resource)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := s.credentials.Save(ctx, credential); err != nil {
		return nil, err
	}
	return credential, nil
}

// SelectCompany records the ERP legal entity the tenant operates in
func (s *ConnectService) SelectCompany(ctx context.Context, tenantID uuid.UUID, companyID string) error {
	credential, err := s.credentials.FindByTenantAndProvider(ctx, tenantID, integration.ProviderKindERP)
	if err != nil {
		return err
	}
	if err := credential.SelectCompany(companyID); err != nil {
		return err
	}
	return s.credentials.Save(ctx, credential)
}

// Disconnect removes the stored credential for a provider
func (s *ConnectService) Disconnect(ctx context.Context, tenantID uuid.UUID, provider integration.ProviderKind) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: unknown provider %q", integration.ErrInvalidInput, provider)
	}
	if err := s.credentials.Delete(ctx, tenantID, provider); err != nil {
		return err
	}
	s.logger.Info("provider disconnected",
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider", provider.String()))
	return nil
}
