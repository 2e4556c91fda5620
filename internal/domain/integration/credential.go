package integration

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/stockup/backend/internal/domain/shared"
)

// ProviderKind identifies which external system a credential belongs to
type ProviderKind string

const (
	// ProviderKindERP is the ERP side of the integration (Microsoft Dynamics)
	ProviderKindERP ProviderKind = "ERP"
	// ProviderKindPOS is the point-of-sale side of the integration (Vend)
	ProviderKindPOS ProviderKind = "POS"
)

// IsValid returns true if the provider kind is valid
func (k ProviderKind) IsValid() bool {
	switch k {
	case ProviderKindERP, ProviderKindPOS:
		return true
	default:
		return false
	}
}

// String returns the string representation of ProviderKind
func (k ProviderKind) String() string {
	return string(k)
}

// TokenSet is the OAuth token material returned by a provider's token endpoint
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresOn    int64  `json:"expires_on"`
	NotBefore    int64  `json:"not_before"`
}

// Credential stores the per-tenant connection state for one external provider.
// A tenant has at most one credential per provider kind.
type Credential struct {
	shared.TenantAggregateRoot
	Provider     ProviderKind `gorm:"type:varchar(8);not null;uniqueIndex:idx_credentials_tenant_provider,priority:2"`
	AccessToken  string       `gorm:"type:text;not null"`
	RefreshToken string       `gorm:"type:text;not null"`
	TokenType    string       `gorm:"type:varchar(32)"`
	ExpiresOn    int64        `gorm:"not null;default:0"`
	NotBefore    int64        `gorm:"not null;default:0"`
	// Resource is the provider's API base URL (the OAuth resource for ERP,
	// the retailer domain URL for POS).
	Resource string `gorm:"type:varchar(512);not null"`
	// CompanyID is the ERP legal entity (dataAreaId) selected for this tenant.
	CompanyID string `gorm:"type:varchar(64)"`
	// DomainPrefix is the POS retailer subdomain.
	DomainPrefix string `gorm:"type:varchar(128)"`
}

// TableName returns the database table name
func (Credential) TableName() string {
	return "integration_credentials"
}

// NewCredential creates a credential for a tenant and provider
func NewCredential(tenantID uuid.UUID, provider ProviderKind, tokens TokenSet, resource string) (*Credential, error) {
	if tenantID == uuid.Nil || !provider.IsValid() {
		return nil, ErrInvalidInput
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return nil, ErrCredentialIncomplete
	}
	return &Credential{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Provider:            provider,
		AccessToken:         tokens.AccessToken,
		RefreshToken:        tokens.RefreshToken,
		TokenType:           tokens.TokenType,
		ExpiresOn:           tokens.ExpiresOn,
		NotBefore:           tokens.NotBefore,
		Resource:            resource,
	}, nil
}

// IsExpired reports whether the access token is no longer usable at the
// given instant. The boundary instant itself counts as expired.
func (c *Credential) IsExpired(now time.Time) bool {
	return now.Unix() >= c.ExpiresOn
}

// ApplyTokenSet replaces the stored token material wholesale. Both tokens
// rotate on every refresh, so partial updates would leave the credential
// unusable.
func (c *Credential) ApplyTokenSet(tokens TokenSet) error {
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return ErrCredentialIncomplete
	}
	c.AccessToken = tokens.AccessToken
	c.RefreshToken = tokens.RefreshToken
	c.TokenType = tokens.TokenType
	c.ExpiresOn = tokens.ExpiresOn
	c.NotBefore = tokens.NotBefore
	c.UpdatedAt = time.Now()
	return nil
}

// SelectCompany records the ERP legal entity this tenant operates in
func (c *Credential) SelectCompany(companyID string) error {
	if companyID == "" {
		return ErrInvalidInput
	}
	c.CompanyID = companyID
	c.UpdatedAt = time.Now()
	return nil
}

// CredentialRepository provides access to stored credentials
type CredentialRepository interface {
	FindByTenantAndProvider(ctx context.Context, tenantID uuid.UUID, provider ProviderKind) (*Credential, error)
	Save(ctx context.Context, credential *Credential) error
	Delete(ctx context.Context, tenantID uuid.UUID, provider ProviderKind) error
}
