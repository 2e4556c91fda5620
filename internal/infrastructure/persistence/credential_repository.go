package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockup/backend/internal/domain/integration"
)

// GormCredentialRepository implements CredentialRepository using GORM
type GormCredentialRepository struct {
	db *gorm.DB
}

// NewGormCredentialRepository creates a new GormCredentialRepository
func NewGormCredentialRepository(db *gorm.DB) *GormCredentialRepository {
	return &GormCredentialRepository{db: db}
}

// FindByTenantAndProvider finds the credential for a tenant and provider kind
func (r *GormCredentialRepository) FindByTenantAndProvider(ctx context.Context, tenantID uuid.UUID, provider integration.ProviderKind) (*integration.Credential, error) {
	var credential integration.Credential
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider = ?", tenantID, provider).
		First(&credential).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: tenant %s provider %s", integration.ErrCredentialNotFound, tenantID, provider)
		}
		return nil, err
	}
	return &credential, nil
}

// Save creates or updates a credential
func (r *GormCredentialRepository) Save(ctx context.Context, credential *integration.Credential) error {
	return r.db.WithContext(ctx).Save(credential).Error
}

// Delete removes the credential for a tenant and provider kind
func (r *GormCredentialRepository) Delete(ctx context.Context, tenantID uuid.UUID, provider integration.ProviderKind) error {
	result := r.db.WithContext(ctx).
		Delete(&integration.Credential{}, "tenant_id = ? AND provider = ?", tenantID, provider)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrCredentialNotFound
	}
	return nil
}

// Ensure GormCredentialRepository implements CredentialRepository
var _ integration.CredentialRepository = (*GormCredentialRepository)(nil)
