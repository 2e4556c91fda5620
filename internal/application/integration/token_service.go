// Package integration holds the application services around provider
// credentials: the token lifecycle and the OAuth connect flow.
package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stockup/backend/internal/domain/integration"
	"github.com/stockup/backend/internal/infrastructure/cache"
)

// tokenRefresher is the slice of a provider gateway the token lifecycle needs
type tokenRefresher interface {
	RefreshTokens(ctx context.Context, credential *integration.Credential) (integration.TokenSet, error)
}

// TokenService keeps per-tenant access tokens usable. Expired tokens are
// refreshed through the provider and written back wholesale; concurrent
// refreshes for the same (tenant, provider) collapse into one call through
// the refresh lock.
type TokenService struct {
	credentials integration.CredentialRepository
	erp         tokenRefresher
	pos         tokenRefresher
	lock        cache.RefreshLock
	lockTTL     time.Duration
	logger      *zap.Logger
}

// NewTokenService creates a new TokenService
func NewTokenService(
	credentials integration.CredentialRepository,
	erp integration.ERPGateway,
	pos integration.POSGateway,
	lock cache.RefreshLock,
	lockTTL time.Duration,
	logger *zap.Logger,
) *TokenService {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &TokenService{
		credentials: credentials,
		erp:         erp,
		pos:         pos,
		lock:        lock,
		lockTTL:     lockTTL,
		logger:      logger,
	}
}

// waitPollInterval is how often a caller that lost the refresh race re-reads
// the credential while waiting for the winner to finish.
const waitPollInterval = 100 * time.Millisecond

// EnsureValidCredential returns a credential whose access token is currently
// usable, refreshing and persisting it first when expired. The stored
// credential is left untouched when the refresh fails.
func (s *TokenService) EnsureValidCredential(ctx context.Context, tenantID uuid.UUID, provider integration.ProviderKind) (*integration.Credential, error) {
	credential, err := s.credentials.FindByTenantAndProvider(ctx, tenantID, provider)
	if err != nil {
		return nil, err
	}
	if !credential.IsExpired(time.Now()) {
		return credential, nil
	}

	lockToken, acquired, err := s.lock.Acquire(ctx, tenantID.String(), provider.String(), s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrTokenRefreshFailed, err)
	}
	if !acquired {
		return s.awaitRefresh(ctx, tenantID, provider)
	}
	defer func() {
		if releaseErr := s.lock.Release(context.WithoutCancel(ctx), tenantID.String(), provider.String(), lockToken); releaseErr != nil {
			s.logger.Warn("failed to release refresh lock",
				zap.String("tenant_id", tenantID.String()),
				zap.String("provider", provider.String()),
				zap.Error(releaseErr))
		}
	}()

	// re-read under the lock; the winner of a previous race may already
	// have stored fresh tokens
	credential, err = s.credentials.FindByTenantAndProvider(ctx, tenantID, provider)
	if err != nil {
		return nil, err
	}
	if !credential.IsExpired(time.Now()) {
		return credential, nil
	}

	tokens, err := s.gatewayFor(provider).RefreshTokens(ctx, credential)
	if err != nil {
		s.logger.Error("token refresh failed, keeping stale credential",
			zap.String("tenant_id", tenantID.String()),
			zap.String("provider", provider.String()),
			zap.Error(err))
		return nil, err
	}

	if err := credential.ApplyTokenSet(tokens); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrTokenRefreshFailed, err)
	}
	if err := s.credentials.Save(ctx, credential); err != nil {
		return nil, fmt.Errorf("%w: could not persist refreshed credential: %v", integration.ErrTokenRefreshFailed, err)
	}

	s.logger.Info("refreshed provider tokens",
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider", provider.String()),
		zap.Int64("expires_on", credential.ExpiresOn))

	return credential, nil
}

// EnsureValidToken returns a currently valid access token for the tenant
func (s *TokenService) EnsureValidToken(ctx context.Context, tenantID uuid.UUID, provider integration.ProviderKind) (string, error) {
	credential, err := s.EnsureValidCredential(ctx, tenantID, provider)
	if err != nil {
		return "", err
	}
	return credential.AccessToken, nil
}

// awaitRefresh polls the credential store until the refresh-lock holder has
// written fresh tokens, or gives up after the lock TTL.
func (s *TokenService) awaitRefresh(ctx context.Context, tenantID uuid.UUID, provider integration.ProviderKind) (*integration.Credential, error) {
	deadline := time.Now().Add(s.lockTTL)
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", integration.ErrTokenRefreshFailed, ctx.Err())
		case <-ticker.C:
			credential, err := s.credentials.FindByTenantAndProvider(ctx, tenantID, provider)
			if err != nil {
				return nil, err
			}
			if !credential.IsExpired(time.Now()) {
				return credential, nil
			}
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("%w: concurrent refresh did not complete", integration.ErrTokenRefreshFailed)
			}
		}
	}
}

func (s *TokenService) gatewayFor(provider integration.ProviderKind) tokenRefresher {
	if provider == integration.ProviderKindPOS {
		return s.pos
	}
	return s.erp
}
