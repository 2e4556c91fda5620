package integration

import "errors"

var (
	// Credential errors
	ErrCredentialNotFound   = errors.New("integration: credential not found for tenant")
	ErrCredentialIncomplete = errors.New("integration: credential is missing required fields")
	ErrTokenRefreshFailed   = errors.New("integration: token refresh failed")

	// Gateway errors
	ErrFetchFailed     = errors.New("integration: fetch from external system failed")
	ErrPushFailed      = errors.New("integration: push to external system failed")
	ErrInvalidInput    = errors.New("integration: invalid input")
	ErrInvalidResponse = errors.New("integration: invalid response from external system")
	ErrRateLimited     = errors.New("integration: external system rate limited")

	// Push status errors
	ErrPushStatusNotFound = errors.New("integration: push status not found")
)
