package domain

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnsupportedProvider is returned when a chat request names a bot
	// provider that is not registered.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrTenantInactive is returned when a widget key resolves to a tenant
	// whose access has been revoked.
	ErrTenantInactive = errors.New("tenant access revoked")
)
