package identity

import "context"

// Store resolves console users by their token subject.
type Store interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUpstreamID(ctx context.Context, upstreamID string) (*User, error)
	// ListUpstreamIDsByRoles returns the upstream ids of every user
	// holding at least one of the given roles, excluding super admins.
	// This is the caller's provider: the identities whose benefits the
	// caller may see.
	ListUpstreamIDsByRoles(ctx context.Context, roles []string) ([]string, error)
}
