// Package identity holds the provider-console user records used to
// scope what each signed-in administrator may see.
package identity

// RoleSuperAdmin grants visibility over every benefit regardless of who
// authored it.
const RoleSuperAdmin = "Super Admin"

// User is one console user. UpstreamID is the identifier the content
// provider stamps on benefits it authored (BenefitRecord.CreatedBy).
type User struct {
	ID         string   `json:"id"`
	UpstreamID string   `json:"upstreamId"`
	Email      string   `json:"email,omitempty"`
	Roles      []string `json:"roles"`
}

// HasRole reports whether the user carries the named role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the user carries at least one of the
// named roles.
func (u *User) HasAnyRole(roles []string) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// IsSuperAdmin reports whether the user bypasses provider scoping.
func (u *User) IsSuperAdmin() bool {
	return u.HasRole(RoleSuperAdmin)
}
