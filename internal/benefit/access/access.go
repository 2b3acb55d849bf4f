// Package access enforces provider scoping on the console: super
// admins see every benefit, other administrators only the benefits
// created by someone from their own provider, that is an identity
// sharing at least one role with the caller and itself not a super
// admin.
package access

import (
	benefit "benefit-gateway/internal/benefit/models"
	"benefit-gateway/internal/identity"
	dErrors "benefit-gateway/pkg/domain-errors"
)

// PeerSet holds the upstream ids of the caller's provider colleagues,
// as resolved by identity.Store.ListUpstreamIDsByRoles. Super admins
// are never members.
type PeerSet map[string]struct{}

func NewPeerSet(upstreamIDs []string) PeerSet {
	set := make(PeerSet, len(upstreamIDs))
	for _, id := range upstreamIDs {
		set[id] = struct{}{}
	}
	return set
}

// FilterVisible returns the subset of benefits the user may see. A
// user with no roles sees nothing; visibility is never granted by
// default.
func FilterVisible(user *identity.User, peers PeerSet, benefits []benefit.BenefitRecord) []benefit.BenefitRecord {
	if user == nil || len(user.Roles) == 0 {
		return nil
	}
	if user.IsSuperAdmin() {
		return benefits
	}

	var visible []benefit.BenefitRecord
	for _, b := range benefits {
		if visibleTo(peers, &b) {
			visible = append(visible, b)
		}
	}
	return visible
}

// CanAccess checks whether the user may open a single benefit. creator
// is the resolved account behind b.CreatedBy; nil means the upstream
// account is unknown locally, in which case the check passes. The
// denial is CodeForbidden so callers can keep "exists but not yours"
// distinct from "does not exist".
func CanAccess(user *identity.User, creator *identity.User, b *benefit.BenefitRecord) error {
	if user == nil || len(user.Roles) == 0 {
		return dErrors.New(dErrors.CodeForbidden, "no roles assigned")
	}
	if user.IsSuperAdmin() {
		return nil
	}
	if b.CreatedBy == nil || b.CreatedBy.ID == "" || creator == nil {
		return nil
	}
	if creator.IsSuperAdmin() {
		return dErrors.New(dErrors.CodeForbidden, "benefit belongs to an administrator outside your provider")
	}
	if !creator.HasAnyRole(user.Roles) {
		return dErrors.New(dErrors.CodeForbidden, "benefit belongs to an administrator outside your provider")
	}
	return nil
}

// visibleTo treats creator-less benefits as shared: records the
// upstream never attributed to anyone are visible to every
// administrator.
func visibleTo(peers PeerSet, b *benefit.BenefitRecord) bool {
	if b.CreatedBy == nil || b.CreatedBy.ID == "" {
		return true
	}
	_, ok := peers[b.CreatedBy.ID]
	return ok
}
