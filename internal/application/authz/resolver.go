package authz

import (
	"context"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/ports"
	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
)

// Resolver maps an authenticated caller identity to a Principal. Stateless;
// pure lookup against the membership store.
type Resolver struct {
	members ports.MembershipRepository
}

// NewResolver builds a principal resolver.
func NewResolver(members ports.MembershipRepository) *Resolver {
	return &Resolver{members: members}
}

// Resolve returns the principal for the given user. A user with no
// organization affiliation resolves to an unaffiliated principal with the
// default Member role.
func (r *Resolver) Resolve(ctx context.Context, userID domain.UserID) (domain.Principal, error) {
	m, err := r.members.GetByUser(ctx, userID)
	if err != nil {
		return domain.Principal{}, err
	}
	p := domain.Principal{UserID: userID, Role: domain.RoleMember}
	if m != nil {
		p.OrganizationID = m.OrganizationID
		p.Role = m.Role
	}
	return p, nil
}
