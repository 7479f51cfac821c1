// Package invite generates, validates and redeems organization invitation
// codes.
package invite

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/ports"
	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
	domerrors "github.com/yedlingit/TeamFlow-sub001/internal/domain/errors"
)

// Codes are short, URL-safe and opaque. The alphabet drops 0/O/1/I/L to keep
// codes unambiguous when read aloud.
const (
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength   = 10

	// maxAttempts bounds the collision regenerate loop. Uniqueness is
	// enforced by the store's constraint, not by pre-reserving ranges.
	maxAttempts = 5
)

// NewCode returns a fresh random invitation code. Uniqueness is only
// established once a store accepts it.
func NewCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// RedeemResult is the outcome of a successful redemption. Joined is false
// when the user was already a member and the call was an idempotent no-op.
type RedeemResult struct {
	OrganizationID domain.OrganizationID
	Role           domain.Role
	Joined         bool
}

// Service issues and redeems invitation codes.
type Service struct {
	orgs    ports.OrganizationRepository
	members ports.MembershipRepository
	now     func() time.Time
}

// NewService builds the invitation code service.
func NewService(orgs ports.OrganizationRepository, members ports.MembershipRepository) *Service {
	return &Service{orgs: orgs, members: members, now: time.Now}
}

// Generate re-issues the organization's invitation code, replacing the
// current one. Collisions with another organization's code are detected via
// the store's uniqueness constraint and regenerated.
func (s *Service) Generate(ctx context.Context, orgID domain.OrganizationID) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		code, err := NewCode()
		if err != nil {
			return "", err
		}
		err = s.orgs.UpdateInviteCode(ctx, orgID, code)
		if err == nil {
			return code, nil
		}
		if errors.Is(err, domerrors.ErrConflict) {
			continue
		}
		return "", err
	}
	return "", fmt.Errorf("invite code generation exhausted %d attempts: %w", maxAttempts, domerrors.ErrConflict)
}

// Redeem joins the redeeming user to the code's organization with the Member
// role. Elevation is a separate, authorization-gated operation. Redemption
// is idempotent per user: redeeming again while already a member of that
// organization is a no-op success; redeeming while a member of a different
// organization fails with ErrConflict.
func (s *Service) Redeem(ctx context.Context, code string, userID domain.UserID) (*RedeemResult, error) {
	org, err := s.orgs.GetByInviteCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, fmt.Errorf("invite code: %w", domerrors.ErrNotFound)
	}
	existing, err := s.members.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.OrganizationID == org.ID {
			return &RedeemResult{OrganizationID: org.ID, Role: existing.Role}, nil
		}
		return nil, fmt.Errorf("already a member of another organization: %w", domerrors.ErrConflict)
	}
	m := &domain.Membership{
		OrganizationID: org.ID,
		UserID:         userID,
		Role:           domain.RoleMember,
		CreatedAt:      s.now(),
	}
	if err := s.members.Add(ctx, m); err != nil {
		// A concurrent redeem by the same user may have won the race;
		// that is the idempotent no-op case.
		if errors.Is(err, domerrors.ErrConflict) {
			if again, gerr := s.members.Get(ctx, org.ID, userID); gerr == nil && again != nil {
				return &RedeemResult{OrganizationID: org.ID, Role: again.Role}, nil
			}
		}
		return nil, err
	}
	return &RedeemResult{OrganizationID: org.ID, Role: domain.RoleMember, Joined: true}, nil
}
