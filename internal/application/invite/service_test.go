package invite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
	domerrors "github.com/yedlingit/TeamFlow-sub001/internal/domain/errors"
	"github.com/yedlingit/TeamFlow-sub001/internal/infrastructure/persistence/memory"
)

func seedOrg(t *testing.T, store *memory.Store, code string) domain.OrganizationID {
	t.Helper()
	org := &domain.Organization{
		ID:         domain.NewOrganizationID(uuid.New()),
		Name:       "org-" + code,
		InviteCode: code,
		CreatedAt:  time.Now(),
	}
	founder := &domain.Membership{
		OrganizationID: org.ID,
		UserID:         domain.NewUserID(uuid.New()),
		Role:           domain.RoleAdministrator,
		CreatedAt:      time.Now(),
	}
	if err := store.Create(context.Background(), org, founder); err != nil {
		t.Fatalf("seed org: %v", err)
	}
	return org.ID
}

func TestNewCodeShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := NewCode()
		if err != nil {
			t.Fatalf("NewCode: %v", err)
		}
		if len(code) != codeLength {
			t.Fatalf("code %q has length %d, want %d", code, len(code), codeLength)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
		seen[code] = true
	}
	// 200 codes over a 31^10 space colliding would point at a broken RNG.
	if len(seen) != 200 {
		t.Fatalf("expected 200 distinct codes, got %d", len(seen))
	}
}

func TestGenerateReplacesCode(t *testing.T) {
	store := memory.NewStore()
	orgID := seedOrg(t, store, "AAAAAAAAAA")
	svc := NewService(store, store)

	code, err := svc.Generate(context.Background(), orgID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	org, err := store.GetByID(context.Background(), orgID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if org.InviteCode != code {
		t.Fatalf("stored code = %q, want %q", org.InviteCode, code)
	}
	if _, err := store.GetByInviteCode(context.Background(), "AAAAAAAAAA"); err != nil {
		t.Fatalf("GetByInviteCode: %v", err)
	}
	old, _ := store.GetByInviteCode(context.Background(), "AAAAAAAAAA")
	if old != nil {
		t.Fatal("old code should no longer resolve")
	}
}

// conflictOnceRepo forces one ErrConflict before delegating, exercising the
// regenerate loop.
type conflictOnceRepo struct {
	*memory.Store
	conflicts int
}

func (r *conflictOnceRepo) UpdateInviteCode(ctx context.Context, id domain.OrganizationID, code string) error {
	if r.conflicts > 0 {
		r.conflicts--
		return domerrors.ErrConflict
	}
	return r.Store.UpdateInviteCode(ctx, id, code)
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	store := memory.NewStore()
	orgID := seedOrg(t, store, "BBBBBBBBBB")
	repo := &conflictOnceRepo{Store: store, conflicts: 2}
	svc := NewService(repo, store)

	code, err := svc.Generate(context.Background(), orgID)
	if err != nil {
		t.Fatalf("Generate should survive transient collisions: %v", err)
	}
	if code == "" {
		t.Fatal("expected a code")
	}
}

func TestGenerateExhaustsAttempts(t *testing.T) {
	store := memory.NewStore()
	orgID := seedOrg(t, store, "CCCCCCCCCC")
	repo := &conflictOnceRepo{Store: store, conflicts: maxAttempts}
	svc := NewService(repo, store)

	_, err := svc.Generate(context.Background(), orgID)
	if !errors.Is(err, domerrors.ErrConflict) {
		t.Fatalf("expected ErrConflict after exhausting attempts, got %v", err)
	}
}

// contendedRepo injects a bounded number of conflicts across concurrent
// callers, on top of the store's own uniqueness check.
type contendedRepo struct {
	*memory.Store
	mu        sync.Mutex
	remaining int
}

func (r *contendedRepo) UpdateInviteCode(ctx context.Context, id domain.OrganizationID, code string) error {
	r.mu.Lock()
	if r.remaining > 0 {
		r.remaining--
		r.mu.Unlock()
		return domerrors.ErrConflict
	}
	r.mu.Unlock()
	return r.Store.UpdateInviteCode(ctx, id, code)
}

func TestGenerateConcurrentCodesStayDistinct(t *testing.T) {
	store := memory.NewStore()
	const orgs = 8
	ids := make([]domain.OrganizationID, orgs)
	for i := range ids {
		ids[i] = seedOrg(t, store, fmt.Sprintf("SEED%06d", i))
	}
	// Fewer injected conflicts than maxAttempts, so no single caller can
	// exhaust its retry loop on synthetic failures alone.
	repo := &contendedRepo{Store: store, remaining: maxAttempts - 1}
	svc := NewService(repo, store)

	const rounds = 5
	var wg sync.WaitGroup
	errs := make(chan error, orgs*rounds)
	for _, id := range ids {
		wg.Add(1)
		go func(id domain.OrganizationID) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				if _, err := svc.Generate(context.Background(), id); err != nil {
					errs <- err
				}
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Generate under contention: %v", err)
	}

	seen := make(map[string]domain.OrganizationID)
	for _, id := range ids {
		org, err := store.GetByID(context.Background(), id)
		if err != nil || org == nil {
			t.Fatalf("organization %v: %v", id, err)
		}
		if holder, dup := seen[org.InviteCode]; dup {
			t.Fatalf("code %q held by both %v and %v", org.InviteCode, holder, id)
		}
		seen[org.InviteCode] = id
		resolved, err := store.GetByInviteCode(context.Background(), org.InviteCode)
		if err != nil || resolved == nil || resolved.ID != id {
			t.Fatalf("code %q should resolve to its organization: %v %v", org.InviteCode, resolved, err)
		}
	}
}

func TestRedeemJoinsAsMember(t *testing.T) {
	store := memory.NewStore()
	orgID := seedOrg(t, store, "DDDDDDDDDD")
	svc := NewService(store, store)
	userID := domain.NewUserID(uuid.New())

	res, err := svc.Redeem(context.Background(), "DDDDDDDDDD", userID)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if !res.Joined {
		t.Fatal("first redemption should join")
	}
	if res.OrganizationID != orgID {
		t.Fatalf("organization = %v, want %v", res.OrganizationID, orgID)
	}
	if res.Role != domain.RoleMember {
		t.Fatalf("role = %v, want RoleMember", res.Role)
	}
	m, err := store.Get(context.Background(), orgID, userID)
	if err != nil || m == nil {
		t.Fatalf("membership not persisted: %v %v", m, err)
	}
}

func TestRedeemUnknownCode(t *testing.T) {
	store := memory.NewStore()
	seedOrg(t, store, "EEEEEEEEEE")
	svc := NewService(store, store)

	_, err := svc.Redeem(context.Background(), "ZZZZZZZZZZ", domain.NewUserID(uuid.New()))
	if !errors.Is(err, domerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedeemIdempotentForSameOrganization(t *testing.T) {
	store := memory.NewStore()
	orgID := seedOrg(t, store, "FFFFFFFFFF")
	svc := NewService(store, store)
	userID := domain.NewUserID(uuid.New())

	if _, err := svc.Redeem(context.Background(), "FFFFFFFFFF", userID); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	// Promote, then re-redeem: the role must survive.
	if err := store.UpdateRole(context.Background(), orgID, userID, domain.RoleTeamLeader); err != nil {
		t.Fatalf("promote: %v", err)
	}
	res, err := svc.Redeem(context.Background(), "FFFFFFFFFF", userID)
	if err != nil {
		t.Fatalf("second redeem should be a no-op success: %v", err)
	}
	if res.Joined {
		t.Fatal("second redemption should not report a join")
	}
	if res.Role != domain.RoleTeamLeader {
		t.Fatalf("role = %v, want the existing RoleTeamLeader", res.Role)
	}
}

func TestRedeemWhileMemberElsewhereConflicts(t *testing.T) {
	store := memory.NewStore()
	seedOrg(t, store, "GGGGGGGGGG")
	seedOrg(t, store, "HHHHHHHHHH")
	svc := NewService(store, store)
	userID := domain.NewUserID(uuid.New())

	if _, err := svc.Redeem(context.Background(), "GGGGGGGGGG", userID); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	_, err := svc.Redeem(context.Background(), "HHHHHHHHHH", userID)
	if !errors.Is(err, domerrors.ErrConflict) {
		t.Fatalf("expected ErrConflict for cross-organization redemption, got %v", err)
	}
}
