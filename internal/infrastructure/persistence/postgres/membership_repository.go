package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/ports"
	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
	domerrors "github.com/yedlingit/TeamFlow-sub001/internal/domain/errors"
)

// MembershipRepository persists organization memberships. A unique index on
// user_id enforces the at-most-one-organization invariant.
type MembershipRepository struct {
	pool *pgxpool.Pool
}

// NewMembershipRepository builds the repository.
func NewMembershipRepository(pool *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

func (r *MembershipRepository) Add(ctx context.Context, m *domain.Membership) error {
	const query = `INSERT INTO organization_members (organization_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, m.OrganizationID.UUID, m.UserID.UUID, int(m.Role), m.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("membership exists: %w", domerrors.ErrConflict)
	}
	return err
}

func (r *MembershipRepository) Get(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID) (*domain.Membership, error) {
	const query = `SELECT organization_id, user_id, role, created_at
		FROM organization_members WHERE organization_id = $1 AND user_id = $2`
	return scanMembership(r.pool.QueryRow(ctx, query, orgID.UUID, userID.UUID))
}

func (r *MembershipRepository) GetByUser(ctx context.Context, userID domain.UserID) (*domain.Membership, error) {
	const query = `SELECT organization_id, user_id, role, created_at
		FROM organization_members WHERE user_id = $1`
	return scanMembership(r.pool.QueryRow(ctx, query, userID.UUID))
}

func scanMembership(row pgx.Row) (*domain.Membership, error) {
	var m domain.Membership
	var role int
	if err := row.Scan(&m.OrganizationID.UUID, &m.UserID.UUID, &role, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.Role = domain.RoleFromInt(role)
	return &m, nil
}

func (r *MembershipRepository) UpdateRole(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID, role domain.Role) error {
	const query = `UPDATE organization_members SET role = $1
		WHERE organization_id = $2 AND user_id = $3`
	tag, err := r.pool.Exec(ctx, query, int(role), orgID.UUID, userID.UUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("membership: %w", domerrors.ErrNotFound)
	}
	return nil
}

func (r *MembershipRepository) Remove(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const unassign = `DELETE FROM task_assignees ta
		USING tasks t, projects p
		WHERE ta.task_id = t.id AND t.project_id = p.id
		  AND p.organization_id = $1 AND ta.user_id = $2`
	if _, err := tx.Exec(ctx, unassign, orgID.UUID, userID.UUID); err != nil {
		return err
	}
	const leaveProjects = `DELETE FROM project_members pm
		USING projects p
		WHERE pm.project_id = p.id AND p.organization_id = $1 AND pm.user_id = $2`
	if _, err := tx.Exec(ctx, leaveProjects, orgID.UUID, userID.UUID); err != nil {
		return err
	}
	const clearLead = `UPDATE projects SET team_leader_id = NULL
		WHERE organization_id = $1 AND team_leader_id = $2`
	if _, err := tx.Exec(ctx, clearLead, orgID.UUID, userID.UUID); err != nil {
		return err
	}
	const remove = `DELETE FROM organization_members
		WHERE organization_id = $1 AND user_id = $2`
	tag, err := tx.Exec(ctx, remove, orgID.UUID, userID.UUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("membership: %w", domerrors.ErrNotFound)
	}
	return tx.Commit(ctx)
}

func (r *MembershipRepository) ListByOrganization(ctx context.Context, orgID domain.OrganizationID) ([]*domain.Membership, error) {
	const query = `SELECT organization_id, user_id, role, created_at
		FROM organization_members WHERE organization_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, orgID.UUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Membership
	for rows.Next() {
		var m domain.Membership
		var role int
		if err := rows.Scan(&m.OrganizationID.UUID, &m.UserID.UUID, &role, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = domain.RoleFromInt(role)
		out = append(out, &m)
	}
	return out, rows.Err()
}

var _ ports.MembershipRepository = (*MembershipRepository)(nil)
