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

// OrganizationRepository persists organizations.
type OrganizationRepository struct {
	pool *pgxpool.Pool
}

// NewOrganizationRepository builds the repository.
func NewOrganizationRepository(pool *pgxpool.Pool) *OrganizationRepository {
	return &OrganizationRepository{pool: pool}
}

func (r *OrganizationRepository) Create(ctx context.Context, org *domain.Organization, founder *domain.Membership) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertOrg = `INSERT INTO organizations (id, name, invite_code, created_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := tx.Exec(ctx, insertOrg, org.ID.UUID, org.Name, org.InviteCode, org.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invite code already issued: %w", domerrors.ErrConflict)
		}
		return err
	}
	const insertFounder = `INSERT INTO organization_members (organization_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := tx.Exec(ctx, insertFounder, founder.OrganizationID.UUID, founder.UserID.UUID, int(founder.Role), founder.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("founder already a member: %w", domerrors.ErrConflict)
		}
		return err
	}
	return tx.Commit(ctx)
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id domain.OrganizationID) (*domain.Organization, error) {
	const query = `SELECT id, name, invite_code, created_at FROM organizations WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id.UUID))
}

func (r *OrganizationRepository) GetByInviteCode(ctx context.Context, code string) (*domain.Organization, error) {
	const query = `SELECT id, name, invite_code, created_at FROM organizations WHERE invite_code = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, code))
}

func (r *OrganizationRepository) scanOne(row pgx.Row) (*domain.Organization, error) {
	var o domain.Organization
	if err := row.Scan(&o.ID.UUID, &o.Name, &o.InviteCode, &o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrganizationRepository) UpdateName(ctx context.Context, id domain.OrganizationID, name string) error {
	const query = `UPDATE organizations SET name = $1 WHERE id = $2`
	tag, err := r.pool.Exec(ctx, query, name, id.UUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("organization: %w", domerrors.ErrNotFound)
	}
	return nil
}

func (r *OrganizationRepository) UpdateInviteCode(ctx context.Context, id domain.OrganizationID, code string) error {
	const query = `UPDATE organizations SET invite_code = $1 WHERE id = $2`
	tag, err := r.pool.Exec(ctx, query, code, id.UUID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invite code already issued: %w", domerrors.ErrConflict)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("organization: %w", domerrors.ErrNotFound)
	}
	return nil
}

func (r *OrganizationRepository) Delete(ctx context.Context, id domain.OrganizationID) error {
	// Memberships, projects and tasks cascade via foreign keys.
	const query = `DELETE FROM organizations WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id.UUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("organization: %w", domerrors.ErrNotFound)
	}
	return nil
}

var _ ports.OrganizationRepository = (*OrganizationRepository)(nil)
