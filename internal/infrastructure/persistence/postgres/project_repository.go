package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/ports"
	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
	domerrors "github.com/yedlingit/TeamFlow-sub001/internal/domain/errors"
)

// ProjectRepository persists projects and project memberships.
type ProjectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository builds the repository.
func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

const projectColumns = `id, organization_id, name, team_leader_id, status, theme, due_date, created_at, progress, updated_at`

func (r *ProjectRepository) Create(ctx context.Context, p *domain.Project, leader *domain.ProjectMembership) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insert = `INSERT INTO projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := tx.Exec(ctx, insert,
		p.ID.UUID, p.OrganizationID.UUID, p.Name, leaderUUID(p.TeamLeaderID),
		string(p.Status), p.Theme, p.DueDate, p.CreatedAt, p.Progress, p.UpdatedAt,
	); err != nil {
		return err
	}
	if leader != nil {
		if err := insertProjectMember(ctx, tx, leader, true); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *ProjectRepository) GetByID(ctx context.Context, id domain.ProjectID) (*domain.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	p, err := scanProject(r.pool.QueryRow(ctx, query, id.UUID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *ProjectRepository) Update(ctx context.Context, p *domain.Project, leader *domain.ProjectMembership) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Progress and updated_at are maintainer-owned: not touched here.
	const update = `UPDATE projects
		SET name = $1, team_leader_id = $2, status = $3, theme = $4, due_date = $5
		WHERE id = $6`
	tag, err := tx.Exec(ctx, update,
		p.Name, leaderUUID(p.TeamLeaderID), string(p.Status), p.Theme, p.DueDate, p.ID.UUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project: %w", domerrors.ErrNotFound)
	}
	if leader != nil {
		if err := insertProjectMember(ctx, tx, leader, true); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *ProjectRepository) Delete(ctx context.Context, id domain.ProjectID) error {
	// Tasks, assignees and memberships cascade via foreign keys.
	const query = `DELETE FROM projects WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id.UUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project: %w", domerrors.ErrNotFound)
	}
	return nil
}

func (r *ProjectRepository) ListByOrganization(ctx context.Context, orgID domain.OrganizationID) ([]*domain.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects
		WHERE organization_id = $1 ORDER BY created_at`
	return r.list(ctx, query, orgID.UUID)
}

func (r *ProjectRepository) ListForUser(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID) ([]*domain.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects p
		WHERE p.organization_id = $1
		  AND EXISTS (SELECT 1 FROM project_members pm WHERE pm.project_id = p.id AND pm.user_id = $2)
		ORDER BY p.created_at`
	return r.list(ctx, query, orgID.UUID, userID.UUID)
}

func (r *ProjectRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Project, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProjectRepository) SetDerived(ctx context.Context, id domain.ProjectID, progress int, updatedAt time.Time) error {
	const query = `UPDATE projects SET progress = $1, updated_at = $2 WHERE id = $3`
	tag, err := r.pool.Exec(ctx, query, progress, updatedAt, id.UUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project: %w", domerrors.ErrNotFound)
	}
	return nil
}

func (r *ProjectRepository) AddMember(ctx context.Context, m *domain.ProjectMembership) error {
	return insertProjectMember(ctx, r.pool, m, false)
}

func (r *ProjectRepository) RemoveMember(ctx context.Context, projectID domain.ProjectID, userID domain.UserID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const unassign = `DELETE FROM task_assignees ta
		USING tasks t
		WHERE ta.task_id = t.id AND t.project_id = $1 AND ta.user_id = $2`
	if _, err := tx.Exec(ctx, unassign, projectID.UUID, userID.UUID); err != nil {
		return err
	}
	const remove = `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`
	tag, err := tx.Exec(ctx, remove, projectID.UUID, userID.UUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project membership: %w", domerrors.ErrNotFound)
	}
	return tx.Commit(ctx)
}

func (r *ProjectRepository) GetMember(ctx context.Context, projectID domain.ProjectID, userID domain.UserID) (*domain.ProjectMembership, error) {
	const query = `SELECT project_id, user_id, role_label, joined_at
		FROM project_members WHERE project_id = $1 AND user_id = $2`
	var m domain.ProjectMembership
	err := r.pool.QueryRow(ctx, query, projectID.UUID, userID.UUID).
		Scan(&m.ProjectID.UUID, &m.UserID.UUID, &m.RoleLabel, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ProjectRepository) ListMembers(ctx context.Context, projectID domain.ProjectID) ([]*domain.ProjectMembership, error) {
	const query = `SELECT project_id, user_id, role_label, joined_at
		FROM project_members WHERE project_id = $1 ORDER BY joined_at`
	rows, err := r.pool.Query(ctx, query, projectID.UUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.ProjectMembership
	for rows.Next() {
		var m domain.ProjectMembership
		if err := rows.Scan(&m.ProjectID.UUID, &m.UserID.UUID, &m.RoleLabel, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *ProjectRepository) CountMembers(ctx context.Context, projectID domain.ProjectID) (int, error) {
	const query = `SELECT COUNT(*) FROM project_members WHERE project_id = $1`
	var n int
	if err := r.pool.QueryRow(ctx, query, projectID.UUID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (tag pgconn.CommandTag, err error)
}

func insertProjectMember(ctx context.Context, q execer, m *domain.ProjectMembership, upsert bool) error {
	query := `INSERT INTO project_members (project_id, user_id, role_label, joined_at)
		VALUES ($1, $2, $3, $4)`
	if upsert {
		query += ` ON CONFLICT (project_id, user_id) DO NOTHING`
	}
	_, err := q.Exec(ctx, query, m.ProjectID.UUID, m.UserID.UUID, m.RoleLabel, m.JoinedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("project membership exists: %w", domerrors.ErrConflict)
	}
	return err
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	var leader *uuid.UUID
	var status string
	if err := row.Scan(
		&p.ID.UUID, &p.OrganizationID.UUID, &p.Name, &leader,
		&status, &p.Theme, &p.DueDate, &p.CreatedAt, &p.Progress, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Status = domain.ProjectStatus(status)
	if leader != nil {
		lid := domain.NewUserID(*leader)
		p.TeamLeaderID = &lid
	}
	return &p, nil
}

func leaderUUID(id *domain.UserID) *uuid.UUID {
	if id == nil {
		return nil
	}
	return &id.UUID
}

var _ ports.ProjectRepository = (*ProjectRepository)(nil)
