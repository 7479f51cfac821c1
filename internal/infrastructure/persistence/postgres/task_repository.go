package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/ports"
	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
	domerrors "github.com/yedlingit/TeamFlow-sub001/internal/domain/errors"
)

// TaskRepository persists tasks and their assignee sets. Task row and
// assignees always change in one transaction.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository builds the repository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

const taskColumns = `id, project_id, title, status, priority, due_date, created_at, updated_at`

func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insert = `INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.Exec(ctx, insert,
		t.ID.UUID, t.ProjectID.UUID, t.Title, int(t.Status), int(t.Priority),
		t.DueDate, t.CreatedAt, t.UpdatedAt,
	); err != nil {
		return err
	}
	if err := insertAssignees(ctx, tx, t.ID, t.Assignees); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *TaskRepository) GetByID(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	t, err := scanTask(r.pool.QueryRow(ctx, query, id.UUID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	byTask, err := r.loadAssignees(ctx, []uuid.UUID{id.UUID})
	if err != nil {
		return nil, err
	}
	t.Assignees = byTask[id.UUID]
	return t, nil
}

func (r *TaskRepository) Update(ctx context.Context, t *domain.Task) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const update = `UPDATE tasks
		SET title = $1, status = $2, priority = $3, due_date = $4, updated_at = $5
		WHERE id = $6`
	tag, err := tx.Exec(ctx, update,
		t.Title, int(t.Status), int(t.Priority), t.DueDate, t.UpdatedAt, t.ID.UUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task: %w", domerrors.ErrNotFound)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM task_assignees WHERE task_id = $1`, t.ID.UUID); err != nil {
		return err
	}
	if err := insertAssignees(ctx, tx, t.ID, t.Assignees); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *TaskRepository) Delete(ctx context.Context, id domain.TaskID) error {
	// Assignees cascade via foreign key.
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id.UUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task: %w", domerrors.ErrNotFound)
	}
	return nil
}

func (r *TaskRepository) ListByProject(ctx context.Context, projectID domain.ProjectID) ([]*domain.Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM tasks WHERE project_id = $1 ORDER BY created_at`
	return r.list(ctx, query, projectID.UUID)
}

func (r *TaskRepository) ListByOrganization(ctx context.Context, orgID domain.OrganizationID) ([]*domain.Task, error) {
	const query = `SELECT t.id, t.project_id, t.title, t.status, t.priority, t.due_date, t.created_at, t.updated_at
		FROM tasks t JOIN projects p ON p.id = t.project_id
		WHERE p.organization_id = $1 ORDER BY t.created_at`
	return r.list(ctx, query, orgID.UUID)
}

func (r *TaskRepository) ListAssigned(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID) ([]*domain.Task, error) {
	const query = `SELECT t.id, t.project_id, t.title, t.status, t.priority, t.due_date, t.created_at, t.updated_at
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		JOIN task_assignees ta ON ta.task_id = t.id
		WHERE p.organization_id = $1 AND ta.user_id = $2 ORDER BY t.created_at`
	return r.list(ctx, query, orgID.UUID, userID.UUID)
}

func (r *TaskRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Task
	var ids []uuid.UUID
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		ids = append(ids, t.ID.UUID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	byTask, err := r.loadAssignees(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, t := range out {
		t.Assignees = byTask[t.ID.UUID]
	}
	return out, nil
}

func (r *TaskRepository) CountByStatus(ctx context.Context, projectID domain.ProjectID) (ports.StatusCounts, error) {
	const query = `SELECT status, COUNT(*) FROM tasks WHERE project_id = $1 GROUP BY status`
	rows, err := r.pool.Query(ctx, query, projectID.UUID)
	if err != nil {
		return ports.StatusCounts{}, err
	}
	defer rows.Close()
	var c ports.StatusCounts
	for rows.Next() {
		var status, n int
		if err := rows.Scan(&status, &n); err != nil {
			return ports.StatusCounts{}, err
		}
		switch domain.TaskStatus(status) {
		case domain.TaskToDo:
			c.ToDo = n
		case domain.TaskInProgress:
			c.InProgress = n
		case domain.TaskDone:
			c.Done = n
		}
	}
	return c, rows.Err()
}

func (r *TaskRepository) loadAssignees(ctx context.Context, taskIDs []uuid.UUID) (map[uuid.UUID][]domain.UserID, error) {
	const query = `SELECT task_id, user_id FROM task_assignees WHERE task_id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, taskIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID][]domain.UserID)
	for rows.Next() {
		var taskID, userID uuid.UUID
		if err := rows.Scan(&taskID, &userID); err != nil {
			return nil, err
		}
		out[taskID] = append(out[taskID], domain.NewUserID(userID))
	}
	return out, rows.Err()
}

func insertAssignees(ctx context.Context, tx pgx.Tx, taskID domain.TaskID, assignees []domain.UserID) error {
	const insert = `INSERT INTO task_assignees (task_id, user_id) VALUES ($1, $2)`
	for _, a := range assignees {
		if _, err := tx.Exec(ctx, insert, taskID.UUID, a.UUID); err != nil {
			return err
		}
	}
	return nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	var status, priority int
	if err := row.Scan(
		&t.ID.UUID, &t.ProjectID.UUID, &t.Title, &status, &priority,
		&t.DueDate, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	t.Priority = domain.TaskPriority(priority)
	return &t, nil
}

var _ ports.TaskRepository = (*TaskRepository)(nil)
