package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/gateway"
	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
	"github.com/yedlingit/TeamFlow-sub001/internal/infrastructure/http/middleware"
)

// TasksHandler handles /tasks/*. Requires the principal middleware.
type TasksHandler struct {
	gw *gateway.Gateway
}

// NewTasksHandler creates a handler for task endpoints.
func NewTasksHandler(gw *gateway.Gateway) *TasksHandler {
	return &TasksHandler{gw: gw}
}

// TaskResponse is the JSON shape for a task.
type TaskResponse struct {
	ID        string   `json:"id"`
	ProjectID string   `json:"project_id"`
	Title     string   `json:"title"`
	Status    string   `json:"status"`
	Priority  string   `json:"priority"`
	DueDate   *string  `json:"due_date,omitempty"`
	Assignees []string `json:"assignees"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

func taskResponse(t *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:        t.ID.String(),
		ProjectID: t.ProjectID.String(),
		Title:     t.Title,
		Status:    t.Status.String(),
		Priority:  t.Priority.String(),
		Assignees: make([]string, 0, len(t.Assignees)),
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
		UpdatedAt: t.UpdatedAt.Format(time.RFC3339),
	}
	for _, a := range t.Assignees {
		resp.Assignees = append(resp.Assignees, a.String())
	}
	if t.DueDate != nil {
		s := t.DueDate.Format(time.RFC3339)
		resp.DueDate = &s
	}
	return resp
}

type createTaskRequest struct {
	ProjectID string     `json:"project_id" validate:"required,uuid"`
	Title     string     `json:"title" validate:"required,max=255"`
	Status    string     `json:"status,omitempty"`
	Priority  string     `json:"priority,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	Assignees []string   `json:"assignees,omitempty" validate:"dive,uuid"`
}

// Create creates a task. Every assignee must belong to the project.
func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	var body createTaskRequest
	if !decodeValid(w, r, &body) {
		return
	}
	projectID, err := uuid.Parse(body.ProjectID)
	if err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid project id")
		return
	}
	in := gateway.CreateTaskInput{
		ProjectID: domain.NewProjectID(projectID),
		Title:     body.Title,
		DueDate:   body.DueDate,
	}
	if body.Status != "" {
		status, ok := domain.ParseTaskStatus(body.Status)
		if !ok {
			writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid status")
			return
		}
		in.Status = status
	}
	if body.Priority != "" {
		priority, ok := domain.ParseTaskPriority(body.Priority)
		if !ok {
			writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid priority")
			return
		}
		in.Priority = priority
	}
	assignees, ok := parseAssignees(w, body.Assignees)
	if !ok {
		return
	}
	in.Assignees = assignees
	task, err := h.gw.CreateTask(r.Context(), p, in)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	middleware.RecordMutation("task", "ok")
	writeJSON(w, http.StatusCreated, taskResponse(task))
}

// Get returns a task.
func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	taskID, ok := parseTaskID(w, r)
	if !ok {
		return
	}
	task, err := h.gw.GetTask(r.Context(), p, taskID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskResponse(task))
}

// ListByProject returns a project's tasks.
func (h *TasksHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	projectID, ok := parseProjectID(w, r)
	if !ok {
		return
	}
	tasks, err := h.gw.ListTasks(r.Context(), p, projectID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	items := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, taskResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": items})
}

// ListAssigned returns the caller's assigned tasks across the organization.
func (h *TasksHandler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	tasks, err := h.gw.ListAssignedTasks(r.Context(), p)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	items := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, taskResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": items})
}

type updateTaskRequest struct {
	Title        *string    `json:"title,omitempty" validate:"omitempty,max=255"`
	Status       *string    `json:"status,omitempty"`
	Priority     *string    `json:"priority,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	ClearDueDate bool       `json:"clear_due_date,omitempty"`
	Assignees    *[]string  `json:"assignees,omitempty"`
}

// Update applies the provided fields to a task. A Member caller may only
// send status.
func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	taskID, ok := parseTaskID(w, r)
	if !ok {
		return
	}
	var body updateTaskRequest
	if !decodeValid(w, r, &body) {
		return
	}
	in := gateway.UpdateTaskInput{
		Title:        body.Title,
		DueDate:      body.DueDate,
		ClearDueDate: body.ClearDueDate,
	}
	if body.Status != nil {
		status, ok := domain.ParseTaskStatus(*body.Status)
		if !ok {
			writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid status")
			return
		}
		in.Status = &status
	}
	if body.Priority != nil {
		priority, ok := domain.ParseTaskPriority(*body.Priority)
		if !ok {
			writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid priority")
			return
		}
		in.Priority = &priority
	}
	if body.Assignees != nil {
		assignees, ok := parseAssignees(w, *body.Assignees)
		if !ok {
			return
		}
		in.Assignees = &assignees
	}
	task, err := h.gw.UpdateTask(r.Context(), p, taskID, in)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	middleware.RecordMutation("task", "ok")
	writeJSON(w, http.StatusOK, taskResponse(task))
}

// Delete removes a task.
func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	taskID, ok := parseTaskID(w, r)
	if !ok {
		return
	}
	if err := h.gw.DeleteTask(r.Context(), p, taskID); err != nil {
		writeDomainErr(w, err)
		return
	}
	middleware.RecordMutation("task", "ok")
	w.WriteHeader(http.StatusNoContent)
}

func parseTaskID(w http.ResponseWriter, r *http.Request) (domain.TaskID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid task id")
		return domain.TaskID{}, false
	}
	return domain.NewTaskID(id), true
}

func parseAssignees(w http.ResponseWriter, raw []string) ([]domain.UserID, bool) {
	out := make([]domain.UserID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid assignee id")
			return nil, false
		}
		out = append(out, domain.NewUserID(id))
	}
	return out, true
}
