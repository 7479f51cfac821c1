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

// ProjectsHandler handles /projects/*. Requires the principal middleware.
type ProjectsHandler struct {
	gw *gateway.Gateway
}

// NewProjectsHandler creates a handler for project endpoints.
func NewProjectsHandler(gw *gateway.Gateway) *ProjectsHandler {
	return &ProjectsHandler{gw: gw}
}

// ProjectResponse is the JSON shape for a project. Progress and UpdatedAt
// are derived fields; they are read-only at this boundary.
type ProjectResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	TeamLeaderID *string `json:"team_leader_id,omitempty"`
	Status       string  `json:"status"`
	Theme        string  `json:"theme,omitempty"`
	DueDate      *string `json:"due_date,omitempty"`
	Progress     int     `json:"progress"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// ProjectDetailResponse adds membership and task counts to ProjectResponse.
type ProjectDetailResponse struct {
	ProjectResponse
	TaskCount   int                     `json:"task_count"`
	MemberCount int                     `json:"member_count"`
	Members     []ProjectMemberResponse `json:"members"`
}

// ProjectMemberResponse is the JSON shape for a project member.
type ProjectMemberResponse struct {
	UserID    string `json:"user_id"`
	RoleLabel string `json:"role_label,omitempty"`
	JoinedAt  string `json:"joined_at"`
}

func projectResponse(p *domain.Project) ProjectResponse {
	resp := ProjectResponse{
		ID:        p.ID.String(),
		Name:      p.Name,
		Status:    string(p.Status),
		Theme:     p.Theme,
		Progress:  p.Progress,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
	if p.TeamLeaderID != nil {
		s := p.TeamLeaderID.String()
		resp.TeamLeaderID = &s
	}
	if p.DueDate != nil {
		s := p.DueDate.Format(time.RFC3339)
		resp.DueDate = &s
	}
	return resp
}

type createProjectRequest struct {
	Name         string     `json:"name" validate:"required,max=255"`
	TeamLeaderID *string    `json:"team_leader_id,omitempty" validate:"omitempty,uuid"`
	Status       string     `json:"status,omitempty"`
	Theme        string     `json:"theme,omitempty" validate:"max=64"`
	DueDate      *time.Time `json:"due_date,omitempty"`
}

// Create creates a project in the caller's organization.
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	var body createProjectRequest
	if !decodeValid(w, r, &body) {
		return
	}
	in := gateway.CreateProjectInput{
		Name:    body.Name,
		Theme:   body.Theme,
		DueDate: body.DueDate,
	}
	if body.Status != "" {
		status, ok := domain.ParseProjectStatus(body.Status)
		if !ok {
			writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid status")
			return
		}
		in.Status = status
	}
	if body.TeamLeaderID != nil {
		id, err := uuid.Parse(*body.TeamLeaderID)
		if err != nil {
			writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid team leader id")
			return
		}
		lid := domain.NewUserID(id)
		in.TeamLeaderID = &lid
	}
	proj, err := h.gw.CreateProject(r.Context(), p, in)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	middleware.RecordMutation("project", "ok")
	writeJSON(w, http.StatusCreated, projectResponse(proj))
}

// Get returns a project detail with derived progress and member list.
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	projectID, ok := parseProjectID(w, r)
	if !ok {
		return
	}
	detail, err := h.gw.GetProject(r.Context(), p, projectID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	members := make([]ProjectMemberResponse, 0, len(detail.Members))
	for _, m := range detail.Members {
		members = append(members, ProjectMemberResponse{
			UserID:    m.UserID.String(),
			RoleLabel: m.RoleLabel,
			JoinedAt:  m.JoinedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, ProjectDetailResponse{
		ProjectResponse: projectResponse(detail.Project),
		TaskCount:       detail.TaskCount,
		MemberCount:     detail.MemberCount,
		Members:         members,
	})
}

// List returns the projects visible to the caller: the whole organization
// for TeamLeader and Administrator, assigned projects for Member.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	projects, err := h.gw.ListProjects(r.Context(), p)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	items := make([]ProjectResponse, 0, len(projects))
	for _, proj := range projects {
		items = append(items, projectResponse(proj))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": items})
}

type updateProjectRequest struct {
	Name            *string    `json:"name,omitempty" validate:"omitempty,max=255"`
	Status          *string    `json:"status,omitempty"`
	Theme           *string    `json:"theme,omitempty" validate:"omitempty,max=64"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	ClearDueDate    bool       `json:"clear_due_date,omitempty"`
	TeamLeaderID    *string    `json:"team_leader_id,omitempty" validate:"omitempty,uuid"`
	ClearTeamLeader bool       `json:"clear_team_leader,omitempty"`
}

// Update applies the provided fields to a project.
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	projectID, ok := parseProjectID(w, r)
	if !ok {
		return
	}
	var body updateProjectRequest
	if !decodeValid(w, r, &body) {
		return
	}
	in := gateway.UpdateProjectInput{
		Name:            body.Name,
		Theme:           body.Theme,
		DueDate:         body.DueDate,
		ClearDueDate:    body.ClearDueDate,
		ClearTeamLeader: body.ClearTeamLeader,
	}
	if body.Status != nil {
		status, ok := domain.ParseProjectStatus(*body.Status)
		if !ok {
			writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid status")
			return
		}
		in.Status = &status
	}
	if body.TeamLeaderID != nil {
		id, err := uuid.Parse(*body.TeamLeaderID)
		if err != nil {
			writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid team leader id")
			return
		}
		lid := domain.NewUserID(id)
		in.TeamLeaderID = &lid
	}
	proj, err := h.gw.UpdateProject(r.Context(), p, projectID, in)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	middleware.RecordMutation("project", "ok")
	writeJSON(w, http.StatusOK, projectResponse(proj))
}

// Delete removes a project, cascading its tasks and memberships.
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	projectID, ok := parseProjectID(w, r)
	if !ok {
		return
	}
	if err := h.gw.DeleteProject(r.Context(), p, projectID); err != nil {
		writeDomainErr(w, err)
		return
	}
	middleware.RecordMutation("project", "ok")
	w.WriteHeader(http.StatusNoContent)
}

// AddMember adds an organization member to the project.
func (h *ProjectsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	projectID, ok := parseProjectID(w, r)
	if !ok {
		return
	}
	var body struct {
		UserID    string `json:"user_id" validate:"required,uuid"`
		RoleLabel string `json:"role_label,omitempty" validate:"max=64"`
	}
	if !decodeValid(w, r, &body) {
		return
	}
	id, err := uuid.Parse(body.UserID)
	if err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid user id")
		return
	}
	if err := h.gw.AddProjectMember(r.Context(), p, projectID, domain.NewUserID(id), body.RoleLabel); err != nil {
		writeDomainErr(w, err)
		return
	}
	middleware.RecordMutation("membership", "ok")
	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember removes a project member, unassigning them from the
// project's tasks.
func (h *ProjectsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	projectID, ok := parseProjectID(w, r)
	if !ok {
		return
	}
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	if err := h.gw.RemoveProjectMember(r.Context(), p, projectID, userID); err != nil {
		writeDomainErr(w, err)
		return
	}
	middleware.RecordMutation("membership", "ok")
	w.WriteHeader(http.StatusNoContent)
}

func parseProjectID(w http.ResponseWriter, r *http.Request) (domain.ProjectID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid project id")
		return domain.ProjectID{}, false
	}
	return domain.NewProjectID(id), true
}
