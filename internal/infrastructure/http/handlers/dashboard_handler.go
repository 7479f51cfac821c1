package handlers

import (
	"net/http"
	"time"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/authz"
	"github.com/yedlingit/TeamFlow-sub001/internal/application/derived"
	"github.com/yedlingit/TeamFlow-sub001/internal/infrastructure/http/middleware"
)

// DashboardHandler serves the per-organization derived summary. Any member
// of the organization may view it.
type DashboardHandler struct {
	maintainer *derived.Maintainer
	engine     *authz.Engine
}

// NewDashboardHandler creates a handler for the dashboard endpoint.
func NewDashboardHandler(maintainer *derived.Maintainer, engine *authz.Engine) *DashboardHandler {
	return &DashboardHandler{maintainer: maintainer, engine: engine}
}

type upcomingTaskResponse struct {
	TaskID    string `json:"task_id"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Priority  string `json:"priority"`
	DueDate   string `json:"due_date"`
}

type projectSummaryResponse struct {
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Progress    int    `json:"progress"`
	TaskCount   int    `json:"task_count"`
	MemberCount int    `json:"member_count"`
}

type dashboardResponse struct {
	TaskTotal      int `json:"task_total"`
	TaskToDo       int `json:"task_todo"`
	TaskInProgress int `json:"task_in_progress"`
	TaskDone       int `json:"task_done"`

	ProjectTotal    int `json:"project_total"`
	ProjectActive   int `json:"project_active"`
	ProjectInactive int `json:"project_inactive"`

	Upcoming       []upcomingTaskResponse   `json:"upcoming"`
	ActiveProjects []projectSummaryResponse `json:"active_projects"`

	ComputedAt string `json:"computed_at"`
}

// Get returns the organization dashboard.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	orgID, ok := parseOrgID(w, r)
	if !ok {
		return
	}
	if err := h.engine.Check(r.Context(), p, authz.ActionView, authz.OrganizationResource(orgID)); err != nil {
		writeDomainErr(w, err)
		return
	}
	agg, err := h.maintainer.AggregateFor(r.Context(), orgID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	resp := dashboardResponse{
		TaskTotal:       agg.TaskTotal,
		TaskToDo:        agg.TaskToDo,
		TaskInProgress:  agg.TaskInProgress,
		TaskDone:        agg.TaskDone,
		ProjectTotal:    agg.ProjectTotal,
		ProjectActive:   agg.ProjectActive,
		ProjectInactive: agg.ProjectInactive,
		Upcoming:        make([]upcomingTaskResponse, 0, len(agg.Upcoming)),
		ActiveProjects:  make([]projectSummaryResponse, 0, len(agg.ActiveProjects)),
		ComputedAt:      agg.ComputedAt.Format(time.RFC3339),
	}
	for _, u := range agg.Upcoming {
		resp.Upcoming = append(resp.Upcoming, upcomingTaskResponse{
			TaskID:    u.TaskID.String(),
			ProjectID: u.ProjectID.String(),
			Title:     u.Title,
			Status:    u.Status.String(),
			Priority:  u.Priority.String(),
			DueDate:   u.DueDate.Format(time.RFC3339),
		})
	}
	for _, s := range agg.ActiveProjects {
		resp.ActiveProjects = append(resp.ActiveProjects, projectSummaryResponse{
			ProjectID:   s.ProjectID.String(),
			Name:        s.Name,
			Progress:    s.Progress,
			TaskCount:   s.TaskCount,
			MemberCount: s.MemberCount,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
