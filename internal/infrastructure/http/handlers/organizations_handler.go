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

// OrganizationsHandler handles /organizations/* and invite redemption.
// Requires the principal middleware.
type OrganizationsHandler struct {
	gw *gateway.Gateway
}

// NewOrganizationsHandler creates a handler for organization endpoints.
func NewOrganizationsHandler(gw *gateway.Gateway) *OrganizationsHandler {
	return &OrganizationsHandler{gw: gw}
}

// OrgResponse is the JSON shape for an organization. InviteCode is set only
// in responses to the creator and to administrators.
type OrgResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// MemberResponse is the JSON shape for an organization member.
type MemberResponse struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

func orgResponse(o *domain.Organization, includeCode bool) OrgResponse {
	resp := OrgResponse{
		ID:        o.ID.String(),
		Name:      o.Name,
		CreatedAt: o.CreatedAt.Format(time.RFC3339),
	}
	if includeCode {
		resp.InviteCode = o.InviteCode
	}
	return resp
}

// Create creates an organization with the caller as founding Administrator.
func (h *OrganizationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	var body struct {
		Name string `json:"name" validate:"required,max=255"`
	}
	if !decodeValid(w, r, &body) {
		return
	}
	org, err := h.gw.CreateOrganization(r.Context(), p.UserID, body.Name)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	middleware.RecordMutation("organization", "ok")
	writeJSON(w, http.StatusCreated, orgResponse(org, true))
}

// Get returns the organization. The invite code is visible to
// administrators only.
func (h *OrganizationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	orgID, ok := parseOrgID(w, r)
	if !ok {
		return
	}
	org, err := h.gw.GetOrganization(r.Context(), p, orgID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orgResponse(org, p.Role == domain.RoleAdministrator))
}

// ReissueInviteCode replaces the invite code. Administrator only.
func (h *OrganizationsHandler) ReissueInviteCode(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	orgID, ok := parseOrgID(w, r)
	if !ok {
		return
	}
	code, err := h.gw.ReissueInviteCode(r.Context(), p, orgID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	middleware.RecordMutation("organization", "ok")
	writeJSON(w, http.StatusOK, map[string]string{"invite_code": code})
}

// RedeemInvite joins the caller to the code's organization as Member.
// Re-redeeming against the same organization is a no-op success.
func (h *OrganizationsHandler) RedeemInvite(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	var body struct {
		Code string `json:"code" validate:"required,max=32"`
	}
	if !decodeValid(w, r, &body) {
		return
	}
	res, err := h.gw.RedeemInvite(r.Context(), body.Code, p.UserID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	middleware.RecordMutation("membership", "ok")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"organization_id": res.OrganizationID.String(),
		"role":            res.Role.String(),
		"joined":          res.Joined,
	})
}

// ListMembers returns the organization's memberships.
func (h *OrganizationsHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	orgID, ok := parseOrgID(w, r)
	if !ok {
		return
	}
	members, err := h.gw.ListMembers(r.Context(), p, orgID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	items := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		items = append(items, MemberResponse{
			UserID:    m.UserID.String(),
			Role:      m.Role.String(),
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"members": items})
}

// ChangeMemberRole overwrites a member's role. Administrator only.
func (h *OrganizationsHandler) ChangeMemberRole(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	orgID, ok := parseOrgID(w, r)
	if !ok {
		return
	}
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	var body struct {
		Role domain.Role `json:"role"`
	}
	if !decodeValid(w, r, &body) {
		return
	}
	if err := h.gw.ChangeMemberRole(r.Context(), p, orgID, userID, body.Role); err != nil {
		writeDomainErr(w, err)
		return
	}
	middleware.RecordMutation("membership", "ok")
	writeJSON(w, http.StatusOK, map[string]string{"role": body.Role.String()})
}

// RemoveMember removes a member, cascading project memberships and task
// assignments. Administrator only.
func (h *OrganizationsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	orgID, ok := parseOrgID(w, r)
	if !ok {
		return
	}
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	if err := h.gw.RemoveMember(r.Context(), p, orgID, userID); err != nil {
		writeDomainErr(w, err)
		return
	}
	middleware.RecordMutation("membership", "ok")
	w.WriteHeader(http.StatusNoContent)
}

func parseOrgID(w http.ResponseWriter, r *http.Request) (domain.OrganizationID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid organization id")
		return domain.OrganizationID{}, false
	}
	return domain.NewOrganizationID(id), true
}

func parseUserID(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid user id")
		return domain.UserID{}, false
	}
	return domain.NewUserID(id), true
}
