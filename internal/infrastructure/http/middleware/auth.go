package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/authz"
	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
)

// TokenVerifier validates an access token and returns the user ID it carries.
type TokenVerifier interface {
	ValidateAccessToken(tokenString string) (string, error)
}

// PrincipalResolver validates the bearer token and resolves the caller's
// authorization context (see PrincipalFromContext). Unaffiliated users pass
// through with an organization-less principal; scope checks reject them per
// resource.
type PrincipalResolver struct {
	verifier TokenVerifier
	resolver *authz.Resolver
}

func NewPrincipalResolver(verifier TokenVerifier, resolver *authz.Resolver) *PrincipalResolver {
	return &PrincipalResolver{verifier: verifier, resolver: resolver}
}

func (m *PrincipalResolver) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			writeErr(w, http.StatusUnauthorized, "missing or invalid authorization")
			return
		}
		subject, err := m.verifier.ValidateAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeErr(w, http.StatusUnauthorized, "invalid token")
			return
		}
		userID, err := uuid.Parse(subject)
		if err != nil {
			writeErr(w, http.StatusUnauthorized, "invalid token subject")
			return
		}
		principal, err := m.resolver.Resolve(r.Context(), domain.NewUserID(userID))
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "principal resolution failed")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func writeErr(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
