package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	domerrors "github.com/yedlingit/TeamFlow-sub001/internal/domain/errors"
)

// writeErr sends JSON { "error": message, "code": errCode }. If errCode is empty, a default is used from code.
func writeErr(w http.ResponseWriter, code int, errCode string, message string) {
	if errCode == "" {
		errCode = defaultErrCode(code)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": errCode})
}

func defaultErrCode(httpCode int) string {
	switch httpCode {
	case http.StatusBadRequest:
		return ErrCodeInvalidRequest
	case http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case http.StatusForbidden:
		return ErrCodeForbidden
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusConflict:
		return ErrCodeConflict
	case http.StatusUnprocessableEntity:
		return ErrCodeInvalidReference
	case http.StatusInternalServerError:
		return ErrCodeInternal
	default:
		return ErrCodeInternal
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainErr maps the domain error taxonomy to HTTP. Denials carry their
// reason in the error message; detail beyond that is deliberately withheld.
func writeDomainErr(w http.ResponseWriter, err error) {
	if denied, ok := domerrors.AsDenied(err); ok {
		writeErr(w, http.StatusForbidden, ErrCodeForbidden, string(denied.Reason))
		return
	}
	switch {
	case errors.Is(err, domerrors.ErrNotFound):
		writeErr(w, http.StatusNotFound, ErrCodeNotFound, "resource not found")
	case errors.Is(err, domerrors.ErrConflict):
		writeErr(w, http.StatusConflict, ErrCodeConflict, "conflicting state")
	case errors.Is(err, domerrors.ErrInvalidReference):
		writeErr(w, http.StatusUnprocessableEntity, ErrCodeInvalidReference, "referenced entity does not exist in scope")
	case errors.Is(err, domerrors.ErrInvalidState):
		writeErr(w, http.StatusConflict, ErrCodeInvalidState, "operation not allowed in current state")
	default:
		writeErr(w, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}
