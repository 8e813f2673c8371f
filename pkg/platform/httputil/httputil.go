// Package httputil centralizes JSON response writing and the single place
// where domain errors become HTTP statuses.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"authgate/internal/auth/models"
	dErrors "authgate/pkg/domain-errors"
)

// WriteJSON writes a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteError translates a domain error into a JSON error envelope. Locked
// accounts additionally carry a Retry-After header and retry_after_seconds
// field. Internal errors never leak their description.
func WriteError(w http.ResponseWriter, err error) {
	if kind, ok := models.KindOf(err); ok {
		writeKind(w, err, kind)
		return
	}

	var de *dErrors.Error
	if errors.As(err, &de) {
		status := codeStatus(de.Code)
		envelope := map[string]string{"error": string(de.Code)}
		if status < http.StatusInternalServerError {
			envelope["error_description"] = de.Message
		}
		WriteJSON(w, status, envelope)
		return
	}

	WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
}

func writeKind(w http.ResponseWriter, err error, kind models.ErrorKind) {
	envelope := map[string]any{"error": string(kind)}

	if retryAfter, ok := models.RetryAfterOf(err); ok {
		seconds := int(retryAfter.Seconds())
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		envelope["retry_after_seconds"] = seconds
	}
	WriteJSON(w, kindStatus(kind), envelope)
}

// kindStatus maps authentication failure kinds to statuses. Unknown
// usernames and wrong passwords share a kind, so they share a status and
// body and remain indistinguishable at the boundary.
func kindStatus(kind models.ErrorKind) int {
	switch kind {
	case models.KindInvalidCredentials,
		models.KindAccountNotFound,
		models.KindTokenExpired,
		models.KindTokenInvalid,
		models.KindSessionNotFound,
		models.KindSessionRevoked:
		return http.StatusUnauthorized
	case models.KindAccountInactive:
		return http.StatusForbidden
	case models.KindAccountLocked:
		return http.StatusLocked
	case models.KindDependencyUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func codeStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodeValidation, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
