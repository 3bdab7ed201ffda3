package api

import (
	"encoding/json"
	"net/http"

	"carwash/internal/auth"
	apperrors "carwash/internal/errors"
	"carwash/internal/service"

	log "github.com/sirupsen/logrus"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   apperrors.Kind `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	he, ok := apperrors.As(err)
	if !ok {
		log.WithError(err).WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: apperrors.KindInternal, Message: "internal error"})
		return
	}
	writeJSON(w, he.Code, ErrorResponse{Error: he.Kind, Message: he.Message, Details: he.Details})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.ErrInvalidInput.Withf("invalid request body: %v", err)
	}
	return nil
}

// actor turns the verified token claims into the user the operation runs for.
func actor(r *http.Request) service.Actor {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return service.Actor{}
	}
	return service.Actor{UserID: claims.UserID, Admin: claims.IsAdmin}
}
