package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"dispatch-routing-service/internal/domain"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// writeDomainError maps engine errors onto HTTP statuses. Conflicts that a
// caller resolves by refreshing state are 409; inputs the engine understands
// but rejects are 422; provider failures are 502 and flagged retryable.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *domain.ProviderError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrJobAlreadyAssigned):
		writeError(w, r, http.StatusConflict, "job is already assigned to a stop")
	case errors.Is(err, domain.ErrRouteNotEmpty):
		writeError(w, r, http.StatusConflict, "route still has stops")
	case errors.Is(err, domain.ErrRouteBusy):
		writeError(w, r, http.StatusConflict, "route is being optimized, retry shortly")
	case errors.Is(err, domain.ErrRouteChanged):
		writeError(w, r, http.StatusConflict, "route stops changed during optimization, retry")
	case errors.Is(err, domain.ErrRouteAlreadyCompleted):
		writeError(w, r, http.StatusConflict, "route is already completed")
	case errors.Is(err, domain.ErrJobNotAssignable):
		writeError(w, r, http.StatusUnprocessableEntity, "job is not assignable")
	case errors.Is(err, domain.ErrInsufficientStops):
		writeError(w, r, http.StatusUnprocessableEntity, "route needs at least two geocoded stops")
	case errors.As(err, &pe):
		log.Printf("provider failure: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
		writeJSON(w, r, http.StatusBadGateway, map[string]any{
			"error":     "optimization provider failed",
			"retryable": pe.Retryable(),
		})
	default:
		log.Printf("request failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody decodes exactly one JSON object into v, rejecting unknown fields
// and trailing content.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain only one JSON object")
	}
	return nil
}
