package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/matzehuels/geokit/pkg/errors"
)

type errorResponse struct {
	Error     string      `json:"error"`
	Code      errors.Code `json:"code,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.cfg.Logger.Warn("encode response failed", "path", r.URL.Path, "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= 500 {
		s.cfg.Logger.Error("request failed", "id", RequestIDFromContext(r.Context()), "path", r.URL.Path, "err", err)
	}
	msg := errors.UserMessage(err)
	if status >= 500 && errors.GetCode(err) == "" {
		msg = "internal server error"
	}
	s.writeJSON(w, r, status, errorResponse{
		Error:     msg,
		Code:      errors.GetCode(err),
		RequestID: RequestIDFromContext(r.Context()),
	})
}

// floatParam parses a required finite query parameter.
func floatParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errors.New(errors.ErrCodeInvalidInput, "missing query parameter %q", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "query parameter %q is not a number", name)
	}
	if err := errors.ValidateFinite(name, v); err != nil {
		return 0, err
	}
	return v, nil
}
