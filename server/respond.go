package server

import (
	"encoding/json"
	"net/http"
	"strings"

	ierrors "github.com/jrsteele09/go-blog-server/internal/errors"
)

// errorResponse is the uniform error envelope for every failure response.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeCategorisedError maps a taxonomy error to its status code. message
// overrides the body text; when empty, client-facing categories (validation,
// upstream) surface the error's own message and everything else falls back
// to the category default so internal detail never leaks.
func (s *Server) writeCategorisedError(w http.ResponseWriter, err error, message string) {
	status := ierrors.HTTPStatus(err)
	if message == "" {
		if ierrors.Is(err, ierrors.ErrValidation) || ierrors.Is(err, ierrors.ErrUpstream) {
			message = capitalise(categoryDetail(err))
		} else {
			message = ierrors.CategoryMessage(err)
		}
	}
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("request failed")
	}
	writeError(w, status, message)
}

// categoryDetail strips the trailing ": <category>" wrap so only the
// human-written part of the message reaches the response body.
func categoryDetail(err error) string {
	msg := err.Error()
	for _, category := range []error{ierrors.ErrValidation, ierrors.ErrUpstream} {
		suffix := ": " + category.Error()
		if strings.HasSuffix(msg, suffix) {
			return strings.TrimSuffix(msg, suffix)
		}
	}
	return msg
}

// decodeJSONBody decodes a request body into v, reporting malformed input
// uniformly.
func decodeJSONBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return ierrors.Wrapf(ierrors.ErrValidation, "invalid JSON body")
	}
	return nil
}
