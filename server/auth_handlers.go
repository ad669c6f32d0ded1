package server

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-blog-server/auth"
	"github.com/jrsteele09/go-blog-server/credential"
	"github.com/jrsteele09/go-blog-server/users"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type identityResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Token    string `json:"token,omitempty"`
	Message  string `json:"message,omitempty"`
}

// RegisterHandler creates an account and issues its first credential.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		identity, err := s.auth.Register(req.Username, req.Password)
		if err != nil {
			s.writeAuthError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, identityResponse{
			ID:       identity.Claim.SubjectID,
			Username: identity.Claim.Username,
			Role:     string(identity.Claim.Role),
			Token:    identity.Token,
			Message:  "Sign up successful",
		})
	}
}

// LoginHandler authenticates a username/password pair.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		identity, err := s.auth.Authenticate(req.Username, req.Password)
		if err != nil {
			s.writeAuthError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, identityResponse{
			ID:       identity.Claim.SubjectID,
			Username: identity.Claim.Username,
			Role:     string(identity.Claim.Role),
			Token:    identity.Token,
			Message:  "Login successful",
		})
	}
}

// MeHandler returns the identity behind the presented credential with the
// role re-read from the authoritative store, so a promotion or demotion is
// visible before the old token expires.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, _ := bearerToken(r) // RequireAuth already validated presence

		claim, err := s.auth.CurrentIdentity(token)
		if err != nil {
			s.writeAuthError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, identityResponse{
			ID:       claim.SubjectID,
			Username: claim.Username,
			Role:     string(claim.Role),
		})
	}
}

// RefreshHandler exchanges a still-valid credential for a fresh one
// carrying the account's current role.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		identity, err := s.auth.Refresh(token)
		if err != nil {
			s.writeAuthError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, identityResponse{
			ID:       identity.Claim.SubjectID,
			Username: identity.Claim.Username,
			Role:     string(identity.Claim.Role),
			Token:    identity.Token,
		})
	}
}

// writeAuthError maps credential-store failures onto the error taxonomy.
// Validation failures surface their message; authentication failures all
// share the same bodies so failure modes stay indistinguishable.
func (s *Server) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "Username and password are required")
	case errors.Is(err, users.ErrUsernameTooShort) || errors.Is(err, users.ErrPasswordTooShort):
		writeError(w, http.StatusBadRequest, capitalise(err.Error()))
	case errors.Is(err, users.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "Username already taken")
	case errors.Is(err, auth.ErrInvalidLogin):
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
	case errors.Is(err, credential.ErrInvalidCredential):
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, users.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	default:
		s.logger.Error().Err(err).Msg("auth request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func capitalise(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
