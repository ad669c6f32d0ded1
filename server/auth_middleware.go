package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-blog-server/credential"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyClaim stores the verified identity claim for the request
const ContextKeyClaim ContextKey = "claim"

// ClaimFromContext returns the verified claim injected by RequireAuth.
// ok is false on routes that did not pass through the guard.
func ClaimFromContext(ctx context.Context) (credential.Claim, bool) {
	claim, ok := ctx.Value(ContextKeyClaim).(credential.Claim)
	return claim, ok
}

// bearerToken extracts the credential from an Authorization header.
// A missing or malformed header is indistinguishable from no credential.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// RequireAuth is middleware that validates a Bearer credential and injects
// the verified claim into the request context. Handlers behind it never see
// an unauthenticated request.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			claim, err := s.codec.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaim, claim)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireElevated is middleware that gates elevated-role operations.
// Must be chained after RequireAuth so the claim is present.
func (s *Server) RequireElevated() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claim, ok := ClaimFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !claim.Elevated() {
				writeError(w, http.StatusForbidden, "Admin role required")
				return
			}
			next(w, r)
		}
	}
}

// optionalClaim verifies a credential when one is presented but does not
// reject the request without one. Used by read endpoints that personalise
// their response (likedByMe) for authenticated viewers.
func (s *Server) optionalClaim(r *http.Request) (credential.Claim, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return credential.Claim{}, false
	}
	claim, err := s.codec.Verify(token)
	if err != nil {
		return credential.Claim{}, false
	}
	return claim, true
}
