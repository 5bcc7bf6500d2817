package server

import (
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"trasepad/backend/internal/server/requestctx"
	sessionservice "trasepad/backend/internal/session/service"
	"trasepad/backend/internal/telemetry"
	telemetrydomain "trasepad/backend/internal/telemetry/domain"
)

// sessionAuth validates the session token (`u`) against the requested module
// (`m`) before the request reaches a handler. On success the validated
// identity is placed in the request context and an access event is emitted;
// on failure the sentinel error picks the status code and the stored detail
// stays out of the response body.
func (s *server) sessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("u")
		moduleName := r.URL.Query().Get("m")
		addr := clientAddr(r)

		access, err := s.deps.Sessions.Validate(r.Context(), token, addr, moduleName)
		if err != nil {
			writeValidateError(w, err)
			return
		}

		ctx := requestctx.WithIdentity(r.Context(), access.UserID, access.Token, access.PermissionFlags)
		ctx = requestctx.WithSourceAddr(ctx, addr)

		telemetry.EmitAsync(s.deps.Emitter, ctx, &telemetrydomain.AccessEvent{
			Token:      access.Token,
			Module:     moduleName,
			UserID:     access.UserID,
			SourceAddr: addr,
			OccurredAt: time.Now().UTC(),
		})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeValidateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessionservice.ErrMalformedToken):
		writeError(w, http.StatusBadRequest, "invalid session token, please log in again")
	case errors.Is(err, sessionservice.ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, "session expired, please log in again")
	case errors.Is(err, sessionservice.ErrPermissionDenied):
		// Names the module; carries no stored detail.
		writeError(w, http.StatusForbidden, err.Error())
	default:
		log.Printf("server: session validation: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// clientAddr returns the client IP without the port. RealIP middleware has
// already resolved X-Forwarded-For into RemoteAddr where trusted.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
