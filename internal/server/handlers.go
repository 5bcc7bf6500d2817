package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	sessionservice "trasepad/backend/internal/session/service"
)

type loginRequest struct {
	// Identifier is the email address (email mode) or username (password mode).
	Identifier string `json:"identifier"`
	Credential string `json:"credential,omitempty"`
}

type loginResponse struct {
	UserID int64  `json:"user_id"`
	Token  string `json:"token,omitempty"`
	Detail string `json:"detail,omitempty"`
}

type logoutRequest struct {
	Token string `json:"token"`
	// All closes every open session for the token's user instead of just this one.
	All bool `json:"all,omitempty"`
}

// handleLogin opens a session for the posted identifier. When the service
// delivered the token by mail it travels only in the mailed link, so the
// response omits it regardless of what the caller posted.
func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	res, err := s.deps.Sessions.Login(r.Context(), req.Identifier, req.Credential, clientAddr(r))
	if err != nil {
		writeLoginError(w, err)
		return
	}
	out := loginResponse{UserID: res.UserID}
	if res.TokenByMail {
		out.Detail = "login link sent by mail"
	} else {
		out.Token = res.Token
	}
	writeJSON(w, http.StatusOK, out)
}

func writeLoginError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessionservice.ErrAddressFormatInvalid):
		writeError(w, http.StatusBadRequest, "invalid email address")
	case errors.Is(err, sessionservice.ErrDomainNotAllowed):
		writeError(w, http.StatusForbidden, "email domain not recognized")
	case errors.Is(err, sessionservice.ErrUserNotFound):
		writeError(w, http.StatusUnauthorized, "unknown user or wrong password")
	case errors.Is(err, sessionservice.ErrMailDelivery):
		log.Printf("server: login mail: %v", err)
		writeError(w, http.StatusBadGateway, "could not send login mail, try again later")
	default:
		log.Printf("server: login: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// handleLogout closes the posted session, or with all=true every open
// session of the token's user.
func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	var err error
	if req.All {
		err = s.deps.Sessions.LogoutAll(r.Context(), req.Token, clientAddr(r))
	} else {
		err = s.deps.Sessions.Logout(r.Context(), req.Token)
	}
	if err != nil {
		writeValidateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "logged out"})
}

// handleExec dispatches to the module named by `m`. The session middleware
// has already authenticated and authorized the request.
func (s *server) handleExec(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("m")
	h, ok := s.deps.Registry.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown module: "+name)
		return
	}
	h.ServeModule(w, r)
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Pinger != nil {
		if err := s.deps.Pinger.PingContext(r.Context()); err != nil {
			log.Printf("server: healthz: %v", err)
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
