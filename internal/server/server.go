// Package server wires the HTTP surface of the portal: the chi router, the
// session-validating middleware, and the module dispatch endpoint. Responses
// are JSON; page rendering is a downstream concern.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	companydomain "trasepad/backend/internal/company/domain"
	companyservice "trasepad/backend/internal/company/service"
	"trasepad/backend/internal/module"
	modulerepo "trasepad/backend/internal/module/repository"
	sessionservice "trasepad/backend/internal/session/service"
	statsrepo "trasepad/backend/internal/stats/repository"
	"trasepad/backend/internal/telemetry"
)

// SessionService is the session lifecycle surface the HTTP layer needs.
type SessionService interface {
	Login(ctx context.Context, identifier, credential, sourceAddr string) (*sessionservice.LoginResult, error)
	Validate(ctx context.Context, token, sourceAddr, module string) (*sessionservice.Access, error)
	Logout(ctx context.Context, token string) error
	LogoutAll(ctx context.Context, token, sourceAddr string) error
}

// CompanyService is the name-check surface used by the cmatch module handler.
type CompanyService interface {
	Search(ctx context.Context, substr string, limit int) ([]*companydomain.Company, error)
	FindMatches(ctx context.Context, rawName string) ([]*companydomain.Company, error)
	DedupeNames(names []string) []companyservice.Group
}

// Pinger reports storage liveness for the health endpoint.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps holds the collaborators the router needs.
type Deps struct {
	// Sessions handles login, validation, and logout. Required.
	Sessions SessionService
	// Registry maps module names to handlers for /exec dispatch. Required.
	Registry *module.Registry
	// Companies backs the cmatch module. If nil, cmatch is not registered.
	Companies CompanyService
	// Modules lists permitted modules for the menu. If nil, menu is not registered.
	Modules modulerepo.Repository
	// Stats backs the traffic-reporting module. If nil, traffic is not registered.
	Stats statsrepo.Repository
	// Pinger is checked by /healthz (e.g. *sql.DB). If nil, /healthz skips the DB ping.
	Pinger Pinger
	// Emitter receives access events after successful validation. May be nil.
	Emitter telemetry.EventEmitter
	// ServiceName names the otelhttp span root. Defaults to "trasepad".
	ServiceName string
}

type server struct {
	deps Deps
}

// NewRouter builds the HTTP handler: built-in modules registered, routes
// mounted, instrumentation wrapped around the whole tree.
func NewRouter(deps Deps) http.Handler {
	s := &server{deps: deps}
	s.registerBuiltinModules()

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Get("/healthz", s.handleHealthz)
	r.With(s.sessionAuth).Get("/exec", s.handleExec)
	r.With(s.sessionAuth).Post("/exec", s.handleExec)

	name := deps.ServiceName
	if name == "" {
		name = "trasepad"
	}
	return otelhttp.NewHandler(r, name)
}
