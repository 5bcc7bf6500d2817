package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	companydomain "trasepad/backend/internal/company/domain"
	companyservice "trasepad/backend/internal/company/service"
	"trasepad/backend/internal/module"
	"trasepad/backend/internal/server/requestctx"
)

// Built-in module names. Other tools register themselves on the same registry.
const (
	menuModuleName    = "menu"
	cmatchModuleName  = "cmatch"
	sctnddModuleName  = "sctndd"
	trafficModuleName = "traffic"
)

func (s *server) registerBuiltinModules() {
	if s.deps.Registry == nil {
		return
	}
	if s.deps.Modules != nil {
		s.deps.Registry.Register(menuModuleName, module.HandlerFunc(s.serveMenu))
	}
	if s.deps.Companies != nil {
		s.deps.Registry.Register(cmatchModuleName, module.HandlerFunc(s.serveCompanyMatch))
	}
	if s.deps.Stats != nil {
		s.deps.Registry.Register(trafficModuleName, module.HandlerFunc(s.serveTrafficReport))
	}
	s.deps.Registry.Register(sctnddModuleName, module.HandlerFunc(s.serveAnonymousSurvey))
}

type menuEntry struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// serveMenu lists the modules the session's permission flags may open.
func (s *server) serveMenu(w http.ResponseWriter, r *http.Request) {
	flags, _ := requestctx.GetFlags(r.Context())
	mods, err := s.deps.Modules.ListForFlags(r.Context(), flags)
	if err != nil {
		log.Printf("server: menu: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	entries := make([]menuEntry, 0, len(mods))
	for _, m := range mods {
		entries = append(entries, menuEntry{Name: m.Name, Title: m.Title})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"modules": entries})
}

type companyEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Year int    `json:"year"`
}

type dedupeRequest struct {
	Names []string `json:"names"`
}

type dedupeGroup struct {
	Representative string   `json:"representative"`
	Names          []string `json:"names"`
}

// serveCompanyMatch is the company name-check tool. The `a` query param picks
// the action: "search" (substring against stored names), "match" (fragment
// equivalence against stored companies, the default), or "dedupe" (POST,
// groups a submitted name list into equivalence classes).
func (s *server) serveCompanyMatch(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("a") {
	case "search":
		q := r.URL.Query().Get("q")
		if q == "" {
			writeError(w, http.StatusBadRequest, "missing query parameter q")
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		companies, err := s.deps.Companies.Search(r.Context(), q, limit)
		if err != nil {
			log.Printf("server: cmatch search: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeCompanies(w, companies)
	case "match", "":
		q := r.URL.Query().Get("q")
		if q == "" {
			writeError(w, http.StatusBadRequest, "missing query parameter q")
			return
		}
		companies, err := s.deps.Companies.FindMatches(r.Context(), q)
		if err != nil {
			if errors.Is(err, companyservice.ErrEmptyName) {
				writeError(w, http.StatusBadRequest, "name has no matchable content")
				return
			}
			log.Printf("server: cmatch match: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeCompanies(w, companies)
	case "dedupe":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "dedupe requires POST")
			return
		}
		var req dedupeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		groups := s.deps.Companies.DedupeNames(req.Names)
		out := make([]dedupeGroup, 0, len(groups))
		for _, g := range groups {
			out = append(out, dedupeGroup{Representative: g.Representative, Names: g.Names})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"groups": out})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}

func writeCompanies(w http.ResponseWriter, companies []*companydomain.Company) {
	entries := make([]companyEntry, 0, len(companies))
	for _, c := range companies {
		entries = append(entries, companyEntry{ID: c.ID, Name: c.Name, Year: c.Year})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"companies": entries})
}

type trafficEntry struct {
	Token string    `json:"token"`
	At    time.Time `json:"at"`
}

// serveTrafficReport reports access counts for one module: total hits within
// the window (`window`, default 24h) and the most recent entries.
func (s *server) serveTrafficReport(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("mod")
	if target == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter mod")
		return
	}
	window := 24 * time.Hour
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "invalid window")
			return
		}
		window = d
	}
	since := time.Now().UTC().Add(-window)

	count, err := s.deps.Stats.CountSince(r.Context(), target, since)
	if err != nil {
		log.Printf("server: traffic count: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	recent, err := s.deps.Stats.ListByModule(r.Context(), target, 20)
	if err != nil {
		log.Printf("server: traffic list: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	entries := make([]trafficEntry, 0, len(recent))
	for _, st := range recent {
		entries = append(entries, trafficEntry{Token: st.Token, At: st.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"module": target,
		"since":  since,
		"count":  count,
		"recent": entries,
	})
}

// serveAnonymousSurvey acknowledges public survey traffic. The middleware has
// already opened the anonymous session; the issued token comes back so the
// client can correlate follow-up requests in the traffic statistics.
func (s *server) serveAnonymousSurvey(w http.ResponseWriter, r *http.Request) {
	token, _ := requestctx.GetToken(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
