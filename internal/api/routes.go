package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/profile-control/pcc/internal/auth"
	"github.com/profile-control/pcc/internal/manager"
	"github.com/profile-control/pcc/internal/profile"
)

// RegisterRoutes registers every endpoint on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	apiV1 := "/api/v1"

	mux.HandleFunc(apiV1+"/health", s.handleHealth)
	mux.Handle("/metrics", s.handleMetrics())

	read := s.protect(auth.ScopeRead)
	events := s.protect(auth.ScopeEvents)
	telemetry := s.protect(auth.ScopeTelemetry)

	mux.HandleFunc(apiV1+"/profiles", read(s.handleProfiles))
	mux.HandleFunc(apiV1+"/profiles/preferred", read(s.handlePreferred))
	mux.HandleFunc(apiV1+"/profiles/initial-attach", read(s.handleInitialAttach))
	mux.HandleFunc(apiV1+"/profiles/used", events(s.handleMarkUsed))
	mux.HandleFunc(apiV1+"/match", read(s.handleMatch))
	mux.HandleFunc(apiV1+"/match-all", read(s.handleMatchAll))
	mux.HandleFunc(apiV1+"/events/", events(s.handleEvent))
	mux.HandleFunc(apiV1+"/connected", events(s.handleConnected))
	mux.HandleFunc(apiV1+"/roaming", events(s.handleRoaming))
	mux.HandleFunc(apiV1+"/dump", read(s.handleDump))
	mux.HandleFunc(apiV1+"/telemetry", telemetry(s.handleTelemetry))
}

// protect wraps a handler with auth + scope when middleware is present.
func (s *Server) protect(scope string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if s.authMiddleware == nil {
			return next
		}
		return s.authMiddleware.RequireAuth(s.authMiddleware.RequireScope(scope)(next))
	}
}

// handleHealth handles GET /api/v1/health. No auth required.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed")
		return
	}

	snap := s.mgr.Snapshot()
	WriteSuccess(w, map[string]interface{}{
		"status":           "ok",
		"uptime":           time.Since(s.startTime).String(),
		"profileCount":     len(snap.Profiles),
		"telemetryClients": s.hub.ClientCount(),
	})
}

// handleProfiles handles GET /api/v1/profiles.
func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed")
		return
	}
	WriteSuccess(w, s.mgr.Snapshot())
}

// handlePreferred handles GET /api/v1/profiles/preferred.
func (s *Server) handlePreferred(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed")
		return
	}
	pref := s.mgr.Preferred()
	if pref == nil {
		WriteAPIError(w, http.StatusNotFound, "NOT_FOUND", "No preferred profile resolved")
		return
	}
	WriteSuccess(w, pref)
}

// handleInitialAttach handles GET /api/v1/profiles/initial-attach.
func (s *Server) handleInitialAttach(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed")
		return
	}
	attach := s.mgr.InitialAttach()
	if attach == nil {
		WriteAPIError(w, http.StatusNotFound, "NOT_FOUND", "No initial-attach profile resolved")
		return
	}
	WriteSuccess(w, attach)
}

// handleMatch handles POST /api/v1/match.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Capabilities []string `json:"capabilities"`
		NetworkType  string   `json:"networkType"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	caps, ok := parseCapabilities(w, req.Capabilities)
	if !ok {
		return
	}
	networkType, err := profile.ParseNetworkType(req.NetworkType)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	best, err := s.mgr.Match(caps, networkType)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteSuccess(w, best)
}

// handleMatchAll handles POST /api/v1/match-all.
func (s *Server) handleMatchAll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Capabilities []string `json:"capabilities"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	caps, ok := parseCapabilities(w, req.Capabilities)
	if !ok {
		return
	}
	ranked := s.mgr.MatchAll(caps)
	WriteSuccess(w, map[string]interface{}{"profiles": ranked})
}

// handleEvent handles POST /api/v1/events/{store-changed|config-updated|sim-refresh}.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only POST method is allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/v1/events/")
	var trigger manager.Trigger
	switch name {
	case "store-changed":
		trigger = manager.TriggerStoreChanged
	case "config-updated":
		trigger = manager.TriggerConfigUpdated
	case "sim-refresh":
		trigger = manager.TriggerSIMRefresh
	default:
		WriteAPIError(w, http.StatusNotFound, "NOT_FOUND", "Unknown event type")
		return
	}

	s.mgr.Notify(trigger)
	WriteSuccess(w, map[string]string{"triggered": string(trigger)})
}

// handleConnected handles POST /api/v1/connected: internet connections
// using the listed store rows are confirmed healthy.
func (s *Server) handleConnected(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RowIDs []int64 `json:"rowIds"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.RowIDs) == 0 {
		WriteAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "rowIds must not be empty")
		return
	}

	if err := s.mgr.OnInternetConnected(req.RowIDs); err != nil {
		WriteAPIError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	WriteSuccess(w, map[string]interface{}{"rowIds": req.RowIDs})
}

// handleMarkUsed handles POST /api/v1/profiles/used.
func (s *Server) handleMarkUsed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RowID int64 `json:"rowId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if !s.mgr.MarkUsed(req.RowID) {
		WriteAPIError(w, http.StatusNotFound, "NOT_FOUND", "Unknown profile row")
		return
	}
	WriteSuccess(w, map[string]int64{"rowId": req.RowID})
}

// handleRoaming handles GET and POST /api/v1/roaming.
func (s *Server) handleRoaming(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		WriteSuccess(w, map[string]bool{"dataRoaming": s.roaming.DataRoaming()})
	case http.MethodPost:
		var req struct {
			DataRoaming *bool `json:"dataRoaming"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.DataRoaming == nil {
			WriteAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "dataRoaming is required")
			return
		}
		s.roaming.SetDataRoaming(*req.DataRoaming)
		// Re-push so the modem sees the new flag.
		s.mgr.Notify(manager.TriggerConfigUpdated)
		WriteSuccess(w, map[string]bool{"dataRoaming": *req.DataRoaming})
	default:
		WriteAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET and POST methods are allowed")
	}
}

// handleDump handles GET /api/v1/dump.
func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed")
		return
	}

	snap, log := s.mgr.Dump()
	WriteSuccess(w, map[string]interface{}{
		"snapshot": snap,
		"log":      log,
	})
}

// handleTelemetry handles GET /api/v1/telemetry (SSE).
func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed")
		return
	}
	_ = s.hub.Subscribe(r.Context(), w, r)
}

// decodeBody parses a strict JSON POST body into dst. Writes the error
// response and returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Method != http.MethodPost {
		WriteAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only POST method is allowed")
		return false
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "Malformed JSON or unknown fields")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		WriteAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "Trailing data after JSON object")
		return false
	}
	return true
}

// parseCapabilities resolves capability names into a bitmask. Writes the
// error response and returns false on failure.
func parseCapabilities(w http.ResponseWriter, names []string) (profile.Capability, bool) {
	if len(names) == 0 {
		WriteAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "capabilities must not be empty")
		return 0, false
	}
	var caps profile.Capability
	for _, name := range names {
		c, err := profile.ParseCapability(name)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
			return 0, false
		}
		caps |= c
	}
	return caps, true
}
