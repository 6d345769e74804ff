// Package api provides the HTTP API for playing and observing the world.
// GET endpoints and actions are open; speed and save require the admin
// bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/talgya/hinterland/internal/engine"
	"github.com/talgya/hinterland/internal/persistence"
	"github.com/talgya/hinterland/internal/village"
	"github.com/talgya/hinterland/internal/world"
)

const (
	maxStreams    = 8
	maxBodyBytes  = 64 << 10
	defaultLimit  = 20
	maxQueryLimit = 500
)

// Server serves the world over HTTP.
type Server struct {
	Eng      *engine.Engine
	DB       *persistence.DB // Optional; enables the report archive
	Port     int
	AdminKey string // Bearer token for admin endpoints. Empty = admin disabled.

	limiter  *RateLimiter
	schemas  map[string]*jsonschema.Schema
	upgrader websocket.Upgrader
	streams  atomic.Int32
}

// NewServer compiles the request schemas and prepares the action rate
// limiter: 10 actions per second per client with bursts of 20.
func NewServer(eng *engine.Engine, db *persistence.DB, port int, adminKey string) (*Server, error) {
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	return &Server{
		Eng:      eng,
		DB:       db,
		Port:     port,
		AdminKey: adminKey,
		limiter:  NewRateLimiter(10, 20),
		schemas:  schemas,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 << 10,
			WriteBufferSize: 16 << 10,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}, nil
}

// Handler builds the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Queries.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/villages", s.handleVillages)
	mux.HandleFunc("GET /api/v1/village/{id}", s.handleVillage)
	mux.HandleFunc("GET /api/v1/missions", s.handleMissions)
	mux.HandleFunc("GET /api/v1/reports", s.handleReports)
	mux.HandleFunc("GET /api/v1/profiles", s.handleProfiles)
	mux.HandleFunc("GET /api/v1/map", s.handleMap)
	mux.HandleFunc("GET /api/v1/catalog", s.handleCatalog)

	// Live report and tick stream.
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)

	// Player actions.
	actions := map[string]http.HandlerFunc{
		"build":    s.handleBuild,
		"research": s.handleResearch,
		"train":    s.handleTrain,
		"cancel":   s.handleCancel,
		"mission":  s.handleMission,
		"recall":   s.handleRecall,
		"explore":  s.handleExplore,
		"rename":   s.handleRename,
	}
	for name, h := range actions {
		mux.HandleFunc("POST /api/v1/actions/"+name, RateLimitMiddleware(s.limiter, h))
	}

	// Admin endpoints.
	mux.HandleFunc("GET /api/v1/speed", s.handleSpeed)
	mux.HandleFunc("POST /api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("POST /api/v1/save", s.adminOnly(s.handleSave))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine. The returned server
// can be shut down by the caller.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no HINTERLAND_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Eng.Status()
	writeJSON(w, map[string]any{
		"name":          "Hinterland",
		"time":          st.Time,
		"speed":         st.Speed,
		"running":       st.Running,
		"villages":      st.Villages,
		"missions":      st.Missions,
		"reports":       st.Reports,
		"player_points": st.PlayerPoints,
		"last_save":     st.LastSave,
		"map_size":      s.Eng.MapSize(),
	})
}

func (s *Server) handleVillages(w http.ResponseWriter, r *http.Request) {
	owner := village.Owner(r.URL.Query().Get("owner"))
	villages := s.Eng.Villages(owner)
	if villages == nil {
		villages = []*village.Village{}
	}
	writeJSON(w, villages)
}

// villageDetail is a village plus everything derived from it.
type villageDetail struct {
	*village.Village
	Economy   engine.EconomyView                         `json:"economy"`
	QueueView map[village.QueueKind][]engine.QueueItem `json:"queue_view"`
	Missions  []*engine.Mission                          `json:"missions"`
}

func (s *Server) handleVillage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid village id", http.StatusBadRequest)
		return
	}
	v, ok := s.Eng.Village(village.ID(id))
	if !ok {
		http.Error(w, "village not found", http.StatusNotFound)
		return
	}
	econ, err := s.Eng.Economy(v.ID)
	if err != nil {
		writeActionError(w, err)
		return
	}
	queues, err := s.Eng.Queues(v.ID)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, villageDetail{
		Village:   v,
		Economy:   econ,
		QueueView: queues,
		Missions:  s.Eng.Missions(v.ID),
	})
}

func (s *Server) handleMissions(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "village", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, s.Eng.Missions(village.ID(id)))
}

// handleReports serves the in-world history, or the long-term archive
// with ?archive=true when a database is attached.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "village", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := uintParam(r, "limit", defaultLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit = min(limit, maxQueryLimit)

	if r.URL.Query().Get("archive") == "true" {
		if s.DB == nil {
			http.Error(w, "no report archive", http.StatusNotFound)
			return
		}
		reports, err := s.DB.RecentReports(r.Context(), int(limit))
		if err != nil {
			slog.Error("report archive query failed", "error", err)
			http.Error(w, "archive unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, reports)
		return
	}

	reports := s.Eng.Reports(village.ID(id), int(limit))
	if reports == nil {
		reports = []engine.Report{}
	}
	writeJSON(w, reports)
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Eng.Profiles())
}

// handleMap returns the explored tiles inside x0,y0 .. x1,y1, the whole map
// by default.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	size := s.Eng.MapSize()
	var bounds [4]int
	for i, p := range []struct {
		name string
		def  int
	}{{"x0", 0}, {"y0", 0}, {"x1", size}, {"y1", size}} {
		n, err := intParam(r, p.name, p.def)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		bounds[i] = n
	}
	tiles := s.Eng.Tiles(world.Coord{X: bounds[0], Y: bounds[1]}, world.Coord{X: bounds[2], Y: bounds[3]})
	if tiles == nil {
		tiles = []world.Tile{}
	}
	writeJSON(w, map[string]any{
		"size":  size,
		"tiles": tiles,
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.Eng.Catalog()
	writeJSON(w, map[string]any{
		"buildings": cat.Buildings(),
		"units":     cat.Units(),
	})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if !s.decode(w, r, "speed", &req) {
			return
		}
		s.Eng.SetSpeed(req.Speed)
	}
	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	if err := s.Eng.SaveNow(ctx); err != nil {
		slog.Error("manual save failed", "error", err)
		http.Error(w, "save failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"saved": true, "last_save": s.Eng.Status().LastSave})
}

// writeActionError maps a rejection to 422 with its reason code and
// anything else to 500.
func writeActionError(w http.ResponseWriter, err error) {
	if rej, ok := engine.AsRejection(err); ok {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, engine.ErrVillageNotFound) {
			status = http.StatusNotFound
		}
		writeJSONStatus(w, status, rej)
		return
	}
	slog.Error("action failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func uintParam(r *http.Request, name string, def uint64) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
