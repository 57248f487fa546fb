// Package api provides the HTTP debug surface for a running simulation.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/warden/internal/agents"
	"github.com/talgya/warden/internal/engine"
	"github.com/talgya/warden/internal/geom"
	"github.com/talgya/warden/internal/persistence"
	"github.com/talgya/warden/internal/world"
)

const maxStreamConns = 4

// Server serves the simulation state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB // Optional; history endpoints need it.
	RunID    string          // Telemetry run the history endpoint reads.
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
	Logger   *slog.Logger

	// PathLimit caps /path queries per client per minute (0 = 60).
	PathLimit int
	// StreamInterval is the websocket push period (0 = 250ms).
	StreamInterval time.Duration

	streamConns atomic.Int32
	upgrader    websocket.Upgrader
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	limit := s.PathLimit
	if limit <= 0 {
		limit = 60
	}
	pathLimiter := NewRateLimiter(limit, time.Minute)
	origins := allowedOrigins()
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return checkOrigin(origins, r) },
	}

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/agent/", s.handleAgentRoutes)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/grid", s.handleGrid)
	mux.HandleFunc("/api/v1/path", RateLimitMiddleware(pathLimiter, s.handlePath))
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))

	return corsMiddleware(origins, mux)
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.logger().Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "telemetry", s.DB != nil)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	s.logger().Info("HTTP API stopped")
	return nil
}

// allowedOrigins lists the frontend origins that may call the API from a
// browser. Set CORS_ORIGINS env var to a comma-separated list of extra
// origins. Localhost dev servers are always allowed.
func allowedOrigins() map[string]bool {
	origins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				origins[origin] = true
			}
		}
	}
	return origins
}

// checkOrigin gates websocket upgrades. Clients that send no Origin (not a
// browser) and same-host pages are accepted; other pages must be allowed.
func checkOrigin(origins map[string]bool, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origins[origin] {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
func corsMiddleware(origins map[string]bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origins[origin] {
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

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no WARDEN_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	status := map[string]any{
		"name":     "warden",
		"tick":     snap.Tick,
		"sim_time": engine.SimTime(snap.Tick, s.Eng.FrameRate),
		"speed":    s.Eng.Speed(),
		"seed":     snap.Seed,
		"guards":   len(snap.Guards),
		"weather":  snap.Weather,
		"player":   snap.Player,
		"stats":    snap.Stats,
	}
	if s.RunID != "" {
		status["run"] = s.RunID
	}
	writeJSON(w, status)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	goal := r.URL.Query().Get("goal")

	type agentSummary struct {
		ID        agents.AgentID    `json:"id"`
		Name      string            `json:"name"`
		Archetype string            `json:"archetype"`
		Position  geom.Vec3         `json:"position"`
		Health    float64           `json:"health"`
		Goal      string            `json:"goal"`
		Action    string            `json:"action,omitempty"`
		Moving    agents.MoveStatus `json:"moving"`
	}

	result := []agentSummary{}
	for _, g := range s.Sim.Snapshot().Guards {
		if goal != "" && g.Goal != goal {
			continue
		}
		result = append(result, agentSummary{
			ID:        g.ID,
			Name:      g.Name,
			Archetype: g.Archetype,
			Position:  g.Position,
			Health:    g.Health,
			Goal:      g.Goal,
			Action:    g.Action,
			Moving:    g.Moving,
		})
	}
	writeJSON(w, result)
}

// handleAgentRoutes serves /agent/:id and /agent/:id/history.
func (s *Server) handleAgentRoutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 4 || parts[3] == "" {
		http.Error(w, "missing agent id", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseUint(parts[3], 10, 64)
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}
	snap, ok := s.Sim.Guard(agents.AgentID(id))
	if !ok {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}

	if len(parts) >= 5 && parts[4] == "history" {
		s.handleAgentHistory(w, r, snap.ID)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleAgentHistory(w http.ResponseWriter, r *http.Request, id agents.AgentID) {
	if s.DB == nil || s.RunID == "" {
		http.Error(w, "telemetry disabled", http.StatusServiceUnavailable)
		return
	}
	limit := queryLimit(r, 20, 200)
	frames, err := s.DB.RecentFrames(s.RunID, id, limit)
	if err != nil {
		s.logger().Error("history query failed", "agent", id, "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if frames == nil {
		frames = []persistence.Frame{}
	}
	writeJSON(w, frames)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50, 500)
	events := s.Sim.Events(0)

	// Optional category filter.
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := []engine.Event{}
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	writeJSON(w, events[start:])
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	grid := s.Sim.Grid()
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, grid.String())
		return
	}
	writeJSON(w, map[string]any{
		"stats":    grid.Stats(),
		"walkable": grid.WalkableCount(),
		"arena":    s.Sim.Arena().Summary(),
	})
}

// handlePath runs a search on demand: /path?from=x,z&to=x,z[&water=true].
func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := ParsePoint(q.Get("from"))
	if err != nil {
		http.Error(w, "from: "+err.Error(), http.StatusBadRequest)
		return
	}
	to, err := ParsePoint(q.Get("to"))
	if err != nil {
		http.Error(w, "to: "+err.Error(), http.StatusBadRequest)
		return
	}
	layers := world.LayersDry
	if q.Get("water") == "true" {
		layers |= world.LayerWater
	}

	path, found := s.Sim.Grid().FindPath(from, to, layers)
	if path == nil {
		path = []geom.Vec3{}
	}
	writeJSON(w, map[string]any{
		"from":      from,
		"to":        to,
		"layers":    layers.String(),
		"found":     found,
		"waypoints": path,
	})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		s.logger().Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

// streamFrame is one websocket message.
type streamFrame struct {
	Tick   uint64            `json:"tick"`
	Guards []agents.Snapshot `json:"guards"`
	Player engine.PlayerView `json:"player"`
	Events []engine.Event    `json:"events,omitempty"`
}

// handleStream pushes a frame every StreamInterval: guard snapshots plus
// events since the previous frame. Clients only listen; anything they send
// is discarded.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	current := s.streamConns.Add(1)
	defer s.streamConns.Add(-1)
	if current > maxStreamConns {
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reader: notices the client going away.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := s.StreamInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger().Info("stream client connected", "remote", r.RemoteAddr)
	var lastSeq uint64
	var lastTick uint64
	send := func() error {
		snap := s.Sim.Snapshot()
		events := s.Sim.EventsSince(lastSeq)
		if len(events) > 0 {
			lastSeq = events[len(events)-1].Seq
		}
		lastTick = snap.Tick
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteJSON(streamFrame{Tick: snap.Tick, Guards: snap.Guards, Player: snap.Player, Events: events})
	}

	err = send()
	for err == nil {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
			conn.Close()
			<-readDone
			s.logger().Info("stream client disconnected", "remote", r.RemoteAddr)
			return
		case <-ticker.C:
			if s.Sim.CurrentTick() == lastTick {
				continue
			}
			err = send()
		}
	}
	conn.Close()
	<-readDone
	s.logger().Info("stream client dropped", "remote", r.RemoteAddr, "error", err)
}

// ParsePoint parses "x,z" into a ground-level point.
func ParsePoint(v string) (geom.Vec3, error) {
	xs, zs, ok := strings.Cut(v, ",")
	if !ok {
		return geom.Vec3{}, fmt.Errorf("want x,z, got %q", v)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return geom.Vec3{}, fmt.Errorf("bad x: %w", err)
	}
	z, err := strconv.ParseFloat(strings.TrimSpace(zs), 64)
	if err != nil {
		return geom.Vec3{}, fmt.Errorf("bad z: %w", err)
	}
	return geom.XZ(x, z), nil
}

func queryLimit(r *http.Request, def, max int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= max {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
