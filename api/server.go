package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/clickrace/server/game/clickrace"
	"github.com/clickrace/server/game/config"
	"github.com/clickrace/server/game/presence"
	"github.com/clickrace/server/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	rooms   *clickrace.Coordinator
	tracker *presence.Tracker
	configs *config.Manager
	hub     *websocket.Hub
	router  *mux.Router
	log     *zap.Logger
}

// NewServer creates a new API server
func NewServer(rooms *clickrace.Coordinator, tracker *presence.Tracker, configs *config.Manager, hub *websocket.Hub, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		rooms:   rooms,
		tracker: tracker,
		configs: configs,
		hub:     hub,
		router:  mux.NewRouter(),
		log:     log,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Rooms (read-only; mutations go over the WebSocket protocol)
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{id}", s.handleGetRoom).Methods("GET")

	// Presence
	api.HandleFunc("/presence", s.handlePresenceStats).Methods("GET")
	api.HandleFunc("/presence/{userId}", s.handleGetPresence).Methods("GET")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.hub.ServeWS)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Room Handlers

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := s.rooms.ListRooms()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"rooms": rooms,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	room, err := s.rooms.GetRoom(vars["id"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, room)
}

// Presence Handlers

func (s *Server) handlePresenceStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.tracker.Stats())
}

func (s *Server) handleGetPresence(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	snap, ok := s.tracker.Get(vars["userId"])
	if !ok {
		respondError(w, http.StatusNotFound, "userNotFound")
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.configs.ListConfigs()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := strings.TrimSuffix(vars["name"], ".json")

	cfg, err := s.configs.LoadConfig(name)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg config.Config

	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if cfg.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	if err := s.configs.SaveConfig(cfg.Name, &cfg); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"message": "Configuration saved successfully",
		"name":    cfg.Name,
	})
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"rooms":       s.rooms.RoomCount(),
		"connections": s.hub.ConnCount(),
	})
}
