package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"livematch-service/config"
	"livematch-service/services"
)

// ConnectivityChecker 健康检查用的推送通道状态
type ConnectivityChecker interface {
	IsConnected() bool
}

type Server struct {
	config     *config.Config
	db         *sql.DB
	wsHub      *Hub
	store      *services.MatchStore
	cache      *services.QueryCache
	push       ConnectivityChecker
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

func NewServer(cfg *config.Config, db *sql.DB, hub *Hub, store *services.MatchStore, cache *services.QueryCache) *Server {
	return &Server{
		config: cfg,
		db:     db,
		wsHub:  hub,
		store:  store,
		cache:  cache,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有来源(生产环境需要限制)
			},
		},
	}
}

// SetPushChecker 注入推送通道状态源(健康检查用)
func (s *Server) SetPushChecker(c ConnectivityChecker) {
	s.push = c
}

func (s *Server) Start() error {
	router := mux.NewRouter()

	// API路由
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/matches/live", s.handleGetLiveMatches).Methods("GET")
	api.HandleFunc("/matches/{external_id}", s.handleGetMatch).Methods("GET")
	api.HandleFunc("/matches/{external_id}/events", s.handleGetMatchEvents).Methods("GET")
	api.HandleFunc("/incidents", s.handleGetIncidents).Methods("GET")

	// WebSocket路由
	router.HandleFunc("/ws", s.handleWebSocket)

	// CORS配置
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

// handleHealth 健康检查
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	pushConnected := false
	if s.push != nil {
		pushConnected = s.push.IsConnected()
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":         "ok",
		"time":           time.Now().Unix(),
		"push_connected": pushConnected,
	})
}

// handleWebSocket 处理WebSocket连接
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:      s.wsHub,
		conn:     conn,
		send:     make(chan []byte, 256),
		matchIDs: make(map[string]bool),
	}

	s.wsHub.register <- client

	go client.writePump()
	go client.readPump()
}
