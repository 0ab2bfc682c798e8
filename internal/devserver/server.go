// Package devserver локальная замена удаленного сервиса заметок: REST API
// поверх in-memory учетных записей и коллекций (по одной на пользователя).
// Ошибки отдаются телом google.rpc.Status, как у grpc-gateway.
package devserver

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/tmc/grpc-websocket-proxy/wsproxy"

	"notes-client/internal/api/http/middleware"
	"notes-client/internal/config"
	"notes-client/internal/gateway/memory"
)

// Server состояние dev-сервера и его маршруты
type Server struct {
	cfg      *config.ConfigDevServer
	log      zerolog.Logger
	accounts *memory.Accounts
	latency  time.Duration

	mu    sync.Mutex
	notes map[string]*memory.Notes // userID -> коллекция пользователя

	gw *runtime.ServeMux
}

// New создает dev-сервер. Маршруты регистрируются сразу.
func New(cfg *config.ConfigDevServer, log zerolog.Logger) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		log:      log,
		accounts: memory.NewAccounts(memory.WithBcryptCost(cfg.BcryptCost)),
		latency:  time.Duration(cfg.Latency) * time.Millisecond,
		notes:    make(map[string]*memory.Notes),
		gw:       runtime.NewServeMux(),
	}
	if err := s.routes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Accounts реестр учетных записей (для тестов и внеполосной инвалидации)
func (s *Server) Accounts() *memory.Accounts {
	return s.accounts
}

// NotesFor возвращает коллекцию пользователя, создавая ее при первом обращении
func (s *Server) NotesFor(userID string) *memory.Notes {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[userID]
	if !ok {
		n = memory.NewNotes(userID, memory.WithLatency(s.latency))
		s.notes[userID] = n
	}
	return n
}

func (s *Server) dropNotes(userID string) {
	s.mu.Lock()
	delete(s.notes, userID)
	s.mu.Unlock()
}

// Handler возвращает HTTP handler с полным набором middleware.
// Применение middleware (в обратном порядке выполнения):
// 1. WebSocket Proxy (самый внешний слой, для браузерных клиентов потока событий)
// 2. CORS
// 3. Logging
// 4. Rate Limiting
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", s.gw)

	var handler http.Handler = mux
	handler = middleware.RateLimit(handler, s.cfg.RateLimitRPS, s.cfg.RateLimitBurst, s.log)
	handler = middleware.Logging(handler, s.log)
	handler = setupCORS(s.cfg).Handler(handler)
	// WebSocket proxy должен быть последним (самым внешним), чтобы корректно обрабатывать upgrade
	handler = wsproxy.WebsocketProxy(handler)
	return handler
}

// setupCORS настраивает CORS middleware используя конфигурацию
func setupCORS(cfg *config.ConfigDevServer) *cors.Cors {
	origins := strings.Split(cfg.CORSAllowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	maxAge := cfg.CORSMaxAge
	if maxAge == 0 {
		maxAge = 86400
	}

	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			"X-Requested-With",
		},
		AllowCredentials: true,
		MaxAge:           maxAge,
	})
}
