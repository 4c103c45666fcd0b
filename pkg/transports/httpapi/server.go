// Package httpapi exposes the assistant over HTTP and websocket.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harunnryd/flowlist/pkg/assistant"
	"github.com/harunnryd/flowlist/pkg/auth"
	"github.com/harunnryd/flowlist/pkg/llm"
	"github.com/harunnryd/flowlist/pkg/logging"
	"github.com/rs/cors"
)

// Responder is the part of the orchestrator the HTTP surface needs.
type Responder interface {
	RespondWithHooks(ctx context.Context, prior []llm.Message, user auth.Identity, hooks assistant.Hooks) (assistant.Reply, error)
	Tools() []llm.Tool
}

type Config struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 90 * time.Second
	}
	return c
}

type Options struct {
	Logger *slog.Logger
	// Stats backs GET /api/stats when set.
	Stats func() any
	Now   func() time.Time
}

type Server struct {
	cfg       Config
	responder Responder
	resolver  auth.Resolver
	opts      Options
	logger    *slog.Logger
	upgrader  websocket.Upgrader
	server    *http.Server
	handler   http.Handler

	draining atomic.Bool
	mu       sync.Mutex
	conns    map[*websocket.Conn]struct{}
	listener net.Listener
}

func New(cfg Config, responder Responder, resolver auth.Resolver, opts Options) *Server {
	cfg = cfg.withDefaults()
	if resolver == nil {
		resolver = auth.HeaderResolver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		cfg:       cfg,
		responder: responder,
		resolver:  resolver,
		opts:      opts,
		logger:    logging.NewComponentLogger(opts.Logger, "httpapi"),
		conns:     make(map[*websocket.Conn]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/chat/ws", s.handleWebsocket)
	mux.HandleFunc("GET /api/tools", s.handleTools)
	if opts.Stats != nil {
		mux.HandleFunc("GET /api/stats", s.handleStats)
	}
	s.handler = cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", auth.HeaderUserID, auth.HeaderName, auth.HeaderEmail},
	}).Handler(mux)

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

// Addr is the bound address once Serve is listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// Serve listens on the configured address until Drain is called.
func (s *Server) Serve() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("http_server_listening", "addr", ln.Addr().String())
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Drain stops accepting requests, closes websocket sessions and waits for
// in-flight requests until ctx is done.
func (s *Server) Drain(ctx context.Context) error {
	s.draining.Store(true)
	s.mu.Lock()
	for c := range s.conns {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = c.Close()
	}
	s.conns = make(map[*websocket.Conn]struct{})
	s.mu.Unlock()
	return s.server.Shutdown(ctx)
}

func (s *Server) track(c *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draining.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := strings.TrimRight(strings.TrimSpace(r.Header.Get("Origin")), "/")
	if origin == "" {
		return true
	}
	originHost := strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
	for _, allowed := range s.cfg.AllowedOrigins {
		a := strings.TrimRight(strings.TrimSpace(allowed), "/")
		switch {
		case a == "":
		case a == "*":
			return true
		case strings.HasPrefix(a, "http://") || strings.HasPrefix(a, "https://"):
			if strings.EqualFold(a, origin) {
				return true
			}
		case strings.EqualFold(a, originHost):
			return true
		}
	}
	return false
}
