package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/duploctl/internal/auth"
	"github.com/danmuck/duploctl/internal/hub"
	"github.com/danmuck/duploctl/internal/observability"
	"github.com/danmuck/duploctl/internal/telemetry"
	"github.com/danmuck/duploctl/internal/wearable"
)

const version = "0.1.0"

// Train is the controller surface the HTTP API drives.
type Train interface {
	Ports() hub.Ports
	SetMotorSpeed(ctx context.Context, portID uint8, speed int16) error
	PlaySound(ctx context.Context, portID, soundID uint8) error
	SetLight(ctx context.Context, portID, colorID uint8) error
	Stop(ctx context.Context) error
	Brake(ctx context.Context) error
	AttachedPorts() []hub.AttachedPort
}

// WearableSource reports the latest toothbrush snapshot.
type WearableSource interface {
	Last() (wearable.Event, bool)
}

type Option func(*Server)

// WithReady reports readiness from fn instead of always-ready.
func WithReady(fn func() bool) Option {
	return func(s *Server) { s.ready = fn }
}

// WithAuth requires a token accepted by v on the command endpoints.
func WithAuth(v auth.Validator) Option {
	return func(s *Server) { s.auth = v }
}

func WithWearable(src WearableSource) Option {
	return func(s *Server) { s.wearable = src }
}

// Server is the duplod HTTP surface: health, metrics, train commands and
// the live event stream.
type Server struct {
	ID       string
	Addr     string
	Appeared time.Time

	router   *gin.Engine
	train    Train
	events   *telemetry.Hub
	wearable WearableSource
	auth     auth.Validator
	ready    func() bool
}

func New(id, addr string, corsOrigins []string, train Train, events *telemetry.Hub, opts ...Option) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", auth.TokenHeader, observability.RequestIDHeader},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		ID:       id,
		Addr:     addr,
		Appeared: time.Now(),
		router:   r,
		train:    train,
		events:   events,
		ready:    func() bool { return true },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on Addr until ctx ends, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("service", s.ID).Str("addr", s.Addr).Msg("http listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
