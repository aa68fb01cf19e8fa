// Package worker provides the HTTP service for sitelog.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm/logger"

	"github.com/thebtf/sitelog/internal/auth"
	"github.com/thebtf/sitelog/internal/cache"
	"github.com/thebtf/sitelog/internal/chat"
	"github.com/thebtf/sitelog/internal/config"
	gormdb "github.com/thebtf/sitelog/internal/db/gorm"
	"github.com/thebtf/sitelog/internal/llm"
	"github.com/thebtf/sitelog/internal/notify"
	"github.com/thebtf/sitelog/internal/search"
	"github.com/thebtf/sitelog/internal/telemetry"
	"github.com/thebtf/sitelog/internal/worker/sse"
)

// RequestTimeout bounds every HTTP request, including the model call.
const RequestTimeout = 60 * time.Second

// Service is the sitelog HTTP service.
type Service struct {
	version string
	config  *config.Config

	store         *gormdb.Store
	catalog       *gormdb.CatalogStore
	logs          *gormdb.LogStore
	actionItems   *gormdb.ActionItemStore
	conversations *gormdb.ConversationStore
	snapshots     *gormdb.SnapshotStore

	chat           *chat.Service
	search         *search.Index
	cache          *cache.Cache
	listener       *notify.Listener
	sseBroadcaster *sse.Broadcaster
	metrics        *telemetry.Metrics
	verifier       *auth.Verifier

	router     *chi.Mux
	server     *http.Server
	grpcServer *grpc.Server
	health     *health.Server
	netLn      net.Listener

	ready     atomic.Bool
	initErr   error
	initErrMu sync.RWMutex
	initOnce  sync.Once

	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

type options struct {
	completer    llm.Completer
	hasCompleter bool
	chatOpts     []chat.Option
	metrics      *telemetry.Metrics
}

// Option customizes a Service.
type Option func(*options)

// WithCompleter replaces the model client. A nil completer behaves as if no
// credential were configured.
func WithCompleter(c llm.Completer) Option {
	return func(o *options) {
		o.completer = c
		o.hasCompleter = true
	}
}

// WithChatOptions passes options to the chat service.
func WithChatOptions(opts ...chat.Option) Option {
	return func(o *options) { o.chatOpts = append(o.chatOpts, opts...) }
}

// WithMetrics records telemetry on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// NewService opens the store and wires every component. The service is not
// ready until initialize completes.
func NewService(version string, cfg *config.Config, opts ...Option) (*Service, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store, err := gormdb.NewStore(gormdb.Config{
		Driver:   cfg.DBDriver,
		Path:     cfg.DBPath,
		DSN:      cfg.DBDSN,
		MaxConns: cfg.MaxConns,
		LogLevel: logger.Silent,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		version:        version,
		config:         cfg,
		store:          store,
		catalog:        gormdb.NewCatalogStore(store),
		logs:           gormdb.NewLogStore(store),
		actionItems:    gormdb.NewActionItemStore(store),
		conversations:  gormdb.NewConversationStore(store),
		sseBroadcaster: sse.NewBroadcaster(),
		metrics:        o.metrics,
		verifier:       auth.NewVerifier(cfg.APITokenHash),
		router:         chi.NewRouter(),
		health:         health.NewServer(),
		ctx:            ctx,
		cancel:         cancel,
		startTime:      time.Now(),
	}

	var snapshotCache gormdb.SnapshotCache
	if c := cache.New(cfg.RedisURL, time.Duration(cfg.CacheTTLSeconds)*time.Second); c != nil {
		s.cache = c
		snapshotCache = c
	}
	s.snapshots = gormdb.NewSnapshotStore(store, snapshotCache)

	if cfg.SearchEnabled {
		idx, err := search.NewIndex()
		if err != nil {
			log.Warn().Err(err).Msg("Search index unavailable, falling back to SQL search")
		} else {
			s.search = idx
		}
	}

	completer := o.completer
	if !o.hasCompleter && cfg.OpenAIAPIKey != "" {
		completer = llm.NewOpenAI(llm.Config{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: float32(cfg.Temperature),
		})
	}
	chatOpts := append([]chat.Option{chat.WithMetrics(o.metrics)}, o.chatOpts...)
	s.chat = chat.NewService(s.snapshots, s.conversations, completer, chat.Config{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: float32(cfg.Temperature),
	}, chatOpts...)

	s.grpcServer = grpc.NewServer()
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Service) Handler() http.Handler {
	return s.router
}

// GetInitError returns the initialization error, if any.
func (s *Service) GetInitError() error {
	s.initErrMu.RLock()
	defer s.initErrMu.RUnlock()
	return s.initErr
}

func (s *Service) setInitError(err error) {
	s.initErrMu.Lock()
	s.initErr = err
	s.initErrMu.Unlock()
}

// initialize wires change events and builds the search index, then marks
// the service ready.
func (s *Service) initialize(ctx context.Context) {
	s.initOnce.Do(func() {
		if err := s.doInitialize(ctx); err != nil {
			log.Error().Err(err).Msg("Service initialization failed")
			s.setInitError(err)
			return
		}
		s.ready.Store(true)
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		log.Info().Dur("elapsed", time.Since(s.startTime)).Msg("Service ready")
	})
}

func (s *Service) doInitialize(ctx context.Context) error {
	if s.search != nil {
		n, err := s.search.Rebuild(ctx, s.logs)
		if err != nil {
			return fmt.Errorf("build search index: %w", err)
		}
		log.Info().Int("logs", n).Msg("Search index built")
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("Snapshot cache unreachable, reads will fall through to the database")
		}
	}

	if s.store.Dialect() == gormdb.DriverPostgres {
		l, err := notify.New(s.config.DBDSN, s.handleChange)
		if err == nil {
			s.listener = l
			go l.Run(s.ctx)
			return nil
		}
		log.Warn().Err(err).Msg("Change notifications unavailable, using local events only")
	}
	s.store.Subscribe(s.handleChange)
	return nil
}

// handleChange fans a committed change out to SSE clients and the search index.
func (s *Service) handleChange(ev gormdb.Event) {
	if ev.Type == "log" && s.search != nil {
		s.search.HandleChange(s.ctx, s.logs, ev.Action, ev.ID)
	}
	s.sseBroadcaster.Broadcast(map[string]interface{}{
		"type":   ev.Type,
		"action": ev.Action,
		"id":     ev.ID,
	})
}

func (s *Service) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.metrics.Middleware)
}

// Start listens on the configured address, serving HTTP and gRPC health on
// the same port, and initializes in the background.
func (s *Service) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Addr(), err)
	}
	s.netLn = ln

	m := cmux.New(ln)
	grpcL := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := m.Match(cmux.Any())

	go func() {
		if err := s.grpcServer.Serve(grpcL); err != nil && !errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, cmux.ErrListenerClosed) {
			log.Warn().Err(err).Msg("gRPC server stopped")
		}
	}()
	go func() {
		if err := s.server.Serve(httpL); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, cmux.ErrListenerClosed) {
			log.Warn().Err(err).Msg("HTTP server stopped")
		}
	}()
	go func() {
		if err := m.Serve(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Debug().Err(err).Msg("Connection multiplexer stopped")
		}
	}()

	go s.initialize(s.ctx)

	log.Info().Str("addr", ln.Addr().String()).Str("version", s.version).Msg("Worker listening")
	return nil
}

// Addr returns the bound listener address once started.
func (s *Service) Addr() net.Addr {
	if s.netLn == nil {
		return nil
	}
	return s.netLn.Addr()
}

// Shutdown stops serving and releases every resource.
func (s *Service) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	s.health.Shutdown()
	s.cancel()

	var errs []error
	if s.netLn != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		s.grpcServer.Stop()
		_ = s.netLn.Close()
	}
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.search != nil {
		if err := s.search.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.cache.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
