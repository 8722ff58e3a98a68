package toolkit

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	"github.com/alovak/cardkit/internal/cardgen"
	"github.com/alovak/cardkit/internal/expiry"
	"github.com/alovak/cardkit/internal/metrics"
	"github.com/alovak/cardkit/internal/middleware"
)

// App is the main application, it wires the card engine into an HTTP server
// and is responsible for starting and stopping it.
type App struct {
	srv    *http.Server
	wg     *sync.WaitGroup
	Addr   string
	logger *slog.Logger
	config *Config
}

func NewApp(logger *slog.Logger, config *Config) *App {
	logger = logger.With(slog.String("app", "cardkit"))

	if config == nil {
		config = DefaultConfig()
	}

	return &App{
		wg:     &sync.WaitGroup{},
		logger: logger,
		config: config,
	}
}

// NewLogger returns a JSON logger writing to w at the given level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Handler builds the router without binding a port.
func (a *App) Handler() http.Handler {
	if a.config.ExpiryTZ != "" {
		if loc, err := time.LoadLocation(a.config.ExpiryTZ); err == nil {
			expiry.SetDefaultLocation(loc)
		} else {
			a.logger.Info("invalid ExpiryTZ; using default UTC", slog.String("tz", a.config.ExpiryTZ), slog.Any("err", err))
		}
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.NewStructuredLogger(a.logger))

	var rec metrics.Recorder = metrics.Nop{}
	if a.config.MetricsEnabled {
		provider := metrics.NewProvider(a.config.MetricsNamespace)
		router.Use(provider.Middleware)
		router.Handle("/metrics", provider.Handler())
		rec = provider
	}

	router.Get("/-/live", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	svc := NewService(a.config, cardgen.New(), a.logger, rec)
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(a.config.RateLimitRPS, a.config.RateLimitBurst, a.logger))
		NewAPI(svc).AppendRoutes(r)
	})

	return router
}

func (a *App) Start() error {
	a.logger.Info("starting app...")

	handler := a.Handler()

	l, err := net.Listen("tcp", a.config.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening tcp port: %w", err)
	}

	a.Addr = l.Addr().String()

	a.srv = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		a.logger.Info("http server started", slog.String("addr", a.Addr))

		if err := a.srv.Serve(l); err != nil {
			if err != http.ErrServerClosed {
				a.logger.Error("starting http server", "err", err)
			}

			a.logger.Info("http server stopped")
		}
	}()

	return nil
}

func (a *App) Shutdown() {
	a.logger.Info("shutting down app...")

	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(ctx); err != nil {
			a.logger.Error("shutting down http server", "err", err)
		}
	}

	a.wg.Wait()

	a.logger.Info("app stopped")
}
