package paywall

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/meuqianimal/paywall/internal/credential"
	"github.com/meuqianimal/paywall/internal/middleware"
	"github.com/meuqianimal/paywall/internal/paypal"
	"golang.org/x/exp/slog"
)

const (
	maxRequestBody  = 16 << 10
	shutdownTimeout = 10 * time.Second
)

// App is the main application, it wires the payment API, the gate and the
// static pages together and is responsible for starting and stopping them.
type App struct {
	srv    *http.Server
	wg     *sync.WaitGroup
	Addr   string
	logger *slog.Logger
	config *Config
}

func NewApp(logger *slog.Logger, config *Config) *App {
	logger = logger.With(slog.String("app", "paywall"))

	if config == nil {
		config = DefaultConfig()
	}

	return &App{
		wg:     &sync.WaitGroup{},
		logger: logger,
		config: config,
	}
}

// Handler builds the router with every dependency wired from the config.
func (a *App) Handler() (http.Handler, error) {
	cat, err := a.config.Catalog()
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	issuer, err := credential.NewIssuer([]byte(a.config.SigningSecret), a.config.CredentialTTL)
	if err != nil {
		return nil, fmt.Errorf("creating credential issuer: %w", err)
	}
	if a.config.DevSigningSecret {
		a.logger.Warn("JWT_SECRET not set; using the development signing secret")
	}

	base, err := paypal.ResolveBaseURL(a.config.PayPal.APIBase)
	if err != nil {
		return nil, err
	}
	provider := paypal.New(paypal.Config{
		BaseURL:      base,
		ClientID:     a.config.PayPal.ClientID,
		ClientSecret: a.config.PayPal.ClientSecret,
		AppBaseURL:   a.config.AppBaseURL,
		BrandName:    a.config.BrandName,
		Timeout:      a.config.PayPal.Timeout,
		CacheTokens:  a.config.PayPal.CacheTokens,
	}, nil)

	svc := NewService(cat, provider, a.logger, a.config)
	gate := NewGate(issuer, a.config.BlockedPath, a.logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	if a.config.TrustProxy {
		router.Use(chimw.RealIP)
	}
	router.Use(middleware.NewStructuredLogger(a.logger))
	router.Use(chimw.Recoverer)

	limiter := middleware.NewRateLimiter(a.config.RateRPS, a.config.RateBurst)
	router.Group(func(r chi.Router) {
		r.Use(limiter.Handler)
		r.Use(middleware.MaxBody(maxRequestBody))
		NewAPI(svc, issuer, a.config.Production(), a.logger).AppendRoutes(r)
	})

	NewContent(a.config).AppendRoutes(router, gate, cat.Tiers())

	router.Get("/-/live", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	return router, nil
}

func (a *App) Start() error {
	a.logger.Info("starting app...",
		slog.String("env", a.config.Env),
		slog.String("paypal_api", a.config.PayPal.APIBase),
	)

	router, err := a.Handler()
	if err != nil {
		return err
	}

	l, err := net.Listen("tcp", a.config.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening tcp port: %w", err)
	}

	a.Addr = l.Addr().String()

	a.srv = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.wg.Add(1)
	go func() {
		a.logger.Info("http server started", slog.String("addr", a.Addr))

		if err := a.srv.Serve(l); err != nil {
			if err != http.ErrServerClosed {
				a.logger.Error("starting http server", "err", err)
			}

			a.logger.Info("http server stopped")
		}

		a.wg.Done()
	}()

	return nil
}

func (a *App) Shutdown() {
	a.logger.Info("shutting down app...")

	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.srv.Shutdown(ctx); err != nil {
			a.logger.Error("shutting down http server", "err", err)
		}
	}

	a.wg.Wait()

	a.logger.Info("app stopped")
}
