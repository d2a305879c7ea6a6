package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/waffle-kart/internal/domain/advisory"
	"github.com/xenking/waffle-kart/internal/domain/catalog"
	"github.com/xenking/waffle-kart/internal/domain/checkout"
	"github.com/xenking/waffle-kart/internal/domain/order"
	"github.com/xenking/waffle-kart/internal/gemini"
	"github.com/xenking/waffle-kart/internal/handler"
	"github.com/xenking/waffle-kart/internal/payment"
	"github.com/xenking/waffle-kart/internal/workspace"
	"github.com/xenking/waffle-kart/pkg/health"
	"github.com/xenking/waffle-kart/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
	)

	store, err := OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()
	if !store.Durable {
		lg.Warn("Paid orders are kept in memory only", zap.String("storage", cfg.Storage.Driver))
	}

	cat := catalog.Default()

	advisor, describer, err := newAdvisory(ctx, cfg.Advisory, cat, m)
	if err != nil {
		return err
	}
	if cfg.Advisory.APIKey == "" {
		lg.Warn("No advisory API key, curation and descriptions are disabled")
	}

	metrics, err := checkout.NewMetrics(m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "checkout metrics")
	}

	registry, err := workspace.NewRegistry(workspace.Deps{
		Catalog:   cat,
		Store:     store.KV,
		Advisor:   advisor,
		Describer: describer,
		Processor: payment.NewSimulated(cfg.Payment.Delay, cfg.Payment.DeclineSuffix),
		Orders:    order.NewService(store.Orders),
		Metrics:   metrics,
	}, cfg.Session.IdleTTL)
	if err != nil {
		return errors.Wrap(err, "create registry")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.Add(health.Check{
		Name:    "storage",
		Kind:    health.Readiness,
		Timeout: 5 * time.Second,
		Func:    health.PingCheck(store.KV),
	})
	healthSvc.Add(health.Check{Name: "goroutines", Func: health.GoroutineCountCheck(10000)})
	healthSvc.Add(health.Check{Name: "gc", Func: health.GCPauseCheck(time.Second)})
	healthSvc.Start(ctx, 10*time.Second)
	defer healthSvc.Stop()

	limiter := httpmiddleware.NewRateLimiter(httpmiddleware.RateLimitConfig{
		RPS:   cfg.RateLimit.RPS,
		Burst: cfg.RateLimit.Burst,
	})

	mux := handler.NewHandler(registry, cat, cfg.Payment.Timeout).Routes()
	healthSvc.Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Submit waits for the processor and curation for the model.
		WriteTimeout:   max(cfg.Advisory.Timeout, cfg.Payment.Timeout) + 10*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Recovery(),
			httpmiddleware.Instrument("waffle-api", m.MeterProvider(), m.TracerProvider()),
			httpmiddleware.LogRequests(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				Origins:     cfg.CORS.Origins,
				Headers:     []string{"Content-Type", handler.SessionHeader, httpmiddleware.RequestIDHeader},
				Expose:      []string{handler.SessionHeader, httpmiddleware.RequestIDHeader},
				Credentials: cfg.CORS.AllowCredentials,
				MaxAge:      86400,
			}),
			limiter.Middleware(),
		),
	}

	// Background work outlives ctx until the server has drained, so
	// in-flight requests never see a closed workspace.
	bgCtx, stopBackground := context.WithCancel(context.WithoutCancel(ctx))
	defer stopBackground()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return registry.Run(bgCtx, cfg.Session.SweepInterval)
	})
	g.Go(func() error {
		limiter.Run(bgCtx)
		return nil
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		defer stopBackground()

		healthSvc.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		return nil
	})

	healthSvc.SetReady(true)
	return g.Wait()
}

// newAdvisory returns the Gemini client for both roles, or the unavailable
// advisor when no key is configured.
func newAdvisory(ctx context.Context, cfg AdvisoryConfig, cat *catalog.Catalog, m *app.Telemetry) (advisory.Advisor, advisory.Describer, error) {
	if cfg.APIKey == "" {
		return advisory.Unavailable{}, advisory.Unavailable{}, nil
	}
	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}
	client, err := gemini.New(ctx, gemini.Config{
		APIKey:   cfg.APIKey,
		Endpoint: cfg.Endpoint,
		Model:    cfg.Model,
		Timeout:  cfg.Timeout,
	}, cat, httpClient)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create advisory client")
	}
	return client, client, nil
}
