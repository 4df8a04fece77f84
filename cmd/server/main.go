// Package main is the entry point for the Verdant HTTP server.
//
// It loads configuration, wires the county repository, the completion
// provider, the dashboard session store and the verification mailer into the
// core chassis, and serves until SIGINT or SIGTERM. Background loops (view
// session janitor, CloudWatch flusher) share the server's lifetime through an
// errgroup.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"verdant/internal/api/handlers"
	"verdant/internal/config"
	"verdant/internal/core"
	"verdant/internal/dashboard"
	"verdant/internal/db"
	"verdant/internal/external"
	"verdant/internal/hazardinfo"
	"verdant/internal/notifications/email"
	"verdant/internal/observability"
	"verdant/internal/types"
	"verdant/internal/web"
)

const (
	shutdownTimeout = 10 * time.Second
	janitorInterval = time.Minute
	flushInterval   = time.Minute
	userAgent       = "Verdant/1.0"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// metricsSink is implemented by every observability backend.
type metricsSink interface {
	core.MetricsCollector
	hazardinfo.Metrics
	email.Metrics
	dashboard.StoreMetrics
}

// deps are the outside-world dependencies of the server. run builds the real
// ones; tests substitute fakes.
type deps struct {
	counties   types.CountyRiskReader
	completer  types.Completer
	provider   email.Provider
	queue      email.SQSSender
	cloudwatch observability.CloudWatchClient
	clock      clockwork.Clock
	probes     []core.HealthProbe
}

// app is a fully wired server plus the loops that must run beside it.
type app struct {
	srv        *core.Server
	store      *dashboard.Store
	cloudwatch *observability.CloudWatchMetrics
}

func run() error {
	cfg, err := config.LoadConfig(secretProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("verdant server starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"llm_provider", cfg.LLM.Provider,
		"email_provider", cfg.Email.Provider,
		"metrics_backend", cfg.Observability.MetricsBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}

	d := deps{
		counties: db.NewCountyRiskRepository(pool),
		clock:    clockwork.NewRealClock(),
		probes:   []core.HealthProbe{db.NewHealthProbe(pool)},
	}

	if d.completer, err = newCompleter(ctx, cfg, logger); err != nil {
		pool.Close()
		return err
	}

	if needsAWS(cfg) {
		awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			pool.Close()
			return err
		}
		if cfg.Email.Provider == config.EmailProviderSES {
			d.provider = external.NewSESClient(awsCfg, "")
		}
		if cfg.Email.QueueURL != "" {
			d.queue = sqs.NewFromConfig(awsCfg)
		}
		if cfg.Observability.MetricsBackend == config.MetricsCloudWatch {
			d.cloudwatch = cloudwatch.NewFromConfig(awsCfg)
		}
	}
	if cfg.Email.Provider == config.EmailProviderSendGrid {
		d.provider = external.NewSendGridClient(&http.Client{Timeout: 15 * time.Second}, external.SendGridClientConfig{
			APIKey: cfg.Email.SendGridAPIKey.Unmask(),
			Logger: logger,
		})
	}

	a, err := buildApp(cfg, logger, d)
	if err != nil {
		pool.Close()
		return err
	}
	a.srv.OnShutdown(pool.Close)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.srv.ListenAndServe(gctx, shutdownTimeout) })
	g.Go(func() error { return a.store.RunJanitor(gctx, janitorInterval) })
	if a.cloudwatch != nil {
		g.Go(func() error { return a.cloudwatch.Run(gctx, flushInterval) })
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped cleanly")
	return nil
}

// buildApp wires every handler onto a core.Server and mounts the routes.
func buildApp(cfg *config.Config, logger *slog.Logger, d deps) (*app, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	a := &app{srv: srv}

	var metrics metricsSink = observability.Nop{}
	switch cfg.Observability.MetricsBackend {
	case config.MetricsPrometheus:
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(reg)
		metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		srv.RouteRegistrars = append(srv.RouteRegistrars, func(r chi.Router) {
			r.Method(http.MethodGet, "/metrics", metricsHandler)
		})
	case config.MetricsCloudWatch:
		if d.cloudwatch == nil {
			return nil, fmt.Errorf("cloudwatch metrics backend selected without a client")
		}
		a.cloudwatch = observability.NewCloudWatchMetrics(d.cloudwatch, cfg.Observability.MetricNamespace, d.clock, logger)
		metrics = a.cloudwatch
	}
	srv.Metrics = metrics
	srv.HealthProbes = d.probes

	// Hazard descriptions.
	describer := hazardinfo.NewService(d.completer, logger,
		hazardinfo.WithMaxTokens(cfg.LLM.MaxTokens),
		hazardinfo.WithMetrics(metrics),
	)
	hazardHandler := handlers.NewHazardInfoHandler(describer, logger)

	// Verification email.
	mailer, err := newMailer(cfg, logger, d, metrics)
	if err != nil {
		return nil, err
	}
	verificationHandler := handlers.NewVerificationHandler(mailer, srv.Validator, cfg.Security.AuthHookSecret, logger)

	// Dashboard pages. The fetcher goes back through the public hazard-info
	// endpoint so server-rendered pages and API clients share one code path.
	pages, err := web.NewPages()
	if err != nil {
		return nil, err
	}
	a.store = dashboard.NewStore(cfg.Dashboard.SessionCapacity, cfg.Dashboard.SessionTTL, d.clock, metrics)
	fetchBase := external.NewBaseClient(&http.Client{Timeout: cfg.Server.RequestTimeout}, "hazard-info", external.NoRetry(), userAgent,
		external.WithLogger(logger))
	webHandler := web.NewHandler(web.HandlerConfig{
		Pages:        pages,
		Counties:     d.counties,
		Store:        a.store,
		Fetcher:      dashboard.NewHTTPFetcher(fetchBase, cfg.Server.PublicURL),
		FetchTimeout: cfg.Server.RequestTimeout,
		Logger:       logger,
	})

	srv.RouteRegistrars = append(srv.RouteRegistrars,
		hazardHandler.RegisterRoutes,
		handlers.NewRiskHandler(d.counties, logger).RegisterRoutes,
		verificationHandler.RegisterRoutes,
		webHandler.RegisterRoutes,
	)
	srv.MountRoutes()
	return a, nil
}

func newMailer(cfg *config.Config, logger *slog.Logger, d deps, metrics email.Metrics) (*email.Mailer, error) {
	renderer, err := email.NewRenderer(email.RendererConfig{
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
	})
	if err != nil {
		return nil, err
	}

	mailLogger := types.NewSlogLogger(logger.With("component", "email"))
	mc := email.MailerConfig{
		Renderer: renderer,
		Provider: d.provider,
		Metrics:  metrics,
		Logger:   mailLogger,
	}
	if cfg.Email.QueueURL != "" && d.queue != nil {
		mc.Publisher = email.NewPublisher(d.queue, cfg.Email.QueueURL, mailLogger)
	}
	if mc.Provider == nil && mc.Publisher == nil {
		return nil, fmt.Errorf("no email provider configured for %q", cfg.Email.Provider)
	}
	return email.NewMailer(mc), nil
}

func newCompleter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (types.Completer, error) {
	switch cfg.LLM.Provider {
	case config.LLMProviderGemini:
		c, err := external.NewGeminiClient(ctx, cfg.LLM.GeminiAPIKey.Unmask(), cfg.LLM.GeminiModel, cfg.LLM.Timeout, logger)
		if err != nil {
			return nil, fmt.Errorf("creating gemini client: %w", err)
		}
		return c, nil
	default:
		return external.NewOpenAIClient(&http.Client{Timeout: cfg.LLM.Timeout}, external.OpenAIClientConfig{
			APIKey:  cfg.LLM.OpenAIAPIKey.Unmask(),
			BaseURL: cfg.LLM.OpenAIBaseURL,
			Model:   cfg.LLM.OpenAIModel,
			Logger:  logger,
		}), nil
	}
}

func needsAWS(cfg *config.Config) bool {
	return cfg.Email.Provider == config.EmailProviderSES ||
		cfg.Email.QueueURL != "" ||
		cfg.Observability.MetricsBackend == config.MetricsCloudWatch
}

func loadAWSConfig(ctx context.Context, c config.AWSConfig) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	if c.EndpointURL != "" {
		awsCfg.BaseEndpoint = aws.String(c.EndpointURL)
	}
	return awsCfg, nil
}

// secretProvider reads plain environment variables locally and SSM
// everywhere else.
func secretProvider() config.SecretProvider {
	if os.Getenv("APP_ENV") == "local" {
		return config.NewEnvVarProvider()
	}
	return config.NewSSMProvider(os.Getenv("AWS_REGION"), os.Getenv("AWS_ENDPOINT_URL"))
}

// newLogger creates a JSON slog.Logger at the given level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
