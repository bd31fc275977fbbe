package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reviewgate/reviewgate/config"
	"github.com/reviewgate/reviewgate/internal/balancer"
	"github.com/reviewgate/reviewgate/internal/github"
	"github.com/reviewgate/reviewgate/internal/handler"
	"github.com/reviewgate/reviewgate/internal/httpserver"
	"github.com/reviewgate/reviewgate/internal/metrics"
	"github.com/reviewgate/reviewgate/internal/provider"
	"github.com/reviewgate/reviewgate/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metricsCollector := metrics.NewCollector(1024, log)
	metricsCollector.Start(ctx)

	lb, err := initializeBalancer(cfg, metricsCollector, log)
	if err != nil {
		log.Error("Failed to initialize balancer", slog.Any("err", err))
		os.Exit(1)
	}

	var githubClient *github.Client
	if cfg.IsGitHubConfigured() {
		githubClient = github.NewClient(cfg.GitHub.Token, cfg.GitHub.APIBase, log)
	} else {
		log.Warn("GitHub token not configured, review requests will be rejected")
	}

	reviewHandler := handler.New(log, lb, githubClient, metricsCollector)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(reviewHandler, metricsCollector, cfg.Server.AllowedOrigins))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Starting review gateway",
		slog.String("address", cfg.Server.Address),
		slog.String("environment", cfg.Server.Environment),
		slog.Int("providers", len(lb.Providers())))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func initializeBalancer(cfg *config.Config, collector *metrics.Collector, log *slog.Logger) (*balancer.LoadBalancer, error) {
	interval, err := time.ParseDuration(cfg.Balancer.HealthCheckInterval)
	if err != nil {
		return nil, err
	}

	lb := balancer.New(balancer.Options{
		HealthCheckInterval: interval,
		MaxFailures:         cfg.Balancer.MaxFailures,
		Collector:           collector,
		Logger:              log,
	})

	if cfg.IsOpenAIConfigured() {
		settings, err := providerSettings(cfg.Providers.OpenAI)
		if err != nil {
			return nil, err
		}
		if err := lb.AddProvider("openai", provider.NewOpenAI(settings, log)); err != nil {
			return nil, err
		}
	}

	if cfg.IsHuggingFaceConfigured() {
		settings, err := providerSettings(cfg.Providers.HuggingFace)
		if err != nil {
			return nil, err
		}
		if err := lb.AddProvider("huggingface", provider.NewHuggingFace(settings, log)); err != nil {
			return nil, err
		}
	}

	if len(lb.Providers()) == 0 {
		log.Warn("No LLM providers configured, review requests will fail")
	}

	return lb, nil
}

func providerSettings(pc config.ProviderConfig) (provider.Settings, error) {
	timeout, err := time.ParseDuration(pc.RequestTimeout)
	if err != nil {
		return provider.Settings{}, err
	}

	return provider.Settings{
		APIKey:            pc.APIKey,
		Model:             pc.Model,
		BaseURL:           pc.BaseURL,
		MaxTokens:         pc.MaxTokens,
		Temperature:       pc.Temperature,
		RequestTimeout:    timeout,
		RequestsPerMinute: pc.RequestsPerMinute,
	}, nil
}
