// Command creatorflow serves the creator pipeline over HTTP.
//
// Usage:
//
//	creatorflow serve                      # start the API server
//	creatorflow serve -config config.yaml  # with a YAML config file
//	creatorflow health -addr http://localhost:8000
//	creatorflow version
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mhpenta/creatorflow"
	"github.com/mhpenta/creatorflow/config"
	"github.com/mhpenta/creatorflow/metrics"
	"github.com/mhpenta/creatorflow/provider/gemini"
	"github.com/mhpenta/creatorflow/provider/openaicompat"
	"github.com/mhpenta/creatorflow/server"
)

// Set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "creatorflow: %v\n", err)
			os.Exit(1)
		}
	case "health":
		runHealthCheck(os.Args[2:])
	case "version":
		fmt.Printf("creatorflow %s (%s)\n", Version, GitCommit)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(server.ContextHandler{Handler: cfg.Log.NewLogger(os.Stdout).Handler()})
	slog.SetDefault(logger)
	logger.Info("starting creatorflow", "version", Version, "git_commit", GitCommit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector("creatorflow")

	gateway, err := newGateway(ctx, cfg, logger, collector)
	if err != nil {
		return err
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			logger.Warn("failed to close providers", "error", err)
		}
	}()

	pipeline := creatorflow.NewPipeline(gateway,
		creatorflow.WithPromptSettings(creatorflow.TextSettings{
			Model:       cfg.Featherless.Model,
			Temperature: cfg.Pipeline.PromptTemperature,
			MaxTokens:   cfg.Pipeline.PromptMaxTokens,
		}),
		creatorflow.WithCaptionSettings(creatorflow.TextSettings{
			Model:       cfg.Featherless.Model,
			Temperature: cfg.Pipeline.CaptionTemperature,
			MaxTokens:   cfg.Pipeline.CaptionMaxTokens,
		}),
		creatorflow.WithPipelineLogger(logger),
		creatorflow.WithPipelineMetrics(collector),
	)
	style := creatorflow.NewStyleAnalyzer(gateway, creatorflow.TextSettings{
		Model:       cfg.Featherless.Model,
		Temperature: cfg.Pipeline.StyleTemperature,
		MaxTokens:   cfg.Pipeline.StyleMaxTokens,
	})

	srv := server.New(pipeline, style, cfg.Server,
		server.WithLogger(logger),
		server.WithMetrics(collector),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("creatorflow stopped")
	return nil
}

func newGateway(ctx context.Context, cfg *config.Config, logger *slog.Logger, collector *metrics.Collector) (*creatorflow.Gateway, error) {
	text, err := openaicompat.New(openaicompat.Config{
		APIKey:  cfg.Featherless.APIKey,
		BaseURL: cfg.Featherless.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("featherless provider: %w", err)
	}

	image, err := gemini.New(ctx, gemini.Config{
		APIKey:         cfg.Gemini.APIKey,
		Model:          cfg.Gemini.Model,
		SafetySettings: cfg.Gemini.SafetySettings,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini provider: %w", err)
	}

	opts := []creatorflow.GatewayOption{
		creatorflow.WithLogger(logger),
		creatorflow.WithCallTimeout(cfg.Gateway.CallTimeout),
		creatorflow.WithMetrics(collector),
		creatorflow.WithRetryPolicy(creatorflow.RetryPolicy{
			MaxRetries:      cfg.Gateway.MaxRetries,
			InitialInterval: cfg.Gateway.InitialBackoff,
			MaxInterval:     cfg.Gateway.MaxBackoff,
		}),
	}
	if cfg.Gateway.WaitOnRateLimit {
		opts = append(opts, creatorflow.WithWaitOnRateLimit(cfg.Gateway.MaxRateLimitWait))
	}
	return creatorflow.NewGateway(text, image, opts...)
}

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8000", "Server address")
	_ = fs.Parse(args)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: status %d\n", resp.StatusCode)
		os.Exit(1)
	}
	fmt.Println("OK")
}

func printUsage() {
	fmt.Println(`creatorflow - prompt, image and caption generation for content creators

Usage:
  creatorflow <command> [options]

Commands:
  serve     Start the API server
  health    Check server health
  version   Show version information
  help      Show this help message

Options for 'serve':
  -config <path>   Path to configuration file (YAML)

Environment:
  FEATHERLESS_API_KEY, GEMINI_API_KEY are required.`)
}
