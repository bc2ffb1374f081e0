package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/plazachat/vigil/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "vigil",
		Usage:   "chat moderation daemon (keeps the plaza clean)",
		Version: versioninfo.Short(),
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "sqlite://data/vigil/vigil.sqlite",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection for the shared mute-state cache (optional; in-process cache otherwise)",
			EnvVars: []string{"VIGIL_REDIS_URL", "REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3999",
			EnvVars: []string{"VIGIL_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3998",
			EnvVars: []string{"VIGIL_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "openai-api-key",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "openai-host",
			Usage:   "OpenAI-compatible API endpoint",
			Value:   "https://api.openai.com",
			EnvVars: []string{"OPENAI_HOST"},
		},
		&cli.StringFlag{
			Name:    "openai-model",
			Value:   "gpt-4o-mini",
			EnvVars: []string{"OPENAI_MODEL"},
		},
		&cli.StringFlag{
			Name:    "gemini-api-key",
			EnvVars: []string{"GEMINI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "gemini-model",
			Value:   "gemini-2.0-flash",
			EnvVars: []string{"GEMINI_MODEL"},
		},
		&cli.DurationFlag{
			Name:    "provider-timeout",
			Usage:   "per-provider classifier call budget",
			Value:   8 * time.Second,
			EnvVars: []string{"VIGIL_PROVIDER_TIMEOUT"},
		},
		&cli.Float64Flag{
			Name:    "classifier-rps",
			Usage:   "max classifier calls per second across providers; 0 disables shedding",
			EnvVars: []string{"VIGIL_CLASSIFIER_RPS"},
		},
		&cli.IntFlag{
			Name:    "evaluate-workers",
			Usage:   "number of async evaluation workers",
			Value:   8,
			EnvVars: []string{"VIGIL_EVALUATE_WORKERS"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "incoming webhook for mute notifications (optional)",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			Value:   40,
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			EnvVars: []string{"VIGIL_LOG_LEVEL", "LOG_LEVEL"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger, err := cliutil.SetupSlog(cctx.String("log-level"))
		if err != nil {
			return err
		}

		db, err := cliutil.SetupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
		if err != nil {
			return err
		}

		srv, err := NewServer(db, Config{
			RedisURL:        cctx.String("redis-url"),
			OpenAIAPIKey:    cctx.String("openai-api-key"),
			OpenAIHost:      cctx.String("openai-host"),
			OpenAIModel:     cctx.String("openai-model"),
			GeminiAPIKey:    cctx.String("gemini-api-key"),
			GeminiModel:     cctx.String("gemini-model"),
			ProviderTimeout: cctx.Duration("provider-timeout"),
			ClassifierRPS:   cctx.Float64("classifier-rps"),
			EvaluateWorkers: cctx.Int("evaluate-workers"),
			SlackWebhookURL: cctx.String("slack-webhook-url"),
			Logger:          logger,
		})
		if err != nil {
			return err
		}

		// prometheus metrics on a separate listener
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cctx.String("metrics-listen"), mux); err != nil {
				logger.Error("metrics listener failed", "err", err)
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.RunAPI(cctx.String("bind"))
		}()

		logger.Info("vigil starting", "version", versioninfo.Short(), "bind", cctx.String("bind"))

		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received")
		case err := <-errCh:
			return err
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
