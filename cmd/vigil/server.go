package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/plazachat/vigil/moderation/audit"
	"github.com/plazachat/vigil/moderation/cachestore"
	"github.com/plazachat/vigil/moderation/classifier"
	"github.com/plazachat/vigil/moderation/engine"
	"github.com/plazachat/vigil/moderation/escalation"
	"github.com/plazachat/vigil/moderation/spam"

	"github.com/labstack/echo/v4"
	slogecho "github.com/samber/slog-echo"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const spamSweepInterval = 90 * time.Second

type Config struct {
	RedisURL        string
	OpenAIAPIKey    string
	OpenAIHost      string
	OpenAIModel     string
	GeminiAPIKey    string
	GeminiModel     string
	ProviderTimeout time.Duration
	ClassifierRPS   float64
	EvaluateWorkers int
	SlackWebhookURL string
	Logger          *slog.Logger
}

type Server struct {
	logger    *slog.Logger
	echo      *echo.Echo
	engine    *engine.Engine
	scheduler *engine.Scheduler
	states    *escalation.Escalator
	auditlog  audit.Store
	tracker   *spam.Tracker

	sweepStop chan struct{}
}

func NewServer(db *gorm.DB, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	stateStore, err := escalation.NewGormStateStore(db)
	if err != nil {
		return nil, err
	}
	auditStore, err := audit.NewGormStore(db)
	if err != nil {
		return nil, err
	}

	var cache cachestore.CacheStore
	if config.RedisURL != "" {
		rcache, err := cachestore.NewRedisCacheStore(config.RedisURL, escalation.DefaultCacheTTL)
		if err != nil {
			return nil, err
		}
		cache = rcache
		logger.Info("using redis mute-state cache")
	} else {
		cache = cachestore.NewMemCacheStore(cachestore.DefaultLocalCapacity, escalation.DefaultCacheTTL)
	}

	// providers without configured credentials are skipped, silently
	var providers []classifier.Classifier
	if config.OpenAIAPIKey != "" {
		providers = append(providers, classifier.NewOpenAIClient(config.OpenAIAPIKey, config.OpenAIHost, config.OpenAIModel))
	}
	if config.GeminiAPIKey != "" {
		providers = append(providers, classifier.NewGeminiClient(config.GeminiAPIKey, config.GeminiModel))
	}
	logger.Info("classifier chain configured", "providers", len(providers))

	gateway := classifier.NewGateway(logger, providers...)
	if config.ProviderTimeout > 0 {
		gateway.ProviderTimeout = config.ProviderTimeout
	}
	if config.ClassifierRPS > 0 {
		gateway.Limiter = rate.NewLimiter(rate.Limit(config.ClassifierRPS), int(config.ClassifierRPS)+1)
	}

	states := escalation.NewEscalator(logger, stateStore, cache)
	tracker := spam.NewTracker(spam.DefaultConfig())

	eng := &engine.Engine{
		Logger:      logger,
		Spam:        tracker,
		Classifiers: gateway,
		States:      states,
		Audit:       auditStore,
	}
	if config.SlackWebhookURL != "" {
		eng.Notifier = engine.NewSlackNotifier(config.SlackWebhookURL)
	}

	workers := config.EvaluateWorkers
	if workers <= 0 {
		workers = 8
	}

	srv := &Server{
		logger:    logger,
		engine:    eng,
		scheduler: engine.NewScheduler(workers, eng),
		states:    states,
		auditlog:  auditStore,
		tracker:   tracker,
		sweepStop: make(chan struct{}),
	}
	srv.echo = srv.buildEcho()

	go srv.runSweeper()

	return srv, nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(s.logger.With("system", "http-api")))

	e.GET("/_health", s.handleHealth)

	// message-send flow surface
	e.POST("/api/evaluate", s.handleEvaluate)
	e.GET("/api/muted/:userID", s.handleMuted)

	// admin tooling surface
	e.GET("/admin/users/:userID/state", s.handleAdminState)
	e.GET("/admin/users/:userID/audit", s.handleAdminUserAudit)
	e.GET("/admin/audit", s.handleAdminAudit)
	e.POST("/admin/users/:userID/unmute", s.handleAdminUnmute)

	return e
}

func (s *Server) RunAPI(bind string) error {
	s.logger.Info("starting HTTP API", "bind", bind)
	err := s.echo.Start(bind)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// stops accepting work, drains in-flight evaluations, then closes the API
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.sweepStop)
	if err := s.echo.Shutdown(ctx); err != nil {
		s.logger.Error("echo shutdown failed", "err", err)
	}
	s.scheduler.Shutdown()
	return nil
}

// periodic housekeeping for the in-process spam history
func (s *Server) runSweeper() {
	ticker := time.NewTicker(spamSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			removed := s.tracker.Sweep()
			s.logger.Debug("spam history sweep", "removedUsers", removed, "trackedUsers", s.tracker.Size())
		case <-s.sweepStop:
			return
		}
	}
}
