package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Norvan25/homenest-nous-sub002/internal/config"
	"github.com/Norvan25/homenest-nous-sub002/internal/infrastructure/charts"
	"github.com/Norvan25/homenest-nous-sub002/internal/infrastructure/events"
	"github.com/Norvan25/homenest-nous-sub002/internal/infrastructure/llm"
	"github.com/Norvan25/homenest-nous-sub002/internal/infrastructure/objectstore"
	"github.com/Norvan25/homenest-nous-sub002/internal/infrastructure/parser"
	"github.com/Norvan25/homenest-nous-sub002/internal/infrastructure/scheduler"
	"github.com/Norvan25/homenest-nous-sub002/internal/infrastructure/storage"
	"github.com/Norvan25/homenest-nous-sub002/internal/infrastructure/telegram"
	"github.com/Norvan25/homenest-nous-sub002/internal/infrastructure/voice"
	"github.com/Norvan25/homenest-nous-sub002/internal/logging"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
	"github.com/Norvan25/homenest-nous-sub002/internal/realtime"
	"github.com/Norvan25/homenest-nous-sub002/internal/templates"
	"github.com/Norvan25/homenest-nous-sub002/internal/transport/httpapi"
	"github.com/Norvan25/homenest-nous-sub002/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *sql.DB
	server  *http.Server
	sweeper *usecase.Sweeper
	hub     *realtime.Hub
	closers []func() error
}

// New opens storage, builds the optional vendor adapters and the HTTP server.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	repo := storage.NewRepository(db, cfg.Database.Driver)

	logger := baseLogger
	if cfg.Logging.DatabaseLevel != "" {
		logger = slog.New(logging.NewDBHandler(baseLogger.Handler(), repo, logging.LevelFromString(cfg.Logging.DatabaseLevel)))
	}

	a := &Application{cfg: cfg, logger: logger, db: db}

	var generator ports.TextGenerator
	if cfg.Anthropic.APIKey != "" {
		generator = llm.NewAnthropicClient(cfg.Anthropic)
	} else {
		logger.Warn("anthropic api key missing, generation disabled")
	}

	var (
		dialer ports.Dialer
		speech ports.SpeechSynthesizer
	)
	if cfg.ElevenLabs.APIKey != "" {
		client := voice.NewClient(cfg.ElevenLabs)
		dialer, speech = client, client
	} else {
		logger.Warn("elevenlabs api key missing, calls and speech disabled")
	}
	if cfg.ElevenLabs.WebhookSecret == "" {
		logger.Warn("elevenlabs webhook secret missing, callbacks are not verified")
	}

	var store ports.ObjectStore
	if cfg.Storage.Enabled() {
		s3Store, err := objectstore.NewS3Store(cfg.Storage)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		store = s3Store
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		n, err := telegram.NewNotifier(cfg.Notifications.Telegram)
		if err != nil {
			logger.Error("telegram notifier disabled", "error", err)
		} else {
			notifier = n
		}
	}

	a.hub = realtime.NewHub(logger)
	publishers := events.Fanout{a.hub}
	if cfg.Events.AMQPURL != "" {
		rabbit, err := events.DialRabbitMQ(cfg.Events)
		if err != nil {
			logger.Error("rabbitmq publisher disabled", "error", err)
		} else {
			publishers = append(publishers, rabbit)
			a.closers = append(a.closers, rabbit.Close)
		}
	}

	queue := usecase.NewCallQueue(usecase.CallQueueDeps{
		Queue:      repo,
		Properties: repo,
		Dialer:     dialer,
		Events:     publishers,
		Logger:     logger,
	})
	leads := usecase.NewLeads(usecase.LeadsDeps{Properties: repo, Calls: queue, Logger: logger})
	crm := usecase.NewCRM(usecase.CRMDeps{Leads: repo, Properties: repo, Chart: charts.NewPipelineRenderer(), Logger: logger})
	reports := usecase.NewCallReports(usecase.CallReportsDeps{Queue: queue, CRM: crm, Notifier: notifier, Logger: logger})
	generation := usecase.NewGeneration(usecase.GenerationDeps{
		Repository: repo,
		Properties: repo,
		Generator:  generator,
		Speech:     speech,
		Store:      store,
		Templates:  templates.Default(),
		MaxTokens:  cfg.Anthropic.MaxTokens,
		Logger:     logger,
	})
	outreach := usecase.NewOutreach(usecase.OutreachDeps{
		Repository: repo,
		CRM:        crm,
		Extractor:  parser.NewReplyExtractor(),
		Notifier:   notifier,
		Events:     publishers,
		Logger:     logger,
	})
	admin := usecase.NewAdmin(usecase.AdminDeps{Users: repo, Settings: repo, DebugLogs: repo, Logger: logger})

	a.sweeper = usecase.NewSweeper(
		scheduler.NewIntervalScheduler(cfg.CallQueue.SweepInterval),
		queue,
		cfg.CallQueue.StaleAfter,
		logger,
	)

	handler := httpapi.NewHandler(httpapi.Deps{
		Leads:          leads,
		CRM:            crm,
		Queue:          queue,
		Reports:        reports,
		Generation:     generation,
		Outreach:       outreach,
		Admin:          admin,
		Realtime:       a.hub,
		JWTSecret:      cfg.Auth.JWTSecret,
		WebhookSecret:  cfg.ElevenLabs.WebhookSecret,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		SwaggerDir:     cfg.HTTP.SwaggerDir,
		Logger:         logger,
	})
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("jwt secret missing, api is unauthenticated")
	}

	a.server = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logging.StdLogger(logger, "http"),
	}
	return a, nil
}

// Run serves HTTP and the sweeper until ctx is cancelled, then shuts down.
func (a *Application) Run(ctx context.Context) error {
	if err := a.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return errors.Join(runErr, a.shutdown(shutdownCtx))
}

func (a *Application) shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")
	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.sweeper.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop sweeper: %w", err))
	}
	a.hub.Close()
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}
