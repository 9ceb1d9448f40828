package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/acsclub/clubnews/internal/config"
	"github.com/acsclub/clubnews/internal/digest"
	"github.com/acsclub/clubnews/internal/infrastructure/gnews"
	"github.com/acsclub/clubnews/internal/infrastructure/httpapi"
	"github.com/acsclub/clubnews/internal/infrastructure/mail"
	"github.com/acsclub/clubnews/internal/infrastructure/newsapi"
	"github.com/acsclub/clubnews/internal/infrastructure/pagemeta"
	"github.com/acsclub/clubnews/internal/infrastructure/scheduler"
	"github.com/acsclub/clubnews/internal/infrastructure/storage"
	"github.com/acsclub/clubnews/internal/logging"
	"github.com/acsclub/clubnews/internal/ports"
	"github.com/acsclub/clubnews/internal/usecase"
)

const shutdownGrace = 10 * time.Second

// Application wires configuration to adapters, use cases, and lifecycle.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	db         *sqlx.DB
	store      *storage.NewsStore
	aggregator *usecase.Aggregator
	dispatcher *usecase.Dispatcher
	sched      *scheduler.Cron
	server     *httpapi.Server
	mailMode   string
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sqlx.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := storage.NewNewsStore(db)
	directory := storage.NewRecipientDirectory(db)

	globalFetcher := newsapi.NewClient(cfg.Providers.NewsAPIKey,
		logging.Component(baseLogger, "fetch.newsapi"))
	regionalFetcher := gnews.NewClient(
		cfg.Providers.GNewsAPIKey,
		cfg.Providers.RegionCountry,
		regionTerm(cfg.Providers.RegionCountry),
		globalFetcher,
		logging.Component(baseLogger, "fetch.gnews"),
	)

	var enricher ports.MetaEnricher
	if cfg.Providers.EnrichMeta {
		enricher = pagemeta.NewEnricher(logging.Component(baseLogger, "pagemeta"))
	}

	aggregator := usecase.NewAggregator(usecase.AggregatorDeps{
		Global:     globalFetcher,
		Regional:   regionalFetcher,
		Store:      store,
		Enricher:   enricher,
		Logger:     logging.Component(baseLogger, "aggregator"),
		WindowDays: cfg.Providers.WindowDays,
	})

	sender, err := mail.NewSender(cfg.Mail, logging.Component(baseLogger, "mail"))
	if err != nil {
		return nil, fmt.Errorf("init mail transport: %w", err)
	}

	composer := digest.NewComposer(cfg.Mail.FromName, cfg.Digest.SiteBaseURL)
	dispatcher := usecase.NewDispatcher(usecase.DispatcherDeps{
		Directory:  directory,
		Sender:     sender,
		Composer:   composer,
		Logger:     logging.Component(baseLogger, "dispatcher"),
		BatchSize:  cfg.Digest.BatchSize,
		BatchPause: cfg.Digest.BatchPause,
	})

	app := &Application{
		cfg:        cfg,
		logger:     baseLogger,
		db:         db,
		store:      store,
		aggregator: aggregator,
		dispatcher: dispatcher,
		mailMode:   string(sender.Mode()),
	}

	app.sched = scheduler.New(cfg.Scheduler.Location(), logging.Component(baseLogger, "scheduler"))
	app.registerJobs()

	app.server = httpapi.NewServer(httpapi.ServerDeps{
		Aggregator: aggregator,
		Dispatcher: dispatcher,
		Store:      store,
		Scheduler:  app.sched,
		MailMode:   app.mailMode,
		AdminToken: cfg.HTTP.AdminToken,
		AdminEmail: cfg.HTTP.AdminEmail,
		Logger:     logging.Component(baseLogger, "httpapi"),
	})

	return app, nil
}

func (a *Application) registerJobs() {
	cfg := a.cfg.Scheduler

	a.sched.Register("news-aggregation", cfg.AggregationCron, func(ctx context.Context) (string, error) {
		run, err := a.aggregator.AggregateWeeklyNews(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("global=%d regional=%d total=%d", run.GlobalSaved, run.RegionalSaved, run.Total), nil
	})

	// Fires after the aggregation job by schedule offset only; the two jobs
	// are intentionally not chained.
	a.sched.Register("digest-emails", cfg.DigestCron, func(ctx context.Context) (string, error) {
		news, err := a.aggregator.LatestNews(ctx)
		if err != nil {
			return "", err
		}
		if len(news.Global) == 0 && len(news.Regional) == 0 {
			return "no news available to send", nil
		}

		summary, err := a.dispatcher.SendDigestToAll(ctx, news.Global, news.Regional,
			a.aggregator.CurrentWeek())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("sent=%d failed=%d mode=%s", summary.SentCount, summary.FailedCount, summary.Mode), nil
	})

	a.sched.Register("health-check", cfg.HealthCron, func(ctx context.Context) (string, error) {
		dbStatus := "connected"
		if err := a.store.Ping(ctx); err != nil {
			dbStatus = "disconnected: " + err.Error()
		}
		return fmt.Sprintf("database=%s mail=%s", dbStatus, a.mailMode), nil
	})
}

// Run starts the scheduler and HTTP server and blocks until ctx is canceled.
func (a *Application) Run(ctx context.Context) error {
	defer a.db.Close()

	if err := a.db.PingContext(ctx); err != nil {
		a.logger.Warn("database unreachable at startup", "error", err)
	}

	if err := a.sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer a.sched.Stop()

	srv := &http.Server{
		Addr:    a.cfg.HTTP.ListenAddr,
		Handler: a.server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.cfg.HTTP.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// regionTerm maps a provider country code to the keyword appended to the
// regional fallback query.
func regionTerm(country string) string {
	switch strings.ToLower(country) {
	case "in":
		return "India"
	case "us":
		return "United States"
	case "gb":
		return "United Kingdom"
	default:
		return strings.ToUpper(country)
	}
}
