package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ad-visio/mentor-bot/internal/clock"
	"github.com/ad-visio/mentor-bot/internal/config"
	"github.com/ad-visio/mentor-bot/internal/meta"
	"github.com/ad-visio/mentor-bot/internal/reminder"
	"github.com/ad-visio/mentor-bot/internal/scheduler"
	"github.com/ad-visio/mentor-bot/internal/store"
	"github.com/ad-visio/mentor-bot/internal/telegram"
)

// App owns the process lifecycle: storage, scheduler, telegram polling and
// the healthz endpoint.
type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	loc     *time.Location

	repo   store.Repo
	sched  *scheduler.Scheduler
	router *telegram.Router
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv, loc: loc}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting mentor-bot",
		zap.String("version", meta.Version()),
		zap.String("tz", a.cfg.TZ),
		zap.String("http", a.cfg.HTTPAddr),
	)

	// Open SQLite and run migrations.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	clk := clock.System{}

	// The router is both the conversation surface and the scheduler's
	// notifier, so wire the scheduler after it.
	a.sched = scheduler.New(repo, nil, clk, a.log, a.loc)
	svc := reminder.New(repo, a.sched, clk, a.log, a.loc)
	a.router = telegram.NewRouter(a.bot, a.log, svc, repo, clk, a.loc)
	a.sched.SetNotifier(a.router)

	// Rehydrate timers from persisted pending alerts.
	if err := a.sched.Start(ctx); err != nil {
		a.log.Error("scheduler start failed", zap.Error(err))
		return err
	}

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			a.sched.Shutdown()

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if a.repo != nil {
				_ = a.repo.Close()
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}
