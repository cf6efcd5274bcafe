package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/alexey-pysenkov/tg-bot-reminder/internal/config"
	"github.com/alexey-pysenkov/tg-bot-reminder/internal/dialog"
	"github.com/alexey-pysenkov/tg-bot-reminder/internal/scheduler"
	"github.com/alexey-pysenkov/tg-bot-reminder/internal/store"
	"github.com/alexey-pysenkov/tg-bot-reminder/internal/telegram"
)

// App wires the bot, store, scanner and health endpoint together and owns
// their lifecycle.
type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	router  *telegram.Router
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

// Run opens the store, starts the scan job and the update loop, and blocks
// until the context is canceled or a shutdown signal arrives.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting reminder bot",
		zap.String("http", a.cfg.HTTPAddr),
		zap.Duration("scan_interval", a.cfg.ScanInterval),
	)

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	if err := os.MkdirAll(a.cfg.TmpDir, 0o755); err != nil {
		return err
	}

	a.router = telegram.NewRouter(a.bot, a.log, repo, dialog.NewManager(), a.cfg.TmpDir)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, err := scheduler.New(repo, a.router, a.log, a.cfg.ScanInterval).Start(ctx)
	if err != nil {
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

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			if err := sched.Shutdown(); err != nil {
				a.log.Warn("scheduler shutdown error", zap.Error(err))
			}

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
