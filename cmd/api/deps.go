package main

import (
	"context"
	"log"
	"time"

	"gdbank/internal/app"
	"gdbank/internal/domain/bank"
	"gdbank/internal/infrastructure/postgres/listener"
	"gdbank/internal/infrastructure/session"
	httphandlers "gdbank/internal/interfaces/http"
	"gdbank/internal/interfaces/scheduler"
	"gdbank/internal/shared/auth"
	"gdbank/internal/shared/config"
	"gdbank/internal/shared/middleware"
)

// jobGrace is added to the confirmation timeout so a write job always
// outlives its own wait.
const jobGrace = time.Minute

// Dependencies holds all initialized application components.
type Dependencies struct {
	Backends  *app.Backends
	Sessions  *session.Store
	Scheduler *scheduler.Scheduler
	Listener  *listener.JournalListener

	BankHandler *httphandlers.BankHandler
	JWT         *auth.JWT
	RateLimiter *middleware.RateLimiter
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	backends, err := app.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(cfg.Session.MaxEntries, cfg.Session.TTL, func(id string) *bank.Controller {
		return backends.NewController(log.New(log.Writer(), "session "+shortID(id)+": ", log.Flags()))
	})

	pool := scheduler.NewWorkerPool(cfg.Worker.Count, cfg.Worker.QueueSize, cfg.Ethereum.ConfirmTimeout+jobGrace)
	sched := scheduler.NewScheduler(pool, cfg.Worker.RefreshInterval, scheduler.BalanceRefreshJobs(sessions))

	var journalListener *listener.JournalListener
	if cfg.Journal.Backend == config.JournalPostgres {
		journalListener = listener.NewJournalListener(cfg.Database.ConnectionString(), func(_ context.Context, n listener.Notification) {
			jobs := scheduler.SettledWriteJobs(sessions, n.Account, n.Kind)
			if len(jobs) > 0 {
				log.Printf("Journal: %s %s by %s, refreshing %d sessions", n.Kind, n.Status, n.Account, pool.SubmitBatch(jobs))
			}
		})
	}

	pages, err := httphandlers.NewPageRenderer()
	if err != nil {
		backends.Close()
		return nil, err
	}

	limiter, err := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.Session.MaxEntries)
	if err != nil {
		backends.Close()
		return nil, err
	}

	return &Dependencies{
		Backends:    backends,
		Sessions:    sessions,
		Scheduler:   sched,
		Listener:    journalListener,
		BankHandler: httphandlers.NewBankHandler(sessions, sched, pages),
		JWT:         auth.NewJWT(cfg.Session.Secret, cfg.Session.TTL),
		RateLimiter: limiter,
	}, nil
}

// Start launches background work.
func (d *Dependencies) Start(ctx context.Context) {
	d.Scheduler.Start()
	if d.Listener != nil {
		d.Listener.Start(ctx)
	}
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.Listener != nil {
		d.Listener.Stop()
	}
	d.Backends.Close()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
