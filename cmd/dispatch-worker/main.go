package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/vetdesk/notify/internal/config/worker"
	"github.com/vetdesk/notify/internal/obs"
	"github.com/vetdesk/notify/internal/obs/retry"
	pg "github.com/vetdesk/notify/internal/repository/postgres"
	"github.com/vetdesk/notify/internal/services/dispatch"
	"github.com/vetdesk/notify/internal/services/dispatch/sender"

	"go.uber.org/zap"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func wiring(db *pg.DB, cfg *config.Config, l *zap.Logger, sms *sender.SMS, push *sender.Push) *dispatch.Runner {
	svc := &dispatch.Service{
		Templates: pg.NewTemplateRepo(db),
		Email:     sender.NewEmail(cfg.SMTP.AsSenderConfig(), l),
		SMS:       sms,
		Push:      push,
		Log:       l,
	}
	proc := &dispatch.Processor{
		Svc:   svc,
		Repo:  pg.NewNotificationRepo(db),
		Logs:  pg.NewSendLogRepo(db),
		Clock: systemClock{},
		Log:   l,
	}
	return dispatch.NewRunner(l, proc, cfg.Worker.AsRunnerConfig())
}

func main() {
	cfgPath := flag.String("config", "", "path to yaml config")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	l.Info("starting dispatch-worker",
		zap.Int("poll_interval_ms", cfg.Worker.PollIntervalMS),
		zap.Int("batch_limit", cfg.Worker.BatchLimit),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
	)

	otelCloser, err := obs.SetupOTel(rootCtx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	var db *pg.DB
	err = retry.Do(rootCtx, func() error {
		var derr error
		db, derr = pg.New(rootCtx, cfg.DB)
		return derr
	}, retry.Policy{
		Name:     "db-connect",
		Attempts: 5,
		Backoff:  retry.ExpoJitter{Base: 500 * time.Millisecond, Max: 5 * time.Second, Jitter: 0.2},
	})
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	l.Info("db connected")

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		return db.Pool.Ping(ctx)
	}, l)

	sms, err := sender.NewSMS(rootCtx, cfg.SMS.AsSenderConfig(), l)
	if err != nil {
		l.Fatal("sms sender init", zap.Error(err))
	}
	push, err := sender.NewPush(rootCtx, cfg.Push.AsSenderConfig(), l)
	if err != nil {
		l.Fatal("push sender init", zap.Error(err))
	}

	runner := wiring(db, cfg, l, sms, push)
	errCh := make(chan error, 1)
	go func() {
		l.Info("worker loop starting")
		errCh <- runner.Run(rootCtx)
	}()

	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("worker error", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
