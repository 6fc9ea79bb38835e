package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/vetdesk/notify/internal/config/api"
	"github.com/vetdesk/notify/internal/obs"
	"github.com/vetdesk/notify/internal/obs/retry"
	pg "github.com/vetdesk/notify/internal/repository/postgres"
	"github.com/vetdesk/notify/internal/services/api"
	"github.com/vetdesk/notify/internal/services/dispatch"
	"github.com/vetdesk/notify/internal/services/dispatch/sender"

	"go.uber.org/zap"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

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

	l.Info("starting notify-api",
		zap.String("http_addr", cfg.HTTP.Addr),
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

	notifs := pg.NewNotificationRepo(db)
	templates := pg.NewTemplateRepo(db)
	logs := pg.NewSendLogRepo(db)

	svc := &dispatch.Service{
		Templates: templates,
		Email:     sender.NewEmail(cfg.SMTP.AsSenderConfig(), l),
		SMS:       sms,
		Push:      push,
		Log:       l,
	}
	proc := &dispatch.Processor{
		Svc:   svc,
		Repo:  notifs,
		Logs:  logs,
		Clock: systemClock{},
		Log:   l,
	}
	uc := &api.Usecase{
		Repo:      notifs,
		Templates: templates,
		Proc:      proc,
		Clock:     systemClock{},
		Log:       l,
	}
	srv := api.NewServer(cfg.HTTP.AsServerConfig(), &api.Handler{UC: uc, Log: l}, l)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("http server error", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
