package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"billdesk/internal/config"
	"billdesk/internal/httpserver"
	"billdesk/internal/logging"
	"billdesk/internal/notify"
	"billdesk/internal/observability"
	"billdesk/internal/providers/sms"
	"billdesk/internal/retry"
	"billdesk/internal/service"
	"billdesk/internal/settings"
	"billdesk/internal/store"
	"billdesk/internal/store/filesnap"
	"billdesk/internal/store/pgsnap"
	"billdesk/internal/store/redissnap"
)

func main() {
	cfg := config.LoadAPI()
	logging.Init("api", cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		persister store.Persister
		checks    []httpserver.ReadyzCheck
		closeFn   func()
	)
	switch cfg.StoreBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		rs := redissnap.New(rdb)
		persister = rs
		checks = append(checks, rs.Ping)
		closeFn = func() { _ = rdb.Close() }
	case "postgres":
		pool, err := pgsnap.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			slog.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		ps := pgsnap.New(pool)
		if err := ps.EnsureSchema(ctx); err != nil {
			slog.Error("ensure schema failed", "err", err)
			os.Exit(1)
		}
		persister = ps
		checks = append(checks, pool.Ping)
		closeFn = pool.Close
	default:
		fs, err := filesnap.New(cfg.DataDir)
		if err != nil {
			slog.Error("data dir init failed", "err", err)
			os.Exit(1)
		}
		persister = fs
	}

	billStore := store.New(persister)
	if err := billStore.Load(ctx); err != nil {
		slog.Error("load bills failed, starting empty", "err", err)
	}

	settingsSvc := settings.New(persister, settings.Defaults{
		StoreName:  cfg.StoreName,
		UPIID:      cfg.UPIID,
		AccountSID: cfg.SMSAccountSID,
		AuthToken:  cfg.SMSAuthToken,
		FromNumber: cfg.SMSFromNumber,
	})
	if err := settingsSvc.Load(ctx); err != nil {
		slog.Error("load settings failed, using defaults", "err", err)
	}

	queue := retry.NewQueue(persister)
	if err := queue.Load(ctx); err != nil {
		slog.Error("load retry queue failed, starting empty", "err", err)
	}

	observability.Register(prometheus.DefaultRegisterer)

	links := &notify.LinkBuilder{BaseURL: cfg.PublicBaseURL}
	msg := &notify.MessageBuilder{Links: links, SupportPhone: cfg.SupportPhone}

	smsClient := &sms.Client{
		AccountSID: cfg.SMSAccountSID,
		AuthToken:  cfg.SMSAuthToken,
		FromNumber: cfg.SMSFromNumber,
		BaseURL:    cfg.SMSBaseURL,
		HTTP:       &http.Client{Timeout: 8 * time.Second},
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.SMSRPS), cfg.SMSBurst)
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sms",
		MaxRequests: 3,
		Timeout:     20 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 10 },
	})

	dispatcher := &notify.Dispatcher{
		Bills:    billStore,
		Settings: settingsSvc,
		WhatsApp: &notify.WhatsAppChannel{Msg: msg, Settings: settingsSvc},
		SMS: &notify.SMSChannel{
			Client:   smsClient,
			Msg:      msg,
			Settings: settingsSvc,
			Limiter:  limiter,
			Breaker:  breaker,
		},
	}

	svc := service.New(billStore, dispatcher, queue, links)
	svc.Start()

	loop := retry.NewLoop(queue, dispatcher, billStore,
		time.Duration(cfg.RetryIntervalSeconds)*time.Second)
	loop.Start()

	s := httpserver.New()
	api := &httpserver.API{
		Svc:      svc,
		Settings: settingsSvc,
		Validate: validator.New(),
	}
	api.Register(s.Mux)
	s.Mux.HandleFunc("/healthz", httpserver.Healthz())
	s.Mux.HandleFunc("/readyz", httpserver.Readyz(2*time.Second, checks...))
	s.Mux.Use(httpserver.RequestID, httpserver.Metrics(observability.APIRequests))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httpserver.Logging(s.Mux),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sig := <-sigCh
		slog.Info("api shutdown", "signal", sig.String())
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("api listening", "port", cfg.Port, "store_backend", cfg.StoreBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("api server failed", "err", err)
		os.Exit(1)
	}

	// ListenAndServe returns as soon as Shutdown begins; wait for the in-flight
	// handlers to drain before tearing down the workers they use.
	<-shutdownDone

	loop.Stop()
	svc.Stop()
	if closeFn != nil {
		closeFn()
	}
}
