package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"sporty-backend/config"
	"sporty-backend/enrollment"
	"sporty-backend/events"
	"sporty-backend/grpchealth"
	"sporty-backend/handler"
	"sporty-backend/jwt"
	"sporty-backend/log"
	"sporty-backend/metrics"
	"sporty-backend/notify"
	"sporty-backend/payment"
	"sporty-backend/ratelimit"
	"sporty-backend/store"
	"sporty-backend/store/memstore"
	"sporty-backend/store/mongostore"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// The logger is not configured yet.
		log.EnsureLogger(true)
		log.Logger.Fatal("failed loading config", zap.Error(err))
	}
	log.EnsureLogger(cfg.IsDevelopment())
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := openStore(ctx, cfg)

	broker := openBroker(cfg)
	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.Mail.Domain != "" && cfg.Mail.APIKey != "" {
		mailer = notify.NewMailgun(cfg.Mail.Domain, cfg.Mail.APIKey, cfg.Mail.From)
	}
	go func() {
		if err := notify.NewNotifier(broker, mailer).Run(ctx); err != nil {
			log.Logger.Error("notifier stopped", zap.Error(err))
		}
	}()

	var payments payment.Gateway = payment.Unconfigured{}
	if cfg.Payment.SecretKey != "" {
		payments = payment.NewStripe(cfg.Payment.SecretKey, cfg.Payment.Currency)
	} else {
		log.Logger.Warn("PAYMENT_SECRET_KEY not set, payment intents are disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	limiter, closeLimiter := openLimiter(ctx, cfg)
	defer closeLimiter()

	coordinator := enrollment.NewCoordinator(enrollment.Deps{
		Selections:  st.Selections,
		Enrollments: st.Enrollments,
		Classes:     st.Classes,
		Tx:          st.Tx,
		Events:      broker,
		Metrics:     rec,
	}, enrollment.Options{SeatGuard: cfg.Enrollment.SeatGuard})

	srv := &http.Server{
		Addr: cfg.Server.Address(),
		Handler: handler.NewRouter(handler.Deps{
			Store:          st,
			Tokens:         jwt.NewService([]byte(cfg.Token.Secret), cfg.Token.TTL),
			Enrollment:     coordinator,
			Payments:       payments,
			Events:         broker,
			Metrics:        rec,
			Gatherer:       reg,
			Limiter:        limiter,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	health := grpchealth.New(st.Ping, cfg.Server.HealthInterval)
	go health.Watch(ctx)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddress())
	if err != nil {
		log.Logger.Fatal("failed to listen", zap.Error(err))
	}
	go func() {
		if err := health.Serve(lis); err != nil {
			log.Logger.Error("couldn't serve grpc health", zap.Error(err))
			stop()
		}
	}()

	go func() {
		log.Logger.Info("listening", zap.String("addr", srv.Addr), zap.String("store", cfg.App.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Logger.Error("couldn't serve http", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Logger.Warn("http shutdown", zap.Error(err))
	}
	health.GracefulStop()
	if err := broker.Close(); err != nil {
		log.Logger.Warn("broker close", zap.Error(err))
	}
	if err := st.Close(shutdownCtx); err != nil {
		log.Logger.Warn("store close", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config) *store.Store {
	if cfg.App.Store == config.StoreMemory {
		log.Logger.Warn("using the in-memory store, nothing will be persisted")
		return memstore.New().Store()
	}

	db, err := mongostore.Connect(ctx, cfg.MongoConnString(), cfg.Mongo.Database, uint64(cfg.Mongo.MaxPoolSize))
	if err != nil {
		log.Logger.Fatal("failed connecting to database", zap.Error(err))
	}

	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.EnsureIndexes(indexCtx); err != nil {
		log.Logger.Fatal("failed creating indexes", zap.Error(err))
	}

	return db.Store()
}

func openBroker(cfg *config.Config) events.Broker {
	if cfg.RabbitMQ.URL == "" {
		return events.NewLocal()
	}

	bus, err := events.Connect(cfg.RabbitMQ.URL)
	if err != nil {
		log.Logger.Fatal("failed connecting to rabbitmq", zap.Error(err))
	}
	return bus
}

func openLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func()) {
	limit := ratelimit.PerMinute(cfg.RateLimit.Requests, cfg.RateLimit.Burst)

	if cfg.Redis.URL == "" {
		l := ratelimit.NewLocal(limit)
		return l, l.Stop
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rdb, err := ratelimit.Dial(dialCtx, cfg.Redis.URL)
	if err != nil {
		log.Logger.Fatal("failed connecting to redis", zap.Error(err))
	}
	return ratelimit.NewRedis(rdb, limit), func() { _ = rdb.Close() }
}
