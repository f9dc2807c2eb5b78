package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"slotbook/internal/auth"
	"slotbook/internal/config"
	"slotbook/internal/logging"
	"slotbook/internal/notify"
	"slotbook/internal/service/bookings"
	"slotbook/internal/store"
	"slotbook/internal/store/memory"
	"slotbook/internal/store/mongostore"
	"slotbook/internal/store/postgres"
	"slotbook/internal/store/redisstore"
	"slotbook/internal/transport/httpapi"
	grpcTransport "slotbook/internal/transport/grpc"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	log = log.With(zap.String("service", "slotbook-server"))
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting",
		zap.String("env", cfg.Env),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("grpc_addr", cfg.GRPCAddr),
		zap.String("store_driver", cfg.StoreDriver),
		zap.Stringer("window_open", cfg.Window.Open),
		zap.Stringer("window_close", cfg.Window.Close),
	)

	days, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	authn, sessions, err := buildAuth(cfg, log)
	if err != nil {
		return err
	}

	notifier, closeNotifier, err := buildNotifier(cfg, log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	svc := bookings.NewService(days, authn, notifier, log, bookings.Config{
		Window:        cfg.Window,
		NotifyTimeout: cfg.NotifyTimeout,
	})

	production := logging.IsProduction(cfg.Env)
	if production {
		gin.SetMode(gin.ReleaseMode)
	}
	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(svc, log, httpapi.Options{
			Sessions:       sessions,
			Basic:          auth.BasicCredentials{User: cfg.AdminBasicUser, Pass: cfg.AdminBasicPass},
			AllowedOrigins: cfg.AllowedOrigins,
			RatePerMinute:  cfg.RatePerMinute,
			RateBurst:      cfg.RateBurst,
			SecureCookies:  production,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcTransport.DefaultRequestTimeout(cfg.GRPCRequestTimeout),
			grpcTransport.AccessLog(log),
		),
	)
	grpcTransport.RegisterBookingServiceServer(grpcServer, grpcTransport.NewBookingServer(svc, log))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(grpcTransport.ServiceName, healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", cfg.GRPCAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	log.Info("servers started", zap.String("http_addr", cfg.HTTPAddr), zap.String("grpc_addr", cfg.GRPCAddr))

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case serveErr = <-errCh:
	}

	healthServer.Shutdown()
	shutdown(log, httpServer, grpcServer, cfg.ShutdownTimeout)
	return serveErr
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (store.DayStore, func(), error) {
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		log.Info("connecting to database", databaseLogFields(cfg.DatabaseURL)...)
		db, err := postgres.Open(connectCtx, cfg.DatabaseURL, postgres.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		})
		if err != nil {
			log.Error("database connection failed", append(databaseLogFields(cfg.DatabaseURL), zap.Error(err))...)
			return nil, nil, err
		}
		if err := postgres.Migrate(connectCtx, db); err != nil {
			_ = postgres.Close(db)
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return postgres.NewDayRepo(db), func() {
			if err := postgres.Close(db); err != nil {
				log.Warn("database close failed", zap.Error(err))
			}
		}, nil

	case config.DriverRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(connectCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		log.Info("redis connected", zap.String("redis_addr", cfg.RedisAddr), zap.Int("redis_db", cfg.RedisDB))
		return redisstore.New(rdb, cfg.RedisPrefix), func() {
			if err := rdb.Close(); err != nil {
				log.Warn("redis close failed", zap.Error(err))
			}
		}, nil

	case config.DriverMongo:
		client, err := mongostore.Connect(connectCtx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		log.Info("mongo connected", zap.String("mongo_database", cfg.MongoDatabase), zap.String("mongo_collection", cfg.MongoCollection))
		coll := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)
		return mongostore.New(coll), func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				log.Warn("mongo disconnect failed", zap.Error(err))
			}
		}, nil

	default:
		log.Warn("using in-memory store; bookings are lost on restart")
		return memory.New(), func() {}, nil
	}
}

func buildAuth(cfg config.Config, log *zap.Logger) (*auth.Authenticator, *auth.Sessions, error) {
	var (
		gate *auth.KeyGate
		err  error
	)
	switch {
	case cfg.AdminKeyHash != "":
		gate, err = auth.NewKeyGateFromHash(cfg.AdminKeyHash)
	default:
		gate, err = auth.NewKeyGate(cfg.AdminKey, bcrypt.DefaultCost)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("admin key: %w", err)
	}
	if !gate.Enabled() {
		log.Warn("no admin key configured; admin actions are disabled")
	}

	sessions, err := auth.NewSessions(cfg.AdminSessionSecret, cfg.AdminSessionTTL)
	switch {
	case errors.Is(err, auth.ErrSessionsDisabled):
		if cfg.AdminSessionSecret != "" {
			log.Warn("admin session secret too short; cookie sessions disabled")
		}
		sessions = nil
	case err != nil:
		return nil, nil, err
	}

	return auth.NewAuthenticator(gate, sessions), sessions, nil
}

func buildNotifier(cfg config.Config, log *zap.Logger) (notify.Notifier, func(), error) {
	if !logging.IsProduction(cfg.Env) {
		log.Debug("notifications disabled outside production")
		return notify.Noop{}, func() {}, nil
	}

	var (
		out     notify.Multi
		closers []func() error
	)
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		out = append(out, notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		out = append(out, notify.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookToken))
	}
	if cfg.KafkaBrokers != "" {
		k, err := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka notifier: %w", err)
		}
		out = append(out, k)
		closers = append(closers, k.Close)
	}
	if len(out) == 0 {
		log.Warn("no notification channel configured")
		return notify.Noop{}, func() {}, nil
	}
	log.Info("notifications enabled", zap.Int("channels", len(out)))

	return out, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn("notifier close failed", zap.Error(err))
			}
		}
	}, nil
}

func shutdown(log *zap.Logger, h *http.Server, g *grpc.Server, timeout time.Duration) {
	log.Info("shutting down", zap.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := h.Shutdown(ctx); err != nil {
		log.Warn("http shutdown failed", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		g.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-ctx.Done():
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		g.Stop()
	}
}

func databaseLogFields(databaseURL string) []zap.Field {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []zap.Field{zap.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []zap.Field{
		zap.String("db_host", host),
		zap.String("db_port", port),
		zap.String("db_name", name),
	}
}
