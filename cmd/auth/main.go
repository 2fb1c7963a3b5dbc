package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Skotchmaster/auth_service/internal/config"
	"github.com/Skotchmaster/auth_service/internal/db"
	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/guard"
	"github.com/Skotchmaster/auth_service/internal/hash"
	"github.com/Skotchmaster/auth_service/internal/httpserver"
	"github.com/Skotchmaster/auth_service/internal/jwks"
	"github.com/Skotchmaster/auth_service/internal/keys"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/middleware"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/search"
	"github.com/Skotchmaster/auth_service/internal/service"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}

	l := logging.New(cfg.LogLevel)
	slog.SetDefault(l)

	if err := cfg.Validate(); err != nil {
		l.Error("config_invalid", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, l); err != nil {
		l.Error("auth_service_failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, l *slog.Logger) error {
	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.MigrateOnStart {
		if err := db.Migrate(initCtx, cfg.DatabaseURL); err != nil {
			return err
		}
		l.Info("migrations_applied")
	}

	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			l.Warn("db_close_failed", "error", err)
		}
	}()

	src, err := keys.SourceFromURI(initCtx, cfg.PrivateKeyURI, keys.S3Options{
		Region:    cfg.S3.Region,
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
	})
	if err != nil {
		return err
	}
	provider := keys.NewProvider(src)
	if _, err := provider.SigningKey(initCtx); err != nil {
		return err
	}

	rotation, rdb, err := newGuard(initCtx, cfg.Redis, l)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	pub, err := newPublisher(cfg, l)
	if err != nil {
		return err
	}
	defer func() {
		if err := pub.Close(); err != nil {
			l.Warn("publisher_close_failed", "error", err)
		}
	}()

	var index service.SearchIndex
	if cfg.Elastic.URL != "" {
		es, err := search.NewClient(initCtx, cfg.Elastic)
		if err != nil {
			return err
		}
		index = search.NewUserIndex(es, cfg.Elastic.UsersIndex)
		l.Info("search_enabled", "index", cfg.Elastic.UsersIndex)
	}

	r := repo.New(gdb)
	issuer := tokens.NewIssuer(provider, []byte(cfg.RefreshTokenSecret), r)

	var fetcher jwks.Fetcher = jwks.LocalFetcher{Source: provider}
	if cfg.JWKS.URI != "" {
		fetcher = jwks.HTTPFetcher{URL: cfg.JWKS.URI, Client: &http.Client{Timeout: cfg.JWKS.FetchTimeout}}
	}
	keyClient := jwks.NewClient(fetcher, jwks.Options{
		CacheTTL:          cfg.JWKS.CacheTTL,
		RequestsPerMinute: cfg.JWKS.RequestsPerMinute,
		FetchTimeout:      cfg.JWKS.FetchTimeout,
	})

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.HTTPErrorHandler = httpserver.ErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(l))

	httpserver.Register(e, &httpserver.Deps{
		Auth: &httpserver.AuthHTTP{
			Svc: service.NewAuthService(service.AuthDeps{
				Users:  r,
				Tokens: issuer,
				Hasher: hash.Bcrypt{},
				Guard:  rotation,
				Events: pub,
				Index:  index,
			}),
			Cookies: httpserver.Cookies{Domain: cfg.Cookie.Domain, Secure: cfg.Cookie.Secure},
		},
		Users: &httpserver.UsersHTTP{Svc: service.NewUserService(service.UserDeps{
			Users:   r,
			Tenants: r,
			Hasher:  hash.Bcrypt{},
			Events:  pub,
			Index:   index,
		})},
		Tenants: &httpserver.TenantsHTTP{Svc: service.NewTenantService(r)},
		Access:  middleware.NewAccessVerifier(keyClient),
		Refresh: middleware.NewRefreshVerifier(issuer, r),
		Keys:    provider,
		Ready:   readiness(gdb),
	})

	errCh := make(chan error, 1)
	go func() {
		l.Info("http_listening", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case sig := <-stop:
		l.Info("shutdown_requested", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		l.Error("echo_shutdown_failed", "error", err)
	}
	return nil
}

func newGuard(ctx context.Context, cfg config.RedisConfig, l *slog.Logger) (guard.Guard, *redis.Client, error) {
	if cfg.Addr == "" {
		l.Info("rotation_guard", "backend", "memory")
		return guard.NewMemory(), nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	l.Info("rotation_guard", "backend", "redis", "addr", cfg.Addr)
	return guard.NewRedis(rdb, guard.DefaultTTL), rdb, nil
}

func newPublisher(cfg *config.Config, l *slog.Logger) (events.Publisher, error) {
	var fan events.Fanout
	if len(cfg.Kafka.Brokers) > 0 {
		fan = append(fan, events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		l.Info("events_enabled", "backend", "kafka", "topic", cfg.Kafka.Topic)
	}
	if cfg.AMQP.URL != "" {
		p, err := events.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			_ = fan.Close()
			return nil, err
		}
		fan = append(fan, p)
		l.Info("events_enabled", "backend", "amqp", "queue", cfg.AMQP.Queue)
	}
	if len(fan) == 0 {
		return events.Nop{}, nil
	}
	return fan, nil
}

func readiness(gdb *gorm.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		return db.Ping(ctx, gdb)
	}
}
