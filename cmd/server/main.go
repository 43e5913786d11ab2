package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/office_requests/internal/config"
	"github.com/Skotchmaster/office_requests/internal/credit"
	"github.com/Skotchmaster/office_requests/internal/db"
	"github.com/Skotchmaster/office_requests/internal/events"
	"github.com/Skotchmaster/office_requests/internal/hash"
	"github.com/Skotchmaster/office_requests/internal/httpserver"
	"github.com/Skotchmaster/office_requests/internal/logging"
	"github.com/Skotchmaster/office_requests/internal/metrics"
	authmw "github.com/Skotchmaster/office_requests/internal/middleware/auth"
	"github.com/Skotchmaster/office_requests/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/office_requests/internal/middleware/logging"
	"github.com/Skotchmaster/office_requests/internal/middleware/ratelimit"
	"github.com/Skotchmaster/office_requests/internal/repo"
	"github.com/Skotchmaster/office_requests/internal/search"
	"github.com/Skotchmaster/office_requests/internal/service"
	"github.com/Skotchmaster/office_requests/internal/tokens"
)

const registrySweepInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	store := repo.New(gdb)

	codec, err := tokens.NewCodec(tokens.Config{Secret: cfg.JWTSecret, TTL: cfg.AccessTokenTTL}, store)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	m := metrics.New()

	svc := &service.AuthService{
		Repo:           store,
		Codec:          codec,
		Hasher:         hash.New(cfg.BcryptCost),
		Events:         publisher,
		Metrics:        m,
		DefaultCredits: cfg.DefaultCredits,
	}

	requests := &httpserver.RequestHTTP{
		Repo: store,
		Gate: &credit.Gate{Store: store, Events: publisher, Metrics: m},
	}
	if cfg.ESURL != "" {
		esCtx, esCancel := context.WithTimeout(context.Background(), 10*time.Second)
		sc, err := search.NewClient(esCtx, search.Config{URL: cfg.ESURL, Username: cfg.ESUser, Password: cfg.ESPassword, Index: cfg.ESIndex})
		esCancel()
		if err != nil {
			logger.Warn("search_disabled", "error", err)
		} else {
			requests.Search = sc
		}
	}

	var limiter echo.MiddlewareFunc
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		limiter = ratelimit.New(cfg.RateLimit, rdb)
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpserver.ErrorHandler
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:    &httpserver.AuthHTTP{Svc: svc, CookieSecure: cfg.CookieSecure},
		RequestHandler: requests,
		AuthMiddleware: &authmw.Middleware{Resolver: svc, CookieSecure: cfg.CookieSecure},
		RateLimit:      limiter,
		CSRF:           csrf.Middleware(csrf.Config{Secure: cfg.CookieSecure}),
		Ready: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		Metrics: promhttp.Handler(),
	})

	bgCtx, bgCancel := context.WithCancel(context.Background())
	go sweepRegistry(logging.IntoContext(bgCtx, logger), store)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("http_server_started", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting_down")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error("kafka_close_error", "error", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis_close_error", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_error", "error", err)
	}

	logger.Info("shutdown_complete")
}

// sweepRegistry drops registry rows whose expiry has passed.
func sweepRegistry(ctx context.Context, store *repo.GormRepo) {
	l := logging.FromContext(ctx)
	ticker := time.NewTicker(registrySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeInert(ctx, time.Now())
			if err != nil {
				l.Warn("registry_sweep_failed", "error", err)
				continue
			}
			if n > 0 {
				l.Info("registry_swept", "removed", n)
			}
		}
	}
}
