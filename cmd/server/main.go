package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/agrohub/marketplace/internal/cache"
	"github.com/agrohub/marketplace/internal/config"
	"github.com/agrohub/marketplace/internal/db"
	"github.com/agrohub/marketplace/internal/es"
	"github.com/agrohub/marketplace/internal/httpserver"
	"github.com/agrohub/marketplace/internal/logging"
	"github.com/agrohub/marketplace/internal/metrics"
	loggingmw "github.com/agrohub/marketplace/internal/middleware/logging"
	"github.com/agrohub/marketplace/internal/mykafka"
	"github.com/agrohub/marketplace/internal/payment"
	"github.com/agrohub/marketplace/internal/repo"
	"github.com/agrohub/marketplace/internal/repo/gormrepo"
	"github.com/agrohub/marketplace/internal/repo/mongorepo"
	"github.com/agrohub/marketplace/internal/service"
	"github.com/agrohub/marketplace/internal/service/search"
	"github.com/agrohub/marketplace/internal/tokens"
)

func main() {
	cfg := config.Load()
	config.MustValidate(cfg)

	l := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(l)

	initCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := openStore(initCtx, cfg)
	if err != nil {
		cancel()
		l.Error("storage init error", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}

	var productCache cache.ProductCache
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		rc := cache.NewRedisCache(rdb, cfg.ProductCacheTTL)
		if err := rc.Ping(initCtx); err != nil {
			l.Warn("redis unavailable, product cache disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			productCache = rc
		}
	}

	var index service.ProductIndex
	if cfg.ESURL != "" {
		client, err := es.NewClient(initCtx, es.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword}, l)
		if err != nil {
			l.Warn("elasticsearch unavailable, search disabled", "error", err)
		} else {
			pi := search.NewProductIndex(client, cfg.ESIndex)
			if err := pi.EnsureIndex(initCtx); err != nil {
				l.Warn("ensure index error, search disabled", "index", cfg.ESIndex, "error", err)
			} else {
				index = pi
			}
		}
	}
	cancel()

	var events mykafka.Publisher = mykafka.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		events = mykafka.NewProducer(cfg.KafkaBrokers)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewServerMetrics(cfg.ServiceName, reg)

	provider := payment.NewBreakerProvider(
		payment.NewStripeProvider(cfg.Checkout.StripeSecretKey, cfg.Checkout.StripeWebhookSecret),
		payment.DefaultBreakerSettings(),
		l,
	)
	iss := tokens.NewIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)

	cartService := service.NewCartService(store, store, events, m)
	ledger := service.NewLedgerService(store, store, events, m)
	checkoutService := service.NewCheckoutService(store, store, provider, ledger, events, m, cfg.Checkout)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(l))
	e.Use(m.Middleware())
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		CartHandler:     &httpserver.CartHTTP{Svc: cartService},
		CheckoutHandler: &httpserver.CheckoutHTTP{Svc: checkoutService},
		UserHandler: &httpserver.UserHTTP{
			Svc:          service.NewUserService(store, iss, events),
			Analytics:    service.NewAnalyticsService(store, store),
			CookieSecure: cfg.CookieSecure,
		},
		ProductHandler: &httpserver.ProductHTTP{Svc: service.NewProductService(store, productCache, index, events)},
		SchemeHandler:  &httpserver.SchemeHTTP{Svc: service.NewSchemeService(store, events)},
		Tokens:         iss,
		Metrics:        m,
		Ready:          store.Ping,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		l.Info("starting server", "addr", srv.Addr, "storage", cfg.StorageDriver, "attribution", cfg.Checkout.Attribution)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	l.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("server shutdown error", "error", err)
	}
	if err := events.Close(); err != nil {
		l.Warn("kafka close error", "error", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := store.Close(shutdownCtx); err != nil {
		l.Warn("storage close error", "error", err)
	}
	l.Info("server stopped")
}

func openStore(ctx context.Context, cfg config.Config) (repo.Repository, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMongo:
		database, err := mongorepo.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		r := mongorepo.New(database)
		if err := r.CreateIndexes(ctx); err != nil {
			return nil, fmt.Errorf("create indexes: %w", err)
		}
		return r, nil

	default:
		gdb, err := db.Open(ctx, cfg.StorageDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		r := gormrepo.New(gdb)
		if err := r.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return r, nil
	}
}
