package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"

	"github.com/futapp/futapp-api/app/controllers"
	"github.com/futapp/futapp-api/app/repository"
	apiv1 "github.com/futapp/futapp-api/internal/api/v1"
	"github.com/futapp/futapp-api/internal/pkg/archive"
	"github.com/futapp/futapp-api/internal/pkg/cache"
	"github.com/futapp/futapp-api/internal/pkg/config"
	"github.com/futapp/futapp-api/internal/pkg/constants"
	"github.com/futapp/futapp-api/internal/pkg/database"
	"github.com/futapp/futapp-api/internal/pkg/env"
	"github.com/futapp/futapp-api/internal/pkg/ledger"
	"github.com/futapp/futapp-api/internal/pkg/lock"
	"github.com/futapp/futapp-api/internal/pkg/metrics/counter"
	"github.com/futapp/futapp-api/internal/pkg/middleware"
	"github.com/futapp/futapp-api/internal/pkg/payme"
	"github.com/futapp/futapp-api/internal/pkg/router"
)

const shutdownTimeout = 10 * time.Second

func main() {
	env.SetupEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[App] Invalid configuration: %v", err)
	}

	application, err := NewApplication(cfg)
	if err != nil {
		log.Fatalf("[App] Startup failed: %v", err)
	}

	go func() {
		if err := application.App.Listen(cfg.Addr()); err != nil {
			log.Errorf("[App] Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("[App] Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := application.Shutdown(ctx); err != nil {
		log.Errorf("[App] Shutdown: %v", err)
	}
}

// Application is the wired HTTP service and the resources it owns.
type Application struct {
	App     *fiber.App
	closers []func(ctx context.Context) error
}

// NewApplication builds every component from cfg and wires them together.
func NewApplication(cfg *config.Config) (_ *Application, err error) {
	application := &Application{}
	defer func() {
		if err != nil {
			if closeErr := application.Shutdown(context.Background()); closeErr != nil {
				log.Warnf("[App] Releasing resources after failed startup: %v", closeErr)
			}
		}
	}()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	application.onShutdown(func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	var rdb *redis.Client
	if cfg.Cache.Enabled {
		rdb = cache.NewClient(cfg.Cache)
		application.onShutdown(func(ctx context.Context) error { return rdb.Close() })
	}

	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.Webhook.LockBackend == config.LockBackendRedis {
		locker = lock.NewRedisLocker(rdb, "futapp:lock:", cfg.Webhook.LockTTL)
	}

	repos := repository.NewFactory(db).GetRepositories()
	svc := ledger.NewService(repos.Payment, repos.JoinRequest, locker, ledger.Options{
		DownstreamTimeout:  cfg.Webhook.DownstreamTimeout,
		TransactionTimeout: cfg.Payme.TransactionTimeout,
	})

	var observers []payme.Observer
	var stats controllers.WebhookStats
	if rdb != nil {
		webhookCounter := counter.NewWebhookCounter(rdb)
		observers = append(observers, webhookCounter)
		stats = webhookCounter
	}
	if cfg.Archive.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		s3Client, err := archive.NewS3Client(ctx, cfg.Archive)
		cancel()
		if err != nil {
			return nil, err
		}
		archiver := archive.NewArchiver(s3Client, cfg.Archive.Prefix, cfg.Archive.QueueSize)
		observers = append(observers, archiver)
		application.onShutdown(archiver.Close)
	}

	auth, err := payme.NewAuthenticator(cfg.Payme)
	if err != nil {
		return nil, err
	}
	server := payme.NewServer(svc, auth, cfg.Payme.AccountField, observers...)

	checks := map[string]controllers.HealthCheck{
		"database": func(ctx context.Context) error { return database.Ping(db) },
	}
	if rdb != nil {
		checks["cache"] = func(ctx context.Context) error { return cache.Ping(ctx, rdb) }
	}

	// init fiber app
	app := fiber.New(fiberConfig(cfg.App))

	// recovery, request ids and logging
	app.Use(recover.New(), requestid.New(), logger.New(logger.Config{
		Format: "${time} ${status} - ${latency} ${method} ${path} ${respHeader:X-Request-ID}\n",
	}))
	app.Use(middleware.CORS(cfg.CORS))

	// SWAGGER / OPENAPI
	if specPath, ok := findFile(constants.OpenAPIFile); ok {
		app.Use(swagger.New(swagger.Config{
			BasePath: constants.DocsBasePath,
			FilePath: specPath,
			Path:     constants.DocsPath,
		}))
	} else {
		log.Warnf("[App] %s not found, API docs disabled", constants.OpenAPIFile)
	}

	var limiterStorage fiber.Storage
	if rdb != nil {
		limiterStorage = cache.NewLimiterStorage(cfg.Cache)
		application.onShutdown(func(ctx context.Context) error { return limiterStorage.Close() })
	}

	// ROUTER
	router.InstallRouter(app,
		router.NewHttpRouter(controllers.NewMainController(checks), cfg.Metrics, cfg.App.Name),
		router.NewApiRouter(
			apiv1.NewAPIServer(controllers.NewPaymeController(server, cfg.Webhook.Timeout, stats, svc)),
			cfg.RateLimit,
			cfg.Metrics,
			limiterStorage,
		),
	)

	application.App = app
	log.Infof("[App] %s ready (env=%s, lock=%s, archive=%t)", cfg.App.Name, cfg.App.Env, cfg.Webhook.LockBackend, cfg.Archive.Enabled)
	return application, nil
}

// fiberConfig resolves the client address from ProxyHeader only for requests
// coming from a trusted proxy, so the Payme IP allow-list sees the caller
// and not the load balancer.
func fiberConfig(cfg config.App) fiber.Config {
	fc := fiber.Config{
		AppName:   cfg.Name,
		BodyLimit: 1 << 20,
	}
	if cfg.ProxyHeader != "" {
		fc.ProxyHeader = cfg.ProxyHeader
		fc.EnableTrustedProxyCheck = true
		fc.TrustedProxies = cfg.TrustedProxies
		fc.EnableIPValidation = true
	}
	return fc
}

func (a *Application) onShutdown(fn func(ctx context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Shutdown stops accepting requests, drains in-flight ones and releases
// resources in reverse order of creation.
func (a *Application) Shutdown(ctx context.Context) error {
	var errs []error
	if a.App != nil {
		if err := a.App.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func findFile(rel string) (string, bool) {
	for _, base := range []string{"./", "../../", "../../../"} {
		if _, err := os.Stat(base + rel); err == nil {
			return base + rel, true
		}
	}
	return "", false
}
