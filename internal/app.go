package internal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"file-upload-api/config"
	"file-upload-api/internal/application/ports"
	"file-upload-api/internal/application/services"
	"file-upload-api/internal/domain/alias"
	"file-upload-api/internal/domain/file"
	"file-upload-api/internal/infrastructure/db/postgres"
	filedb "file-upload-api/internal/infrastructure/db/postgres/file"
	"file-upload-api/internal/infrastructure/db/postgres/owner"
	"file-upload-api/internal/infrastructure/imaging"
	"file-upload-api/internal/infrastructure/jwt"
	"file-upload-api/internal/infrastructure/metrics"
	"file-upload-api/internal/infrastructure/mq"
	"file-upload-api/internal/infrastructure/recordcache"
	"file-upload-api/internal/infrastructure/redis"
	"file-upload-api/internal/infrastructure/s3"
	"file-upload-api/internal/infrastructure/storage/local"
	"file-upload-api/internal/interface/api/rest"
	"file-upload-api/internal/interface/api/rest/middleware"
	"file-upload-api/pkg/rmqconsumer"
)

type App struct {
	logger     *zap.Logger
	cfg        config.Config
	db         *pgxpool.Pool
	rdb        *goredis.Client
	httpSrv    *http.Server
	router     *gin.Engine
	mCounter   *prometheus.CounterVec
	mq         ports.RabbitMQ
	mqConsumer ports.RMQConsumer

	aliases   *alias.Registry
	manager   *services.FileManager
	uploads   *services.Upload
	retrieval *services.Retrieval
	files     *services.Files
}

func NewApp(ctx context.Context) (*App, error) {
	// logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("cannot initialize zap logger: %v", err)
	}
	defer logger.Sync()

	// config, .env is optional outside local runs
	if err = godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Fatal("error loading .env file", zap.Error(err))
	}
	cfg := config.Load()

	policy, err := config.LoadPolicy(cfg.Files.PolicyFile)
	if err != nil {
		logger.Fatal("files policy error", zap.Error(err))
	}
	formats, aliases, err := policy.Registries(imaging.Factories())
	if err != nil {
		logger.Fatal("files policy is invalid", zap.Error(err))
	}

	// metrics
	mCounter := metrics.NewCounter()

	// router
	switch cfg.App.Env {
	case gin.ReleaseMode, "prod", "production":
		gin.SetMode(gin.ReleaseMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogGin(logger, mCounter))

	// httpServer
	httpSrv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: r,
	}

	// db
	dbDsn, err := cfg.DBDSN()
	if err != nil {
		logger.Fatal("DB config error", zap.Error(err))
	}
	if cfg.DB.Migrate {
		migrateDsn, _ := cfg.MigrateDSN()
		if err = postgres.Migrate(logger, migrateDsn); err != nil {
			logger.Fatal("failed to migrate database", zap.Error(err))
		}
	}
	dbPool, err := postgres.New(ctx, logger, dbDsn)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	// blob stores
	app := &App{
		logger:   logger,
		cfg:      cfg,
		db:       dbPool,
		httpSrv:  httpSrv,
		router:   r,
		mCounter: mCounter,
		aliases:  aliases,
	}
	content, cache, err := app.blobStores(ctx)
	if err != nil {
		logger.Fatal("failed to init storage", zap.Error(err))
	}

	// rabbitMQ
	var events ports.EventPublisher = mq.Discard{}
	var rabbitDsn string
	if cfg.MQEnabled() {
		rabbitDsn, err = cfg.AMQPDSN()
		if err != nil {
			logger.Fatal("RabbitMQ config error", zap.Error(err))
		}
		rbMQ := mq.New(cfg.MQ, logger)
		if err = rbMQ.Connect(ctx, rabbitDsn); err != nil {
			logger.Fatal("failed to connect to rabbitMQ", zap.Error(err))
		}
		if err = rbMQ.Init(); err != nil {
			logger.Fatal("failed init rabbitMQ", zap.Error(err))
		}
		app.mq, events = rbMQ, rbMQ
	} else {
		logger.Warn("rabbitMQ is not configured, file events are discarded")
	}

	// repos
	var fileRepo file.Repository = filedb.NewRepository(dbPool)
	if cfg.Files.RecordCacheSize > 0 {
		fileRepo = recordcache.New(fileRepo, cfg.Files.RecordCacheSize, cfg.Files.RecordCacheTTL, mCounter)
	}
	owners := owner.NewResolver(dbPool)

	// services
	deps := services.Deps{
		Content: content,
		Cache:   cache,
		Aliases: aliases,
		Formats: formats,
		Config: services.ManagerConfig{
			UploadBaseURL:    cfg.Files.UploadBaseURL,
			CacheBaseURL:     cfg.Files.CacheBasePath,
			DownloadURL:      cfg.Files.DownloadPath,
			FilesBaseURL:     rest.RouteFiles,
			PublicURL:        cfg.App.PublicURL,
			NotFoundImageURL: cfg.Files.NotFoundImageURL,
			NotFoundFileURL:  cfg.Files.NotFoundFileURL,
			Silent:           cfg.Files.Silent,
			AppendTimestamp:  cfg.Files.AppendTimestamp,
		},
		Logger:  logger,
		Counter: mCounter,
	}
	app.manager = services.NewFileManager(deps)
	app.retrieval = services.NewRetrieval(app.manager, fileRepo)
	app.files = services.NewFiles(deps, fileRepo, events)
	app.uploads = services.NewUpload(
		deps,
		fileRepo,
		owners,
		events,
		&http.Client{Timeout: cfg.Files.FetchTimeout},
		cfg.Files.MaxUploadSize,
	)

	//rmqConsumer
	if app.mq != nil {
		rmqConsumer := rmqconsumer.New(cfg.MQ, logger, app.mq.GetConn(), app.files)
		if err = rmqConsumer.Connect(rabbitDsn); err != nil {
			logger.Fatal("failed to connect rabbitMQ consumer", zap.Error(err))
		}
		if err = rmqConsumer.Init(); err != nil {
			logger.Fatal("failed to init rabbitMQ consumer", zap.Error(err))
		}
		app.mqConsumer = rmqConsumer
	}

	logger.Info("files policy loaded", zap.Strings("aliases", aliases.Names()))

	return app, nil
}

// blobStores builds the content and cache stores for the configured backends.
// Redis only serves derived assets, originals must be durable.
func (a *App) blobStores(ctx context.Context) (ports.BlobStore, ports.BlobStore, error) {
	st := a.cfg.Storage

	var mc *minio.Client
	if st.ContentBackend == config.BackendS3 || st.CacheBackend == config.BackendS3 {
		var buckets []string
		if st.ContentBackend == config.BackendS3 {
			buckets = append(buckets, a.cfg.S3.BucketContent)
		}
		if st.CacheBackend == config.BackendS3 {
			buckets = append(buckets, a.cfg.S3.BucketCache)
		}
		var err error
		if mc, err = s3.NewMinio(ctx, a.logger, a.cfg.S3, buckets...); err != nil {
			return nil, nil, err
		}
	}

	var content ports.BlobStore
	switch st.ContentBackend {
	case config.BackendLocal:
		store, err := local.New(st.ContentDir)
		if err != nil {
			return nil, nil, err
		}
		content = store
	case config.BackendS3:
		content = s3.New(a.logger, mc, a.cfg.S3.BucketContent)
	default:
		return nil, nil, fmt.Errorf("unsupported content backend %q", st.ContentBackend)
	}

	var cache ports.BlobStore
	switch st.CacheBackend {
	case config.BackendLocal:
		store, err := local.New(st.CacheDir)
		if err != nil {
			return nil, nil, err
		}
		cache = store
	case config.BackendS3:
		cache = s3.New(a.logger, mc, a.cfg.S3.BucketCache)
	case config.BackendRedis:
		rdb, err := redis.NewClient(ctx, a.cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		a.rdb = rdb
		cache = redis.New(rdb, a.cfg.Redis.KeyPrefix)
	default:
		return nil, nil, fmt.Errorf("unsupported cache backend %q", st.CacheBackend)
	}

	a.logger.Info("storage ready",
		zap.String("content_backend", st.ContentBackend),
		zap.String("cache_backend", st.CacheBackend),
	)

	return content, cache, nil
}

func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.mq != nil && a.mq.GetConn() != nil {
		a.mq.GetConn().Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// Run - The central place to launch and manage our application and
// parallel processes through a single context.
func (a *App) Run(ctx context.Context) error {
	// context with os signals cancel chan
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("starting "+a.cfg.App.Name, zap.String("addr", a.cfg.App.Host+":"+a.cfg.App.Port))
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server "+a.cfg.App.Name+" error: %w", err)
		}

		return nil
	})

	if a.mq != nil {
		g.Go(func() error {
			a.mq.PublisherWorker(ctx)
			return nil
		})
	}

	if a.mqConsumer != nil {
		g.Go(func() error {
			a.mqConsumer.DeliveryWorker(ctx)
			return nil
		})
	}

	<-ctx.Done()

	a.logger.Info("shutting down " + a.cfg.App.Name + " gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if a.httpSrv != nil {
		if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown "+a.cfg.App.Name+" error", zap.Error(err))
			return err
		}
	}

	if err := g.Wait(); err != nil {
		a.logger.Error(a.cfg.App.Name+" returning an error", zap.Error(err))
		return err
	}

	a.logger.Info(a.cfg.App.Name + " gracefully stopped")

	return nil
}

func (a *App) InitControllers() {
	// an empty secret leaves the mutating routes open, for internal deployments
	var jwtService *jwt.Service
	if a.cfg.App.JWTSecret != "" {
		jwtService = jwt.New(a.cfg.App.JWTSecret)
	} else {
		a.logger.Warn("SERVICE_JWT_SECRET is empty, upload and delete routes are not protected")
	}

	// controllers
	rest.NewFileController(
		a.router,
		a.uploads,
		a.retrieval,
		a.files,
		a.manager,
		a.aliases,
		a.logger,
		jwtService,
		a.cfg.Files.CacheBasePath,
	)

	// ops
	a.router.GET(rest.RouteHealth, func(c *gin.Context) { c.Status(http.StatusOK) })
	a.router.GET(rest.RouteMetrics, gin.WrapH(promhttp.Handler()))
}

func (a *App) Logger() *zap.Logger { return a.logger }
