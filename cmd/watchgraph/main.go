// Точка входа WatchGraph — сервис учёта соответствия AI-систем EU AI Act.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// сидирует каталог требований, создаёт хранилище evidence, сервисный слой
// и API handlers, запускает topologymetrics и HTTP-сервер с JWT middleware
// и graceful shutdown.
package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/Hexidus/watchgraph/internal/api/handlers"
	"github.com/Hexidus/watchgraph/internal/api/middleware"
	"github.com/Hexidus/watchgraph/internal/api/openapi"
	"github.com/Hexidus/watchgraph/internal/blobstore"
	"github.com/Hexidus/watchgraph/internal/config"
	"github.com/Hexidus/watchgraph/internal/database"
	"github.com/Hexidus/watchgraph/internal/repository"
	"github.com/Hexidus/watchgraph/internal/server"
	"github.com/Hexidus/watchgraph/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("WatchGraph запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("environment", cfg.Environment),
	)

	if os.Getenv("WG_DEPHEALTH_GROUP") == "" {
		logger.Warn("WG_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	store := repository.NewStore(pool)

	// 5. Каталог требований: сидирование при пустой таблице
	catalogSvc := service.NewCatalogService(store, cfg.CatalogCacheSize, cfg.CatalogCacheTTL, logger)
	seeded, err := catalogSvc.Seed(ctx)
	if err != nil {
		logger.Error("Ошибка сидирования каталога", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Каталог требований готов", slog.Int("seeded", seeded))

	// 6. Хранилище evidence (s3 / gcs / fs)
	blobs, err := blobstore.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища evidence",
			slog.String("type", cfg.StorageType),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	if closer, ok := blobs.(io.Closer); ok {
		defer closer.Close()
	}

	// 7. Services
	engine := service.NewAssignmentEngine(catalogSvc, logger)
	systemsSvc := service.NewSystemService(store, engine, logger)
	complianceSvc := service.NewComplianceService(store, logger)
	evidenceSvc := service.NewEvidenceService(store, blobs, logger)

	// 8. JWT middleware (Cognito JWKS)
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWKSURL,
		cfg.JWTIssuer,
		cfg.CognitoAppClientID,
		cfg.JWKSClientTimeout,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 9. topologymetrics — мониторинг зависимостей
	dhCfg := service.DephealthConfig{
		ServiceID:     "watchgraph",
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PostgresURL:   cfg.DatabaseURL(),
		JWKSURL:       cfg.JWKSURL,
		CheckInterval: cfg.DephealthCheckInterval,
	}
	if cfg.StorageType == config.StorageTypeS3 && cfg.S3Endpoint != "" {
		dhCfg.StorageURL = cfg.S3Endpoint
		dhCfg.StorageHealthPath = cfg.S3HealthPath
	}
	dephealthSvc, err := service.NewDephealthService(dhCfg, logger)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
	} else if err := dephealthSvc.Start(ctx); err != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 10. Handlers
	doc, err := openapi.Load(ctx)
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI документа", slog.String("error", err.Error()))
		os.Exit(1)
	}
	docsHandler, err := handlers.NewDocsHandler(doc)
	if err != nil {
		logger.Error("Ошибка подготовки OpenAPI документа", slog.String("error", err.Error()))
		os.Exit(1)
	}

	healthHandler := handlers.NewHealthHandler(
		handlers.NamedCheck{Name: "postgresql", Checker: database.NewReadinessChecker(pool)},
		handlers.NamedCheck{Name: "jwks", Checker: middleware.NewJWKSReadinessChecker(cfg.JWKSURL, cfg.JWKSClientTimeout)},
	)
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		handlers.NewInfoHandler(cfg.Environment),
		docsHandler,
		systemsSvc,
		catalogSvc,
		complianceSvc,
		evidenceSvc,
		logger,
	)

	// 11. HTTP-сервер. Ссылки локального хранилища раздаются самим сервисом.
	blobLinks := blobHandler(blobs)
	srv := server.New(cfg, logger, apiHandler, jwtAuth, blobLinks)
	if err := srv.Run(ctx); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 12. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	logger.Info("WatchGraph остановлен")
}

// blobHandler возвращает обработчик подписанных ссылок, если хранилище их обслуживает.
func blobHandler(store blobstore.Store) http.Handler {
	if ls, ok := store.(blobstore.LinkServer); ok {
		return ls.Handler()
	}
	return nil
}
