// dephealth.go — граф зависимостей WatchGraph в метриках topologymetrics.
//
// Вершины графа:
//   - postgresql: состояние pgxpool через *sql.DB адаптер (critical)
//   - cognito-jwks: документ JWKS user pool (critical)
//   - evidence-storage: S3-совместимое хранилище с собственным endpoint,
//     например MinIO (не critical: без него недоступна только работа с файлами)
//
// Метрики app_dependency_health и app_dependency_latency_seconds
// публикуются на /metrics рядом с метриками API.
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// Имена вершин графа.
const (
	DependencyPostgres = "postgresql"
	DependencyJWKS     = "cognito-jwks"
	DependencyStorage  = "evidence-storage"
)

// DephealthConfig — что и как часто проверять.
type DephealthConfig struct {
	ServiceID string
	Group     string
	// DB получен из pgxpool через stdlib.OpenDBFromPool.
	DB *sql.DB
	// PostgresURL без пароля, попадает в лейблы.
	PostgresURL string
	JWKSURL     string
	// StorageURL — endpoint S3-совместимого хранилища. Пусто для AWS S3,
	// GCS и локального диска: их доступность здесь не проверяется.
	StorageURL        string
	StorageHealthPath string
	CheckInterval     time.Duration
	// Registerer по умолчанию — глобальный реестр Prometheus.
	Registerer prometheus.Registerer
}

// DephealthService — периодические проверки зависимостей.
type DephealthService struct {
	dh     *dephealth.DepHealth
	deps   []string
	logger *slog.Logger
}

// NewDephealthService регистрирует зависимости и метрики. Проверки
// начинаются только после Start.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	deps := []string{DependencyPostgres, DependencyJWKS}
	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		dephealth.AddDependency(DependencyPostgres, dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(cfg.DB)),
			dependencyOptions(cfg.PostgresURL, "", cfg.CheckInterval, true)...,
		),
		// Cognito не отдаёт /health, проверяется сам JWKS документ.
		dephealth.HTTP(DependencyJWKS,
			dependencyOptions(cfg.JWKSURL, urlPath(cfg.JWKSURL, "/health"), cfg.CheckInterval, true)...,
		),
	}
	if cfg.StorageURL != "" {
		deps = append(deps, DependencyStorage)
		opts = append(opts, dephealth.HTTP(DependencyStorage,
			dependencyOptions(cfg.StorageURL, cfg.StorageHealthPath, cfg.CheckInterval, false)...,
		))
	}
	if cfg.Registerer != nil {
		opts = append(opts, dephealth.WithRegisterer(cfg.Registerer))
	}

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		deps:   deps,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// dependencyOptions собирает общие опции вершины. healthPath задаётся
// только для HTTP-проверок.
func dependencyOptions(rawURL, healthPath string, interval time.Duration, critical bool) []dephealth.DependencyOption {
	opts := []dephealth.DependencyOption{
		dephealth.FromURL(rawURL),
		dephealth.CheckInterval(interval),
		dephealth.Critical(critical),
	}
	if healthPath != "" {
		opts = append(opts, dephealth.WithHTTPHealthPath(healthPath))
	}
	return opts
}

// urlPath возвращает path из rawURL или fallback, если его нет.
func urlPath(rawURL, fallback string) string {
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Path != "" {
		return parsed.Path
	}
	return fallback
}

// Start запускает проверки в фоне до Stop или отмены ctx.
func (ds *DephealthService) Start(ctx context.Context) error {
	if err := ds.dh.Start(ctx); err != nil {
		return err
	}
	ds.logger.Info("Мониторинг зависимостей запущен", slog.Any("dependencies", ds.deps))
	return nil
}

// Stop останавливает проверки.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Dependencies — имена зарегистрированных вершин.
func (ds *DephealthService) Dependencies() []string {
	return ds.deps
}
