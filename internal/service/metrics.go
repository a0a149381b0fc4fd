// metrics.go — Prometheus-метрики бизнес-операций WatchGraph.
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Значения лейбла result для wg_evidence_uploads_total.
const (
	uploadResultOK           = "ok"
	uploadResultRejected     = "rejected"
	uploadResultStorageError = "storage_error"
	uploadResultDBError      = "db_error"
)

var (
	statusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wg_requirement_status_transitions_total",
			Help: "Количество изменений статуса назначений требований.",
		},
		[]string{"from", "to"},
	)

	requirementsAssignedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wg_requirements_assigned_total",
			Help: "Количество требований, назначенных при регистрации систем.",
		},
		[]string{"risk_category"},
	)

	evidenceUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wg_evidence_uploads_total",
			Help: "Количество попыток загрузки evidence по результату.",
		},
		[]string{"result"},
	)

	evidenceUploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wg_evidence_upload_bytes",
		Help:    "Размер успешно загруженных evidence-файлов в байтах.",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
	})

	catalogCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wg_catalog_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш каталога требований.",
	})
	catalogCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wg_catalog_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша каталога требований.",
	})
)
