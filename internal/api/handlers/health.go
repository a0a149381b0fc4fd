// health.go — пробы WatchGraph для Kubernetes и метрики Prometheus.
// /health/live отвечает, пока жив процесс; /health/ready опрашивает
// зарегистрированные зависимости (база с каталогом, Cognito JWKS).
package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Hexidus/watchgraph/internal/config"
)

const serviceName = "watchgraph"

// Статусы проверок готовности.
const (
	checkOK       = "ok"
	checkDegraded = "degraded"
	checkFail     = "fail"
)

// ReadinessChecker — зависимость, участвующая в /health/ready.
type ReadinessChecker interface {
	// CheckReady возвращает статус ("ok", "degraded", "fail") и пояснение.
	CheckReady() (status string, message string)
}

// NamedCheck связывает проверку с ключом в ответе readiness.
type NamedCheck struct {
	Name    string
	Checker ReadinessChecker
}

// HealthHandler — обработчик проб и /metrics.
type HealthHandler struct {
	checks      []NamedCheck
	startedAt   time.Time
	promHandler http.Handler
}

// NewHealthHandler создаёт обработчик проб. Проверка с nil Checker
// всегда даёт fail: зависимость заявлена, но не поднята.
func NewHealthHandler(checks ...NamedCheck) *HealthHandler {
	return &HealthHandler{
		checks:      checks,
		startedAt:   time.Now(),
		promHandler: promhttp.Handler(),
	}
}

type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthLiveResponse struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	Version       string `json:"version"`
	Service       string `json:"service"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type healthReadyResponse struct {
	Status    string                       `json:"status"`
	Timestamp string                       `json:"timestamp"`
	Version   string                       `json:"version"`
	Service   string                       `json:"service"`
	Checks    map[string]healthCheckResult `json:"checks"`
}

// HealthLive — GET /health/live.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthLiveResponse{
		Status:        checkOK,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       config.Version,
		Service:       serviceName,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	})
}

// HealthReady — GET /health/ready. 503 только при fail;
// degraded оставляет под в балансировке.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	results := h.runAll()

	statuses := make([]string, 0, len(results))
	for _, res := range results {
		statuses = append(statuses, res.Status)
	}

	resp := healthReadyResponse{
		Status:    overallStatus(statuses...),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
		Checks:    results,
	}

	code := http.StatusOK
	if resp.Status == checkFail {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// GetMetrics — GET /metrics.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

// runAll опрашивает зависимости параллельно: каждая проверка
// ограничена своим таймаутом, и медленный JWKS не должен ждать базу.
func (h *HealthHandler) runAll() map[string]healthCheckResult {
	results := make(map[string]healthCheckResult, len(h.checks))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, c := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := runCheck(c.Checker)
			mu.Lock()
			results[c.Name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

func runCheck(c ReadinessChecker) healthCheckResult {
	if c == nil {
		return healthCheckResult{Status: checkFail, Message: "не инициализирован"}
	}
	status, msg := c.CheckReady()
	return healthCheckResult{Status: status, Message: msg}
}

// overallStatus: fail сильнее degraded, degraded сильнее ok.
// Неизвестный статус проверки считается fail.
func overallStatus(statuses ...string) string {
	result := checkOK
	for _, s := range statuses {
		switch s {
		case checkOK:
		case checkDegraded:
			result = checkDegraded
		default:
			return checkFail
		}
	}
	return result
}
