// info.go — публичные информационные endpoints: /, /health, /version.
package handlers

import (
	"net/http"
	"time"

	"github.com/Hexidus/watchgraph/internal/config"
)

const (
	productName = "WatchGraph"
	companyName = "Hexidus"
	platformTag = "Continuous AI Compliance Monitoring"
)

// InfoHandler отдаёт баннер сервиса, простой health и версию.
type InfoHandler struct {
	environment string
	now         func() time.Time
}

// NewInfoHandler создаёт обработчик информационных endpoints.
func NewInfoHandler(environment string) *InfoHandler {
	return &InfoHandler{environment: environment, now: time.Now}
}

type rootResponse struct {
	Message     string `json:"message"`
	Company     string `json:"company"`
	Version     string `json:"version"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
}

type simpleHealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

type versionResponse struct {
	Service     string `json:"service"`
	Version     string `json:"version"`
	Platform    string `json:"platform"`
	Company     string `json:"company"`
	Environment string `json:"environment"`
}

// Root — GET /.
func (h *InfoHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Message:     "Hello from " + productName + " - " + platformTag + " Platform",
		Company:     companyName,
		Version:     config.Version,
		Status:      "running",
		Timestamp:   h.now().UTC().Format(time.RFC3339),
		Description: "Real-time monitoring and compliance checking for AI systems",
	})
}

// Health — GET /health. Не проверяет зависимости, для этого есть /health/ready.
func (h *InfoHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, simpleHealthResponse{
		Status:    "healthy",
		Service:   productName + " API",
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Uptime:    "operational",
	})
}

// Version — GET /version.
func (h *InfoHandler) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, versionResponse{
		Service:     productName,
		Version:     config.Version,
		Platform:    platformTag,
		Company:     companyName,
		Environment: h.environment,
	})
}
