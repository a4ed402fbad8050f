// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bigkaa/goartstore/file-metadata/internal/config"
)

// statusFail — строковая константа для статуса "fail" в health checks.
const statusFail = "fail"

// readyTimeout — лимит времени на проверку готовности.
const readyTimeout = 3 * time.Second

// ReadinessProbe — проверка готовности хранилища и индекса.
type ReadinessProbe interface {
	Ready(ctx context.Context) error
}

// DependencyHealth — состояние внешних зависимостей (dephealth).
type DependencyHealth interface {
	Health() map[string]bool
}

// HealthHandler реализует health endpoints: /health/live, /health/ready.
type HealthHandler struct {
	version string
	probe   ReadinessProbe
	// deps — nil, если мониторинг зависимостей не включён
	deps DependencyHealth
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(probe ReadinessProbe, deps DependencyHealth) *HealthHandler {
	return &HealthHandler{
		version: config.Version,
		probe:   probe,
		deps:    deps,
	}
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "file-metadata",
	})
}

// HealthReady обрабатывает GET /health/ready.
// Проверяет: директория по умолчанию доступна на запись, индекс отвечает.
// Неготовая некритичная зависимость даёт статус degraded без 503.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	overallStatus := "ok"
	httpStatus := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	storageCheck := map[string]any{"status": "ok"}
	if err := h.probe.Ready(ctx); err != nil {
		storageCheck = map[string]any{
			"status":  statusFail,
			"message": err.Error(),
		}
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	checks := map[string]any{
		"storage": storageCheck,
	}

	if h.deps != nil {
		deps := h.deps.Health()
		checks["dependencies"] = deps
		for _, ok := range deps {
			if !ok && overallStatus != statusFail {
				overallStatus = "degraded"
			}
		}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "file-metadata",
		"checks":    checks,
	})
}
