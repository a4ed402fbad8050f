// maintenance.go — обработчик POST /maintenance/reconcile.
// Делегирует сверку в ReconcileService.
package handlers

import (
	"context"
	"errors"
	"net/http"

	apierrors "github.com/bigkaa/goartstore/file-metadata/internal/api/errors"
	"github.com/bigkaa/goartstore/file-metadata/internal/service"
)

// ReconcileRunner — интерфейс для запуска сверки.
// Позволяет тестировать handler без полного ReconcileService.
type ReconcileRunner interface {
	RunOnce(ctx context.Context) (*service.ReconcileReport, error)
}

// MaintenanceHandler — обработчик endpoints обслуживания.
type MaintenanceHandler struct {
	reconciler ReconcileRunner
}

// NewMaintenanceHandler создаёт обработчик maintenance endpoints.
func NewMaintenanceHandler(reconciler ReconcileRunner) *MaintenanceHandler {
	return &MaintenanceHandler{reconciler: reconciler}
}

// Reconcile обрабатывает POST /maintenance/reconcile.
// Выполняет сверку синхронно и возвращает отчёт.
// Если сверка уже выполняется — 409 RECONCILE_IN_PROGRESS.
func (h *MaintenanceHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.RunOnce(r.Context())
	if errors.Is(err, service.ErrReconcileInProgress) {
		apierrors.ReconcileInProgress(w, "Сверка уже выполняется")
		return
	}
	if err != nil {
		apierrors.InternalError(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}
