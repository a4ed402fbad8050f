// handler.go — APIHandler собирает доменные handler'ы
// и регистрирует их маршруты в chi-роутере.
package handlers

import (
	"github.com/go-chi/chi/v5"
)

// APIHandler — единая точка регистрации всех endpoints.
type APIHandler struct {
	files       *FilesHandler
	system      *SystemHandler
	maintenance *MaintenanceHandler
	health      *HealthHandler
}

// NewAPIHandler создаёт единый handler для всех endpoints.
func NewAPIHandler(
	files *FilesHandler,
	system *SystemHandler,
	maintenance *MaintenanceHandler,
	health *HealthHandler,
) *APIHandler {
	return &APIHandler{
		files:       files,
		system:      system,
		maintenance: maintenance,
		health:      health,
	}
}

// Routes регистрирует маршруты. /metrics монтирует сервер.
func (h *APIHandler) Routes(r chi.Router) {
	// --- File Operations ---
	r.Get("/uploadedfiles", h.files.ListFiles)
	r.Get("/filemetadata/{id}", h.files.GetFileMetadata)
	r.Post("/uploadfile", h.files.UploadFile)
	r.Get("/downloadfile/{id}", h.files.DownloadFile)

	// --- System ---
	r.Get("/info", h.system.GetInfo)

	// --- Maintenance ---
	r.Post("/maintenance/reconcile", h.maintenance.Reconcile)

	// --- Health ---
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
}
