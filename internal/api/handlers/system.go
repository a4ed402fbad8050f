// system.go — обработчик GET /info (информация о сервисе).
// Публичный endpoint для service discovery и мониторинга.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/goartstore/file-metadata/internal/api/errors"
	"github.com/bigkaa/goartstore/file-metadata/internal/config"
	"github.com/bigkaa/goartstore/file-metadata/internal/service"
)

// DiskUsageFunc — ёмкость файловой системы директории по умолчанию.
type DiskUsageFunc func() (total, used, available int64, err error)

// capacityInfo — ёмкость диска в байтах.
type capacityInfo struct {
	TotalBytes     int64 `json:"totalBytes"`
	UsedBytes      int64 `json:"usedBytes"`
	AvailableBytes int64 `json:"availableBytes"`
}

// serviceInfo — ответ GET /info.
type serviceInfo struct {
	ServiceID    string        `json:"serviceId"`
	Version      string        `json:"version"`
	IndexBackend string        `json:"indexBackend"`
	DefaultRoot  string        `json:"defaultRoot"`
	MaxFileSize  int64         `json:"maxFileSize"`
	Records      int           `json:"records"`
	Capacity     *capacityInfo `json:"capacity,omitempty"`
}

// SystemHandler — обработчик системных endpoints.
type SystemHandler struct {
	cfg       *config.Config
	files     *service.FileService
	diskUsage DiskUsageFunc
}

// NewSystemHandler создаёт обработчик системных endpoints.
func NewSystemHandler(cfg *config.Config, files *service.FileService, diskUsage DiskUsageFunc) *SystemHandler {
	return &SystemHandler{
		cfg:       cfg,
		files:     files,
		diskUsage: diskUsage,
	}
}

// GetInfo обрабатывает GET /info.
// Ёмкость не выводится, если statfs недоступен на платформе.
func (h *SystemHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	records, err := h.files.List(r.Context())
	if err != nil {
		apierrors.InternalError(w, err.Error())
		return
	}

	resp := serviceInfo{
		ServiceID:    h.cfg.ServiceID,
		Version:      config.Version,
		IndexBackend: h.cfg.IndexBackend,
		DefaultRoot:  h.cfg.DefaultRoot,
		MaxFileSize:  h.cfg.MaxFileSize,
		Records:      len(records),
	}

	if h.diskUsage != nil {
		if total, used, available, err := h.diskUsage(); err == nil {
			resp.Capacity = &capacityInfo{
				TotalBytes:     total,
				UsedBytes:      used,
				AvailableBytes: available,
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
