// reconcile.go — фоновая сверка директории по умолчанию с индексом метаданных.
//
// Регистрация не атомарна относительно диска и индекса, поэтому возможны
// расхождения:
//   - orphaned_file: файл в директории по умолчанию без записи в индексе
//   - stale_record: запись в индексе, файла по её пути нет
//   - size_mismatch: размер файла на диске отличается от записи
//
// Сверка только сообщает о проблемах и ничего не удаляет.
// Запускается тикером (FM_RECONCILE_INTERVAL) и вручную через API.
package service

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/file-metadata/internal/api/middleware"
	"github.com/bigkaa/goartstore/file-metadata/internal/domain/model"
	"github.com/bigkaa/goartstore/file-metadata/internal/storage/attr"
	"github.com/bigkaa/goartstore/file-metadata/internal/storage/filestore"
	"github.com/bigkaa/goartstore/file-metadata/internal/storage/index"
)

// ErrReconcileInProgress — сверка уже выполняется.
var ErrReconcileInProgress = errors.New("сверка уже выполняется")

// IssueType — тип расхождения.
type IssueType string

const (
	IssueOrphanedFile IssueType = "orphaned_file"
	IssueStaleRecord  IssueType = "stale_record"
	IssueSizeMismatch IssueType = "size_mismatch"
)

// ReconcileIssue — одно обнаруженное расхождение.
type ReconcileIssue struct {
	Type        IssueType `json:"type"`
	FileID      string    `json:"fileId,omitempty"`
	Path        string    `json:"path"`
	Description string    `json:"description"`
}

// ReconcileSummary — количество проблем по типам.
type ReconcileSummary struct {
	Ok             int `json:"ok"`
	OrphanedFiles  int `json:"orphanedFiles"`
	StaleRecords   int `json:"staleRecords"`
	SizeMismatches int `json:"sizeMismatches"`
}

// ReconcileReport — результат одного запуска сверки.
type ReconcileReport struct {
	StartedAt      time.Time        `json:"startedAt"`
	CompletedAt    time.Time        `json:"completedAt"`
	RecordsChecked int              `json:"recordsChecked"`
	FilesScanned   int              `json:"filesScanned"`
	Issues         []ReconcileIssue `json:"issues"`
	Summary        ReconcileSummary `json:"summary"`
}

// Prometheus метрики сверки
var (
	reconcileRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fm_reconcile_runs_total",
		Help: "Общее количество запусков сверки",
	})

	reconcileIssuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fm_reconcile_issues_total",
		Help: "Общее количество расхождений, обнаруженных сверкой",
	}, []string{"type"})

	reconcileDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fm_reconcile_duration_seconds",
		Help:    "Длительность сверки в секундах",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	})
)

// ReconcileService — сервис фоновой сверки.
type ReconcileService struct {
	store    *filestore.FileStore
	idx      index.Index
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex // защита от параллельного запуска
	inProcess bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewReconcileService создаёт сервис сверки.
func NewReconcileService(
	store *filestore.FileStore,
	idx index.Index,
	interval time.Duration,
	logger *slog.Logger,
) *ReconcileService {
	return &ReconcileService{
		store:    store,
		idx:      idx,
		interval: interval,
		logger:   logger.With(slog.String("component", "reconcile")),
	}
}

// Start запускает фоновую горутину сверки.
func (rs *ReconcileService) Start(ctx context.Context) {
	rsCtx, cancel := context.WithCancel(ctx)
	rs.cancel = cancel
	rs.done = make(chan struct{})

	go rs.run(rsCtx)

	rs.logger.Info("Сверка запущена",
		slog.String("interval", rs.interval.String()),
	)
}

// Stop останавливает фоновую сверку и ждёт завершения горутины.
func (rs *ReconcileService) Stop() {
	if rs.cancel != nil {
		rs.cancel()
		<-rs.done
	}
	rs.logger.Info("Сверка остановлена")
}

// IsInProgress возвращает true, если сверка выполняется.
func (rs *ReconcileService) IsInProgress() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.inProcess
}

func (rs *ReconcileService) run(ctx context.Context) {
	defer close(rs.done)

	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := rs.RunOnce(ctx); err != nil && !errors.Is(err, ErrReconcileInProgress) {
				rs.logger.Error("Ошибка сверки", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce выполняет один цикл сверки.
// Параллельный вызов возвращает ErrReconcileInProgress.
func (rs *ReconcileService) RunOnce(ctx context.Context) (*ReconcileReport, error) {
	rs.mu.Lock()
	if rs.inProcess {
		rs.mu.Unlock()
		rs.logger.Warn("Сверка уже выполняется, пропуск")
		return nil, ErrReconcileInProgress
	}
	rs.inProcess = true
	rs.mu.Unlock()

	defer func() {
		rs.mu.Lock()
		rs.inProcess = false
		rs.mu.Unlock()
	}()

	startedAt := time.Now().UTC()
	rs.logger.Info("Сверка начата")

	records, err := rs.idx.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	files, err := rs.store.ScanDefaultRoot()
	if err != nil {
		return nil, err
	}

	issues := rs.compare(records, files)

	completedAt := time.Now().UTC()
	duration := completedAt.Sub(startedAt)

	summary := ReconcileSummary{}
	broken := make(map[string]bool)
	for _, issue := range issues {
		switch issue.Type {
		case IssueOrphanedFile:
			summary.OrphanedFiles++
		case IssueStaleRecord:
			summary.StaleRecords++
			broken[issue.FileID] = true
		case IssueSizeMismatch:
			summary.SizeMismatches++
			broken[issue.FileID] = true
		}
		reconcileIssuesTotal.WithLabelValues(string(issue.Type)).Inc()
	}
	summary.Ok = len(records) - len(broken)

	reconcileRunsTotal.Inc()
	reconcileDurationSeconds.Observe(duration.Seconds())
	middleware.RecordsTotal.Set(float64(len(records)))

	rs.logger.Info("Сверка завершена",
		slog.Int("records_checked", len(records)),
		slog.Int("files_scanned", len(files)),
		slog.Int("issues", len(issues)),
		slog.Int("ok", summary.Ok),
		slog.Duration("duration", duration),
	)

	return &ReconcileReport{
		StartedAt:      startedAt,
		CompletedAt:    completedAt,
		RecordsChecked: len(records),
		FilesScanned:   len(files),
		Issues:         issues,
		Summary:        summary,
	}, nil
}

// compare сопоставляет записи индекса с файлами директории по умолчанию.
// files — путь → размер (результат ScanDefaultRoot).
func (rs *ReconcileService) compare(records []*model.FileRecord, files map[string]int64) []ReconcileIssue {
	issues := make([]ReconcileIssue, 0)
	indexed := make(map[string]bool, len(records))

	for _, rec := range records {
		// Пути обхода ФС очищены, пути записей сравниваются в том же виде
		indexed[filepath.Clean(rec.Path)] = true

		snap, err := attr.Read(rec.Path)
		if errors.Is(err, model.ErrNotFound) {
			issues = append(issues, ReconcileIssue{
				Type:        IssueStaleRecord,
				FileID:      rec.ID,
				Path:        rec.Path,
				Description: "Запись в индексе без файла на диске",
			})
			continue
		}
		if err != nil {
			rs.logger.Warn("Ошибка чтения атрибутов при сверке",
				slog.String("id", rec.ID),
				slog.String("path", rec.Path),
				slog.String("error", err.Error()),
			)
			continue
		}

		if snap.RegularFile && snap.Size != rec.Size {
			issues = append(issues, ReconcileIssue{
				Type:        IssueSizeMismatch,
				FileID:      rec.ID,
				Path:        rec.Path,
				Description: "Размер файла на диске не совпадает с записью",
			})
		}
	}

	orphans := make([]string, 0)
	for path := range files {
		if !indexed[path] {
			orphans = append(orphans, path)
		}
	}
	sort.Strings(orphans)
	for _, path := range orphans {
		issues = append(issues, ReconcileIssue{
			Type:        IssueOrphanedFile,
			Path:        path,
			Description: "Файл в директории по умолчанию без записи в индексе",
		})
	}

	return issues
}
