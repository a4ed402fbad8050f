// Точка входа File Metadata Service — файлового хранилища с индексом метаданных.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bigkaa/goartstore/file-metadata/internal/api/handlers"
	"github.com/bigkaa/goartstore/file-metadata/internal/api/middleware"
	"github.com/bigkaa/goartstore/file-metadata/internal/config"
	"github.com/bigkaa/goartstore/file-metadata/internal/server"
	"github.com/bigkaa/goartstore/file-metadata/internal/service"
	"github.com/bigkaa/goartstore/file-metadata/internal/storage/filestore"
	"github.com/bigkaa/goartstore/file-metadata/internal/storage/index"
	"github.com/bigkaa/goartstore/file-metadata/internal/storage/placement"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("File Metadata Service запускается",
		slog.String("service_id", cfg.ServiceID),
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("default_root", cfg.DefaultRoot),
		slog.String("index_backend", cfg.IndexBackend),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Инициализация компонентов ---

	// 1. Файловое хранилище (директория по умолчанию)
	store, err := filestore.New(cfg.DefaultRoot)
	if err != nil {
		logger.Error("Ошибка инициализации FileStore", slog.String("error", err.Error()))
		os.Exit(1)
	}
	middleware.RegisterDiskUsage(prometheus.DefaultRegisterer, store.DiskUsage)

	// 2. Индекс метаданных
	backend, err := openIndex(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка инициализации индекса", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer backend.Close()

	var idx index.Index = backend.idx
	if cfg.CacheSize > 0 {
		idx = index.NewCached(idx, cfg.CacheSize, cfg.CacheTTL)
		logger.Info("Кэш записей включён",
			slog.Int("size", cfg.CacheSize),
			slog.String("ttl", cfg.CacheTTL.String()),
		)
	}

	// Начальное значение gauge записей
	if records, listErr := idx.ListAll(ctx); listErr == nil {
		middleware.RecordsTotal.Set(float64(len(records)))
	}

	// 3. Сервисы
	resolver := placement.New(store.DefaultRoot())
	fileSvc := service.NewFileService(resolver, store, idx, logger)

	// 4. Фоновые процессы

	// 4.1 Сверка директории по умолчанию с индексом
	reconcileSvc := service.NewReconcileService(store, idx, cfg.ReconcileInterval, logger)
	reconcileSvc.Start(ctx)

	// 4.2 topologymetrics — мониторинг PostgreSQL (только postgres)
	var dephealthSvc *service.DephealthService
	if backend.sqlDB != nil {
		dephealthSvc, err = service.NewDephealthService(
			cfg.ServiceID,
			cfg.DephealthGroup,
			backend.sqlDB,
			cfg.DatabaseURL(),
			cfg.DephealthCheckInterval,
			logger,
		)
		if err != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", err.Error()),
			)
			dephealthSvc = nil
		} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 5. Handlers
	var deps handlers.DependencyHealth
	if dephealthSvc != nil {
		deps = dephealthSvc
	}
	apiHandler := handlers.NewAPIHandler(
		handlers.NewFilesHandler(fileSvc, cfg.MaxFileSize, logger),
		handlers.NewSystemHandler(cfg, fileSvc, store.DiskUsage),
		handlers.NewMaintenanceHandler(reconcileSvc),
		handlers.NewHealthHandler(fileSvc, deps),
	)

	// 6. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler)

	if err := srv.Run(ctx); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		reconcileSvc.Stop()
		backend.Close()
		os.Exit(1)
	}

	// --- Graceful shutdown фоновых процессов ---
	logger.Info("Остановка фоновых процессов...")

	reconcileSvc.Stop()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("File Metadata Service остановлен")
}
