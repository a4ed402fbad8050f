package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/goartstore/file-metadata/internal/config"
	"github.com/bigkaa/goartstore/file-metadata/internal/database"
	"github.com/bigkaa/goartstore/file-metadata/internal/repository"
	"github.com/bigkaa/goartstore/file-metadata/internal/storage/index"
)

// indexBackend — открытый бэкенд индекса и его ресурсы.
type indexBackend struct {
	idx index.Index
	// sqlDB — адаптер пула для topologymetrics, nil для memory/badger
	sqlDB   *sql.DB
	closers []func()
}

// Close освобождает ресурсы в обратном порядке. Повторный вызов безопасен.
func (b *indexBackend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// openIndex создаёт индекс по FM_INDEX_BACKEND.
func openIndex(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*indexBackend, error) {
	switch cfg.IndexBackend {
	case config.BackendMemory:
		logger.Warn("Индекс в памяти: записи будут потеряны при перезапуске")
		return &indexBackend{idx: index.NewMemory(logger)}, nil

	case config.BackendBadger:
		db, err := index.OpenBadger(cfg.BadgerDir, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Индекс Badger открыт", slog.String("dir", cfg.BadgerDir))
		return &indexBackend{
			idx: db,
			closers: []func(){func() {
				if closeErr := db.Close(); closeErr != nil {
					logger.Error("Ошибка закрытия Badger", slog.String("error", closeErr.Error()))
				}
			}},
		}, nil

	case config.BackendPostgres:
		if err := database.Migrate(cfg, logger); err != nil {
			return nil, err
		}
		pool, err := database.Connect(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}

		// Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
		pgDB := stdlib.OpenDBFromPool(pool)
		return &indexBackend{
			idx:   repository.NewFileRepository(pool),
			sqlDB: pgDB,
			closers: []func(){
				pool.Close,
				func() { _ = pgDB.Close() },
			},
		}, nil

	default:
		return nil, fmt.Errorf("неизвестный бэкенд индекса: %s", cfg.IndexBackend)
	}
}
