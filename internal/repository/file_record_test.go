package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/goartstore/file-metadata/internal/config"
	"github.com/bigkaa/goartstore/file-metadata/internal/database"
	"github.com/bigkaa/goartstore/file-metadata/internal/domain/model"
	"github.com/bigkaa/goartstore/file-metadata/internal/storage/index"
	"github.com/bigkaa/goartstore/file-metadata/internal/storage/index/indextest"
)

// setupTestDB запускает PostgreSQL контейнер и применяет миграции.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("file_metadata_test"),
		postgres.WithUsername("fm"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	cfg := &config.Config{
		DBHost:     host,
		DBPort:     port.Int(),
		DBName:     "file_metadata_test",
		DBUser:     "fm",
		DBPassword: "test-password",
		DBSSLMode:  "disable",

		DBMaxConns:        4,
		DBMinConns:        1,
		DBConnMaxLifetime: time.Minute,
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// TestFileRepository проверяет контракт индекса на PostgreSQL.
func TestFileRepository(t *testing.T) {
	pool := setupTestDB(t)

	indextest.Run(t, func(t *testing.T) index.Index {
		if _, err := pool.Exec(context.Background(), `TRUNCATE file_records`); err != nil {
			t.Fatalf("ошибка очистки таблицы: %v", err)
		}
		return NewFileRepository(pool)
	})
}

// TestFindByID_InvalidUUID проверяет, что некорректный ID не доходит до базы.
func TestFindByID_InvalidUUID(t *testing.T) {
	repo := NewFileRepository(nil)

	_, err := repo.FindByID(context.Background(), "not-a-uuid")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}

	err = repo.Update(context.Background(), &model.FileRecord{ID: "not-a-uuid"})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Update: ожидалась ErrNotFound, получено %v", err)
	}
}

// TestFindByName_Empty проверяет, что пустое имя не доходит до базы.
func TestFindByName_Empty(t *testing.T) {
	repo := NewFileRepository(nil)

	found, err := repo.FindByName(context.Background(), "")
	if err != nil || len(found) != 0 {
		t.Fatalf("ожидался пустой результат, получено %v, %v", found, err)
	}
}

// TestIsUniqueViolation проверяет распознавание кода 23505.
func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Error("23505 должна распознаваться как нарушение уникальности")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("23503 не является нарушением уникальности")
	}
	if isUniqueViolation(errors.New("другая ошибка")) {
		t.Error("обычная ошибка не является нарушением уникальности")
	}
}
