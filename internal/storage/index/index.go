// Пакет index — индекс метаданных файлов.
//
// Index — контракт хранилища записей FileRecord. Реализации:
//   - Memory — потокобезопасная map в памяти, не персистентная;
//   - Badger — встроенное KV-хранилище на диске (FM_INDEX_BACKEND=badger);
//   - repository.FileRepository — PostgreSQL (FM_INDEX_BACKEND=postgres).
//
// Cached оборачивает любую реализацию LRU-кэшем для FindByID.
//
// Все реализации возвращают копии: вызывающий код не может изменить
// сохранённое состояние через полученный указатель.
package index

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/file-metadata/internal/domain/model"
)

// Index — хранилище записей метаданных.
type Index interface {
	// Insert назначает записи новый ID, сохраняет её и возвращает ID.
	// Непустое имя, уже занятое другой записью, — model.ErrDuplicateName.
	// Проверка и вставка атомарны.
	Insert(ctx context.Context, rec *model.FileRecord) (string, error)

	// FindByID возвращает запись или model.ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.FileRecord, error)

	// FindByName возвращает записи с данным именем (ноль или одна).
	// Для пустого имени всегда возвращает пустой срез.
	FindByName(ctx context.Context, name string) ([]*model.FileRecord, error)

	// ListAll возвращает все записи, отсортированные по CreatedDate, затем по ID.
	ListAll(ctx context.Context) ([]*model.FileRecord, error)

	// Update перезаписывает запись с rec.ID; неизвестный ID — model.ErrNotFound.
	Update(ctx context.Context, rec *model.FileRecord) error

	// Ping проверяет готовность хранилища.
	Ping(ctx context.Context) error
}

// NewID генерирует идентификатор новой записи (UUID v4).
func NewID() string {
	return uuid.New().String()
}

// SortRecords упорядочивает записи по CreatedDate, затем по ID.
func SortRecords(records []*model.FileRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.CreatedDate.Equal(b.CreatedDate) {
			return a.CreatedDate.Before(b.CreatedDate)
		}
		return a.ID < b.ID
	})
}
