// Пакет indextest — общий набор тестов контракта index.Index.
// Каждая реализация индекса вызывает Run из своего _test.go.
package indextest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/file-metadata/internal/domain/model"
	"github.com/bigkaa/goartstore/file-metadata/internal/storage/index"
)

// Factory создаёт пустой индекс для одного подтеста.
type Factory func(t *testing.T) index.Index

// NewRecord создаёт тестовую запись. Время усекается до микросекунд —
// точности timestamptz в PostgreSQL.
func NewRecord(name string, created time.Time) *model.FileRecord {
	created = created.Truncate(time.Microsecond)
	return &model.FileRecord{
		Name:            name,
		OriginalName:    name,
		Description:     "тестовый файл",
		Path:            "/srv/upload/" + name,
		ContentType:     "text/plain",
		Size:            1024,
		CreatedDate:     created.UTC(),
		LastUpdatedDate: created.UTC(),
		LastAccessDate:  created.UTC(),
		RegularFile:     true,
	}
}

// Run запускает все проверки контракта.
func Run(t *testing.T, newIndex Factory) {
	t.Run("InsertAndFindByID", func(t *testing.T) { testInsertAndFindByID(t, newIndex(t)) })
	t.Run("InsertAssignsUniqueIDs", func(t *testing.T) { testInsertAssignsUniqueIDs(t, newIndex(t)) })
	t.Run("FindByID_NotFound", func(t *testing.T) { testFindByIDNotFound(t, newIndex(t)) })
	t.Run("FindByName", func(t *testing.T) { testFindByName(t, newIndex(t)) })
	t.Run("DuplicateName", func(t *testing.T) { testDuplicateName(t, newIndex(t)) })
	t.Run("EmptyNamesNotUnique", func(t *testing.T) { testEmptyNamesNotUnique(t, newIndex(t)) })
	t.Run("ListAll_Ordered", func(t *testing.T) { testListAllOrdered(t, newIndex(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newIndex(t)) })
	t.Run("Update_NotFound", func(t *testing.T) { testUpdateNotFound(t, newIndex(t)) })
	t.Run("ReturnsCopies", func(t *testing.T) { testReturnsCopies(t, newIndex(t)) })
	t.Run("ConcurrentSameName", func(t *testing.T) { testConcurrentSameName(t, newIndex(t)) })
	t.Run("Ping", func(t *testing.T) {
		if err := newIndex(t).Ping(context.Background()); err != nil {
			t.Errorf("Ping: неожиданная ошибка: %v", err)
		}
	})
}

func testInsertAndFindByID(t *testing.T, idx index.Index) {
	ctx := context.Background()
	rec := NewRecord("a.txt", time.Now())

	id, err := idx.Insert(ctx, rec)
	if err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}
	if id == "" {
		t.Fatal("Insert вернул пустой ID")
	}

	got, err := idx.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if got.ID != id {
		t.Errorf("ID: ожидалось %q, получено %q", id, got.ID)
	}
	if got.Name != rec.Name || got.Path != rec.Path || got.ContentType != rec.ContentType ||
		got.Size != rec.Size || got.Description != rec.Description || !got.RegularFile {
		t.Errorf("запись не совпадает: %+v", got)
	}
	if !got.CreatedDate.Equal(rec.CreatedDate) {
		t.Errorf("CreatedDate: ожидалось %v, получено %v", rec.CreatedDate, got.CreatedDate)
	}
}

func testInsertAssignsUniqueIDs(t *testing.T, idx index.Index) {
	ctx := context.Background()
	seen := make(map[string]bool)

	for i := 0; i < 20; i++ {
		id, err := idx.Insert(ctx, NewRecord("", time.Now()))
		if err != nil {
			t.Fatalf("ошибка вставки: %v", err)
		}
		if seen[id] {
			t.Fatalf("ID %s выдан повторно", id)
		}
		seen[id] = true
	}
}

func testFindByIDNotFound(t *testing.T, idx index.Index) {
	_, err := idx.FindByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
}

func testFindByName(t *testing.T, idx index.Index) {
	ctx := context.Background()

	id, err := idx.Insert(ctx, NewRecord("report.pdf", time.Now()))
	if err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}

	found, err := idx.FindByName(ctx, "report.pdf")
	if err != nil {
		t.Fatalf("ошибка поиска: %v", err)
	}
	if len(found) != 1 || found[0].ID != id {
		t.Fatalf("ожидалась одна запись %s, получено %v", id, found)
	}

	missing, err := idx.FindByName(ctx, "other.pdf")
	if err != nil {
		t.Fatalf("ошибка поиска: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("ожидался пустой результат, получено %d", len(missing))
	}
}

func testDuplicateName(t *testing.T, idx index.Index) {
	ctx := context.Background()

	if _, err := idx.Insert(ctx, NewRecord("dup.txt", time.Now())); err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}
	_, err := idx.Insert(ctx, NewRecord("dup.txt", time.Now()))
	if !errors.Is(err, model.ErrDuplicateName) {
		t.Fatalf("ожидалась ErrDuplicateName, получено %v", err)
	}

	all, err := idx.ListAll(ctx)
	if err != nil {
		t.Fatalf("ошибка чтения списка: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ожидалась 1 запись, получено %d", len(all))
	}
}

func testEmptyNamesNotUnique(t *testing.T, idx index.Index) {
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := idx.Insert(ctx, NewRecord("", time.Now())); err != nil {
			t.Fatalf("вставка %d: %v", i, err)
		}
	}

	found, err := idx.FindByName(ctx, "")
	if err != nil {
		t.Fatalf("ошибка поиска: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("поиск по пустому имени должен быть пустым, получено %d", len(found))
	}
}

func testListAllOrdered(t *testing.T, idx index.Index) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// Вставляем в обратном порядке
	for i := 4; i >= 0; i-- {
		rec := NewRecord(fmt.Sprintf("file-%d.txt", i), base.Add(time.Duration(i)*time.Minute))
		if _, err := idx.Insert(ctx, rec); err != nil {
			t.Fatalf("ошибка вставки: %v", err)
		}
	}

	first, err := idx.ListAll(ctx)
	if err != nil {
		t.Fatalf("ошибка чтения списка: %v", err)
	}
	if len(first) != 5 {
		t.Fatalf("ожидалось 5 записей, получено %d", len(first))
	}
	for i, rec := range first {
		want := fmt.Sprintf("file-%d.txt", i)
		if rec.Name != want {
			t.Errorf("позиция %d: ожидалось %s, получено %s", i, want, rec.Name)
		}
	}

	second, err := idx.ListAll(ctx)
	if err != nil {
		t.Fatalf("ошибка чтения списка: %v", err)
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatal("порядок ListAll нестабилен")
		}
	}
}

func testUpdate(t *testing.T, idx index.Index) {
	ctx := context.Background()

	id, err := idx.Insert(ctx, NewRecord("u.txt", time.Now()))
	if err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}

	rec, err := idx.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	mod := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	rec.Size = 2048
	rec.LastUpdatedDate = mod
	if err := idx.Update(ctx, rec); err != nil {
		t.Fatalf("ошибка обновления: %v", err)
	}

	got, err := idx.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if got.Size != 2048 || !got.LastUpdatedDate.Equal(mod) {
		t.Errorf("обновление не применено: %+v", got)
	}
	if got.Name != "u.txt" {
		t.Errorf("Name изменился: %q", got.Name)
	}
}

func testUpdateNotFound(t *testing.T, idx index.Index) {
	rec := NewRecord("ghost.txt", time.Now())
	rec.ID = "00000000-0000-0000-0000-000000000000"

	err := idx.Update(context.Background(), rec)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
}

func testReturnsCopies(t *testing.T, idx index.Index) {
	ctx := context.Background()
	rec := NewRecord("copy.txt", time.Now())

	id, err := idx.Insert(ctx, rec)
	if err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}

	// Изменение исходной и полученной записи не влияет на хранимую
	rec.Size = 1
	got, err := idx.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	got.Size = 2

	again, err := idx.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if again.Size != 1024 {
		t.Errorf("хранимая запись изменена извне: Size=%d", again.Size)
	}
}

func testConcurrentSameName(t *testing.T, idx index.Index) {
	ctx := context.Background()
	const workers = 10

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		dups      int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := idx.Insert(ctx, NewRecord("race.txt", time.Now()))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, model.ErrDuplicateName):
				dups++
			default:
				t.Errorf("неожиданная ошибка: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || dups != workers-1 {
		t.Errorf("ожидалась 1 успешная вставка и %d дубликатов, получено %d и %d",
			workers-1, succeeded, dups)
	}
}
