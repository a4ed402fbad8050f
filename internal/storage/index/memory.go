package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bigkaa/goartstore/file-metadata/internal/domain/model"
)

// Memory — потокобезопасный in-memory индекс.
// Использует sync.RWMutex для конкурентного чтения и
// эксклюзивной записи. Содержимое теряется при рестарте.
type Memory struct {
	mu     sync.RWMutex
	files  map[string]*model.FileRecord // id → запись
	names  map[string]string            // name → id (только непустые имена)
	logger *slog.Logger
}

// NewMemory создаёт пустой индекс.
func NewMemory(logger *slog.Logger) *Memory {
	return &Memory{
		files:  make(map[string]*model.FileRecord),
		names:  make(map[string]string),
		logger: logger.With(slog.String("component", "index"), slog.String("backend", "memory")),
	}
}

// Insert добавляет запись с новым ID.
func (m *Memory) Insert(_ context.Context, rec *model.FileRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.HasName() {
		if _, taken := m.names[rec.Name]; taken {
			return "", fmt.Errorf("%w: %s", model.ErrDuplicateName, rec.Name)
		}
	}

	// Создаём копию, чтобы избежать data race при внешних изменениях
	stored := rec.Clone()
	stored.ID = NewID()
	m.files[stored.ID] = stored
	if stored.HasName() {
		m.names[stored.Name] = stored.ID
	}

	m.logger.Debug("Запись добавлена в индекс",
		slog.String("id", stored.ID),
		slog.String("name", stored.Name),
	)

	return stored.ID, nil
}

// FindByID возвращает копию записи.
func (m *Memory) FindByID(_ context.Context, id string) (*model.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: запись %s", model.ErrNotFound, id)
	}
	return rec.Clone(), nil
}

// FindByName возвращает запись с данным именем, если она есть.
func (m *Memory) FindByName(_ context.Context, name string) ([]*model.FileRecord, error) {
	if name == "" {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.names[name]
	if !ok {
		return nil, nil
	}
	return []*model.FileRecord{m.files[id].Clone()}, nil
}

// ListAll возвращает копии всех записей.
func (m *Memory) ListAll(_ context.Context) ([]*model.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*model.FileRecord, 0, len(m.files))
	for _, rec := range m.files {
		result = append(result, rec.Clone())
	}
	SortRecords(result)

	return result, nil
}

// Update перезаписывает существующую запись.
func (m *Memory) Update(_ context.Context, rec *model.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.files[rec.ID]
	if !ok {
		return fmt.Errorf("%w: запись %s", model.ErrNotFound, rec.ID)
	}

	if rec.Name != old.Name {
		if rec.HasName() {
			if owner, taken := m.names[rec.Name]; taken && owner != rec.ID {
				return fmt.Errorf("%w: %s", model.ErrDuplicateName, rec.Name)
			}
			m.names[rec.Name] = rec.ID
		}
		if old.HasName() {
			delete(m.names, old.Name)
		}
	}

	m.files[rec.ID] = rec.Clone()
	return nil
}

// Ping — in-memory индекс всегда готов.
func (m *Memory) Ping(context.Context) error {
	return nil
}
