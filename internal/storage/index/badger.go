package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/bigkaa/goartstore/file-metadata/internal/domain/model"
)

// Ключи Badger:
//
//	rec/<id>    → JSON FileRecord
//	name/<name> → id (только непустые имена)
const (
	recPrefix  = "rec/"
	namePrefix = "name/"
)

// maxConflictRetries — сколько раз повторять транзакцию при конфликте.
// После конфликта повторная попытка видит уже закоммиченное имя.
const maxConflictRetries = 3

func recKey(id string) []byte     { return []byte(recPrefix + id) }
func nameKey(name string) []byte { return []byte(namePrefix + name) }

// Badger — персистентный индекс во встроенном KV-хранилище.
// Уникальность имени обеспечивается внутри транзакции: чтение
// name/<name> и запись обоих ключей в одной транзакции, при
// конкурентной вставке второй коммит получает badger.ErrConflict.
type Badger struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenBadger открывает (или создаёт) базу в директории dir.
func OpenBadger(dir string, logger *slog.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(&badgerLogger{logger: logger.With(slog.String("component", "badger"))}).
		WithLoggingLevel(badger.WARNING).
		WithCompression(options.None)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть Badger в %s: %w", dir, err)
	}
	return NewBadger(db, logger), nil
}

// NewBadger создаёт индекс поверх открытой базы.
func NewBadger(db *badger.DB, logger *slog.Logger) *Badger {
	return &Badger{
		db:     db,
		logger: logger.With(slog.String("component", "index"), slog.String("backend", "badger")),
	}
}

// Close закрывает базу.
func (b *Badger) Close() error {
	return b.db.Close()
}

// Insert сохраняет запись с новым ID.
func (b *Badger) Insert(ctx context.Context, rec *model.FileRecord) (string, error) {
	stored := rec.Clone()
	stored.ID = NewID()

	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации записи: %w", err)
	}

	err = b.updateWithRetry(ctx, func(txn *badger.Txn) error {
		if stored.HasName() {
			_, err := txn.Get(nameKey(stored.Name))
			if err == nil {
				return fmt.Errorf("%w: %s", model.ErrDuplicateName, stored.Name)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Set(nameKey(stored.Name), []byte(stored.ID)); err != nil {
				return err
			}
		}
		return txn.Set(recKey(stored.ID), data)
	})
	if err != nil {
		return "", wrapBadger("вставка записи", err)
	}

	return stored.ID, nil
}

// FindByID читает запись по ID.
func (b *Badger) FindByID(_ context.Context, id string) (*model.FileRecord, error) {
	var rec *model.FileRecord
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, id)
		return err
	})
	if err != nil {
		return nil, wrapBadger("чтение записи", err)
	}
	return rec, nil
}

// FindByName читает запись по имени через ключ name/<name>.
func (b *Badger) FindByName(_ context.Context, name string) ([]*model.FileRecord, error) {
	if name == "" {
		return nil, nil
	}

	var result []*model.FileRecord
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nameKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		rec, err := getRecord(txn, string(id))
		if err != nil {
			return err
		}
		result = append(result, rec)
		return nil
	})
	if err != nil {
		return nil, wrapBadger("поиск по имени", err)
	}
	return result, nil
}

// ListAll читает все записи по префиксу rec/.
func (b *Badger) ListAll(_ context.Context) ([]*model.FileRecord, error) {
	var result []*model.FileRecord
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec model.FileRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("ключ %s: %w", it.Item().Key(), err)
			}
			result = append(result, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, wrapBadger("чтение списка записей", err)
	}

	SortRecords(result)
	return result, nil
}

// Update перезаписывает существующую запись.
func (b *Badger) Update(ctx context.Context, rec *model.FileRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("ошибка сериализации записи: %w", err)
	}

	err = b.updateWithRetry(ctx, func(txn *badger.Txn) error {
		old, err := getRecord(txn, rec.ID)
		if err != nil {
			return err
		}

		if old.Name != rec.Name {
			if rec.HasName() {
				item, err := txn.Get(nameKey(rec.Name))
				switch {
				case err == nil:
					owner, err := item.ValueCopy(nil)
					if err != nil {
						return err
					}
					if string(owner) != rec.ID {
						return fmt.Errorf("%w: %s", model.ErrDuplicateName, rec.Name)
					}
				case !errors.Is(err, badger.ErrKeyNotFound):
					return err
				}
				if err := txn.Set(nameKey(rec.Name), []byte(rec.ID)); err != nil {
					return err
				}
			}
			if old.HasName() {
				if err := txn.Delete(nameKey(old.Name)); err != nil {
					return err
				}
			}
		}

		return txn.Set(recKey(rec.ID), data)
	})
	if err != nil {
		return wrapBadger("обновление записи", err)
	}
	return nil
}

// Ping проверяет, что база открыта.
func (b *Badger) Ping(context.Context) error {
	if b.db.IsClosed() {
		return errors.New("база Badger закрыта")
	}
	return nil
}

// updateWithRetry выполняет read-write транзакцию, повторяя её при конфликте.
func (b *Badger) updateWithRetry(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = b.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		b.logger.Debug("Конфликт транзакции, повтор", slog.Int("attempt", attempt+1))
	}
	return err
}

// getRecord читает и десериализует запись внутри транзакции.
func getRecord(txn *badger.Txn, id string) (*model.FileRecord, error) {
	item, err := txn.Get(recKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: запись %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var rec model.FileRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("ошибка десериализации записи %s: %w", id, err)
	}
	return &rec, nil
}

// wrapBadger оставляет доменные ошибки как есть, прочие помечает как ErrIO.
func wrapBadger(op string, err error) error {
	if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrDuplicateName) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: badger: %s: %v", model.ErrIO, op, err)
}

// badgerLogger — адаптер badger.Logger поверх slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
