// Пакет service — бизнес-логика File Metadata Service.
// files.go — регистрация, обновление метаданных и выдача файлов.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bigkaa/goartstore/file-metadata/internal/api/middleware"
	"github.com/bigkaa/goartstore/file-metadata/internal/domain/model"
	"github.com/bigkaa/goartstore/file-metadata/internal/storage/attr"
	"github.com/bigkaa/goartstore/file-metadata/internal/storage/filestore"
	"github.com/bigkaa/goartstore/file-metadata/internal/storage/index"
	"github.com/bigkaa/goartstore/file-metadata/internal/storage/placement"
)

// RegisterParams — параметры регистрации файла.
// Пустые строки означают «не задано».
type RegisterParams struct {
	// Name — желаемое имя; пустое — используется OriginalName
	Name string
	// Description — описание файла
	Description string
	// BaseDirectory — директория сохранения; пустая — директория по умолчанию
	BaseDirectory string
	// OriginalName — имя файла на стороне клиента
	OriginalName string
	// ContentType — MIME-тип; пустой — application/octet-stream
	ContentType string
	// Data — содержимое файла целиком
	Data []byte
}

// Content — открытый файл вместе с его записью.
// Body обязательно закрыть; FileService.Stream делает это сам.
type Content struct {
	Record  *model.FileRecord
	Body    io.ReadCloser
	Size    int64
	ModTime time.Time
}

// FileService — оркестрация resolver → index → filestore → attr → index.
type FileService struct {
	resolver *placement.Resolver
	store    *filestore.FileStore
	idx      index.Index
	locks    *nameLocks
	now      func() time.Time
	logger   *slog.Logger
}

// NewFileService создаёт файловый сервис.
func NewFileService(
	resolver *placement.Resolver,
	store *filestore.FileStore,
	idx index.Index,
	logger *slog.Logger,
) *FileService {
	return &FileService{
		resolver: resolver,
		store:    store,
		idx:      idx,
		locks:    newNameLocks(),
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With(slog.String("component", "file_service")),
	}
}

// Register сохраняет файл на диск и создаёт запись метаданных.
//
// Поток:
//  1. Пустые данные — ErrEmptyUpload
//  2. Выбор имени (Name или OriginalName)
//  3. Блокировка имени + проверка уникальности в индексе
//  4. Вычисление пути
//  5. Запись во временный файл рядом с путём
//  6. Снимок атрибутов ФС временного файла
//  7. Вставка записи в индекс (атомарная проверка имени)
//  8. Переименование временного файла в путь записи
//
// Отказ на шагах 5-7 не трогает файл по пути. Ошибка на шаге 8
// оставляет запись без файла; такие записи находит сверка (stale_record).
func (s *FileService) Register(ctx context.Context, p RegisterParams) (*model.FileRecord, error) {
	rec, err := s.register(ctx, p)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("register", "error").Inc()
		s.logger.Warn("Ошибка регистрации файла",
			slog.String("name", p.Name),
			slog.String("original_name", p.OriginalName),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	middleware.OperationsTotal.WithLabelValues("register", "success").Inc()
	middleware.RecordsTotal.Inc()

	s.logger.Info("Файл зарегистрирован",
		slog.String("id", rec.ID),
		slog.String("name", rec.Name),
		slog.String("path", rec.Path),
		slog.Int64("size", rec.Size),
		slog.String("content_type", rec.ContentType),
	)
	return rec, nil
}

func (s *FileService) register(ctx context.Context, p RegisterParams) (*model.FileRecord, error) {
	if len(p.Data) == 0 {
		return nil, fmt.Errorf("%w: загружен файл нулевого размера", model.ErrEmptyUpload)
	}

	name, err := s.resolver.ResolveName(p.Name, p.OriginalName)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(name)
	defer unlock()

	existing, err := s.idx.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, &model.DuplicateNameError{Name: name}
	}

	path := s.resolver.ResolvePath(p.BaseDirectory, name)

	staged, err := s.store.Stage(path, bytes.NewReader(p.Data))
	if err != nil {
		return nil, err
	}
	defer staged.Discard()

	// rename сохраняет inode: атрибуты временного файла совпадут с итоговыми
	snap, err := attr.Read(staged.TempPath())
	if err != nil {
		return nil, err
	}

	contentType := p.ContentType
	if contentType == "" {
		contentType = model.DefaultContentType
	}

	rec := &model.FileRecord{
		Name:         name,
		OriginalName: p.OriginalName,
		Description:  p.Description,
		Path:         path,
		ContentType:  contentType,
		CreatedDate:  s.now(),
	}
	snap.ApplyTo(rec)

	id, err := s.idx.Insert(ctx, rec)
	if errors.Is(err, model.ErrDuplicateName) {
		// Имя занято мимо блокировки (другой экземпляр сервиса на том же индексе).
		// Файл победителя не тронут: временный файл удалит Discard.
		return nil, &model.DuplicateNameError{Name: name}
	}
	if err != nil {
		return nil, err
	}
	rec.ID = id

	if err := staged.Commit(); err != nil {
		s.logger.Error("Запись создана, но файл не опубликован",
			slog.String("id", id),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return rec, nil
}

// RefreshMetadata перечитывает атрибуты файла и обновляет запись.
// Меняются только размер, времена и флаги типа.
// Файл по пути записи отсутствует — ErrStaleRecord, запись не меняется.
func (s *FileService) RefreshMetadata(ctx context.Context, id string) (*model.FileRecord, error) {
	rec, err := s.idx.FindByID(ctx, id)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("refresh", "error").Inc()
		return nil, err
	}

	snap, err := attr.Read(rec.Path)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("refresh", "error").Inc()
		if errors.Is(err, model.ErrNotFound) {
			s.logger.Warn("Файл записи отсутствует на диске",
				slog.String("id", id),
				slog.String("path", rec.Path),
			)
			return nil, fmt.Errorf("%w: запись %s, путь %s", model.ErrStaleRecord, id, rec.Path)
		}
		return nil, err
	}

	snap.ApplyTo(rec)
	if err := s.idx.Update(ctx, rec); err != nil {
		middleware.OperationsTotal.WithLabelValues("refresh", "error").Inc()
		return nil, err
	}

	middleware.OperationsTotal.WithLabelValues("refresh", "success").Inc()
	s.logger.Debug("Метаданные обновлены",
		slog.String("id", id),
		slog.Int64("size", rec.Size),
	)
	return rec, nil
}

// Fetch открывает файл записи для чтения. Индекс не меняется.
// Вызывающий код обязан закрыть Content.Body.
func (s *FileService) Fetch(ctx context.Context, id string) (*Content, error) {
	rec, err := s.idx.FindByID(ctx, id)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("fetch", "error").Inc()
		return nil, err
	}

	f, err := s.store.Open(rec.Path)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("fetch", "error").Inc()
		s.logger.Warn("Не удалось открыть файл записи",
			slog.String("id", id),
			slog.String("path", rec.Path),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		middleware.OperationsTotal.WithLabelValues("fetch", "error").Inc()
		return nil, fmt.Errorf("%w: stat %s: %v", model.ErrIO, rec.Path, err)
	}

	middleware.OperationsTotal.WithLabelValues("fetch", "success").Inc()
	return &Content{
		Record:  rec,
		Body:    f,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Stream открывает файл и передаёт его в fn. Файл закрывается
// при любом исходе, в том числе при ошибке fn на середине копирования.
func (s *FileService) Stream(ctx context.Context, id string, fn func(*Content) error) error {
	c, err := s.Fetch(ctx, id)
	if err != nil {
		return err
	}
	defer c.Body.Close()

	if err := fn(c); err != nil {
		s.logger.Debug("Передача файла прервана",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// List возвращает все записи индекса.
func (s *FileService) List(ctx context.Context) ([]*model.FileRecord, error) {
	return s.idx.ListAll(ctx)
}

// Ready проверяет, что директория по умолчанию доступна и индекс отвечает.
func (s *FileService) Ready(ctx context.Context) error {
	if err := s.store.CheckWritable(); err != nil {
		return err
	}
	if err := s.idx.Ping(ctx); err != nil {
		return fmt.Errorf("индекс не готов: %w", err)
	}
	return nil
}
