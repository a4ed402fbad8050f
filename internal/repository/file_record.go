package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/file-metadata/internal/domain/model"
	"github.com/bigkaa/goartstore/file-metadata/internal/storage/index"
)

// fileColumns — список столбцов таблицы file_records для SELECT-запросов.
const fileColumns = `id, name, original_name, description, path, content_type, size,
	created_date, last_updated_date, last_access_date,
	directory, other, regular_file, symbolic_link`

// FileRepository — реализация index.Index поверх таблицы file_records.
// Уникальность непустого имени обеспечивает частичный уникальный индекс
// file_records_name_uniq: вторая конкурентная вставка получает 23505.
type FileRepository struct {
	db DBTX
}

var _ index.Index = (*FileRepository)(nil)

// NewFileRepository создаёт репозиторий записей.
func NewFileRepository(db DBTX) *FileRepository {
	return &FileRepository{db: db}
}

// Insert вставляет запись с новым ID.
func (r *FileRepository) Insert(ctx context.Context, rec *model.FileRecord) (string, error) {
	id := index.NewID()

	_, err := r.db.Exec(ctx, `
		INSERT INTO file_records (`+fileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		id, rec.Name, rec.OriginalName, rec.Description, rec.Path, rec.ContentType, rec.Size,
		rec.CreatedDate, rec.LastUpdatedDate, rec.LastAccessDate,
		rec.Directory, rec.Other, rec.RegularFile, rec.SymbolicLink,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: %s", model.ErrDuplicateName, rec.Name)
		}
		return "", fmt.Errorf("%w: ошибка вставки записи: %v", model.ErrIO, err)
	}

	return id, nil
}

// FindByID возвращает запись по ID или model.ErrNotFound.
func (r *FileRepository) FindByID(ctx context.Context, id string) (*model.FileRecord, error) {
	// Некорректный UUID не может быть ключом записи
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: запись %s", model.ErrNotFound, id)
	}

	row := r.db.QueryRow(ctx, `SELECT `+fileColumns+` FROM file_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: запись %s", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: ошибка получения записи: %v", model.ErrIO, err)
	}
	return rec, nil
}

// FindByName возвращает записи с данным непустым именем.
func (r *FileRepository) FindByName(ctx context.Context, name string) ([]*model.FileRecord, error) {
	if name == "" {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+fileColumns+` FROM file_records WHERE name = $1`, name)
}

// ListAll возвращает все записи в порядке создания.
func (r *FileRepository) ListAll(ctx context.Context) ([]*model.FileRecord, error) {
	return r.query(ctx, `SELECT `+fileColumns+` FROM file_records ORDER BY created_date, id`)
}

// Update перезаписывает изменяемые поля записи.
// id и created_date не меняются.
func (r *FileRepository) Update(ctx context.Context, rec *model.FileRecord) error {
	if _, err := uuid.Parse(rec.ID); err != nil {
		return fmt.Errorf("%w: запись %s", model.ErrNotFound, rec.ID)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE file_records SET
			name = $2, original_name = $3, description = $4, path = $5, content_type = $6,
			size = $7, last_updated_date = $8, last_access_date = $9,
			directory = $10, other = $11, regular_file = $12, symbolic_link = $13
		WHERE id = $1`,
		rec.ID, rec.Name, rec.OriginalName, rec.Description, rec.Path, rec.ContentType,
		rec.Size, rec.LastUpdatedDate, rec.LastAccessDate,
		rec.Directory, rec.Other, rec.RegularFile, rec.SymbolicLink,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", model.ErrDuplicateName, rec.Name)
		}
		return fmt.Errorf("%w: ошибка обновления записи: %v", model.ErrIO, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: запись %s", model.ErrNotFound, rec.ID)
	}
	return nil
}

// Ping проверяет доступность базы.
func (r *FileRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("PostgreSQL недоступен: %w", err)
	}
	return nil
}

// query выполняет SELECT и сканирует все строки.
func (r *FileRepository) query(ctx context.Context, sql string, args ...any) ([]*model.FileRecord, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка выполнения запроса: %v", model.ErrIO, err)
	}
	defer rows.Close()

	var result []*model.FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: ошибка сканирования записи: %v", model.ErrIO, err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ошибка итерации: %v", model.ErrIO, err)
	}
	return result, nil
}

// scanRecord читает строку в FileRecord. Времена приводятся к UTC.
func scanRecord(row pgx.Row) (*model.FileRecord, error) {
	rec := &model.FileRecord{}
	var id uuid.UUID
	err := row.Scan(
		&id, &rec.Name, &rec.OriginalName, &rec.Description, &rec.Path, &rec.ContentType, &rec.Size,
		&rec.CreatedDate, &rec.LastUpdatedDate, &rec.LastAccessDate,
		&rec.Directory, &rec.Other, &rec.RegularFile, &rec.SymbolicLink,
	)
	if err != nil {
		return nil, err
	}

	rec.ID = id.String()
	rec.CreatedDate = rec.CreatedDate.UTC()
	rec.LastUpdatedDate = rec.LastUpdatedDate.UTC()
	rec.LastAccessDate = rec.LastAccessDate.UTC()
	return rec, nil
}
