// Пакет model — доменные модели File Metadata Service.
// FileRecord — единая структура метаданных файла, используется
// всеми реализациями индекса и как формат JSON-ответа API.
package model

import (
	"time"
)

// DefaultContentType — MIME-тип, если клиент не передал Content-Type.
const DefaultContentType = "application/octet-stream"

// FileRecord — метаданные загруженного файла.
// Байты файла лежат по пути Path, в индексе хранится только описание.
type FileRecord struct {
	// ID — непрозрачный идентификатор (UUID v4), назначается индексом при вставке
	ID string `json:"id"`

	// Name — логическое имя, под которым запись индексируется.
	// Уникально среди всех записей с непустым именем.
	Name string `json:"name"`

	// OriginalName — имя файла на стороне клиента (из multipart).
	// Только информационное поле, не участвует в выборе пути.
	OriginalName string `json:"originalName"`

	// Description — описание файла (опционально)
	Description string `json:"description"`

	// Path — абсолютный путь к байтам файла. Задаётся один раз при создании.
	Path string `json:"path"`

	// ContentType — MIME-тип, указанный при загрузке, отдаётся при скачивании как есть
	ContentType string `json:"contentType"`

	// Size — размер файла в байтах (из атрибутов ФС)
	Size int64 `json:"size"`

	// CreatedDate — время регистрации записи (часы сервиса, не ФС)
	CreatedDate time.Time `json:"createdDate"`

	// LastUpdatedDate — время последней модификации файла (mtime)
	LastUpdatedDate time.Time `json:"lastUpdatedDate"`

	// LastAccessDate — время последнего доступа к файлу (atime)
	LastAccessDate time.Time `json:"lastAccessDate"`

	// Флаги типа файла. Описывают один снимок атрибутов и
	// обновляются только вместе (см. attr.Snapshot.ApplyTo).
	Directory    bool `json:"directory"`
	Other        bool `json:"other"`
	RegularFile  bool `json:"regularFile"`
	SymbolicLink bool `json:"symbolicLink"`
}

// Clone возвращает независимую копию записи.
func (r *FileRecord) Clone() *FileRecord {
	copied := *r
	return &copied
}

// HasName сообщает, участвует ли запись в проверке уникальности имени.
func (r *FileRecord) HasName() bool {
	return r.Name != ""
}
