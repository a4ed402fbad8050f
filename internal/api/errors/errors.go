// Пакет errors — ответы с ошибками File Metadata Service.
// Формат: text/plain, тело "<CODE>: <сообщение>".
// Все ошибки файловых операций отдаются со статусом 400.
package errors //nolint:revive // TODO: переименовать пакет errors, конфликт со stdlib

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/bigkaa/goartstore/file-metadata/internal/domain/model"
)

// Коды ошибок.
const (
	CodeEmptyUpload         = "EMPTY_UPLOAD"
	CodeInvalidName         = "INVALID_NAME"
	CodeDuplicateName       = "DUPLICATE_NAME"
	CodeNotFound            = "NOT_FOUND"
	CodeStaleRecord         = "STALE_RECORD"
	CodeNoSuchPath          = "NO_SUCH_PATH"
	CodeAccessDenied        = "ACCESS_DENIED"
	CodeIOError             = "IO_ERROR"
	CodeUnknownError        = "UNKNOWN_ERROR"
	CodeFileTooLarge        = "FILE_TOO_LARGE"
	CodeValidationError     = "VALIDATION_ERROR"
	CodeReconcileInProgress = "RECONCILE_IN_PROGRESS"
)

// kindCodes — код для каждого вида ошибки из model.
var kindCodes = map[error]string{
	model.ErrEmptyUpload:   CodeEmptyUpload,
	model.ErrInvalidName:   CodeInvalidName,
	model.ErrDuplicateName: CodeDuplicateName,
	model.ErrNotFound:      CodeNotFound,
	model.ErrStaleRecord:   CodeStaleRecord,
	model.ErrNoSuchPath:    CodeNoSuchPath,
	model.ErrAccess:        CodeAccessDenied,
	model.ErrIO:            CodeIOError,
	model.ErrUnknown:       CodeUnknownError,
}

// CodeOf возвращает машиночитаемый код ошибки.
func CodeOf(err error) string {
	if code, ok := kindCodes[model.KindOf(err)]; ok {
		return code
	}
	return CodeUnknownError
}

// WriteError записывает ответ ошибки: "<code>: <message>".
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	_, _ = fmt.Fprintf(w, "%s: %s", code, message)
}

// FromError — 400 с кодом, определённым по виду ошибки.
// Для дубликата имени сообщение совместимо с прежним API.
func FromError(w http.ResponseWriter, err error) {
	code := CodeOf(err)
	message := err.Error()

	var dup *model.DuplicateNameError
	if stderrors.As(err, &dup) {
		message = "Duplicate file name - FileMetaData found for the given name: " + dup.Name
	}

	WriteError(w, http.StatusBadRequest, code, message)
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// FileTooLarge — 400 файл превышает лимит.
func FileTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeFileTooLarge, message)
}

// ReconcileInProgress — 409 сверка уже выполняется.
func ReconcileInProgress(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeReconcileInProgress, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeUnknownError, message)
}
