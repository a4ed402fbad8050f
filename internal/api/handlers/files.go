// files.go — HTTP handlers файловых операций:
// список, метаданные (с обновлением), загрузка, скачивание.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/file-metadata/internal/api/errors"
	"github.com/bigkaa/goartstore/file-metadata/internal/domain/model"
	"github.com/bigkaa/goartstore/file-metadata/internal/service"
)

const (
	// uploadSuccessMessage — тело ответа на успешную загрузку.
	uploadSuccessMessage = "File successfully uploaded."
	// selectFileMessage — в запросе нет файла или он пустой.
	selectFileMessage = "Please select a file to upload."

	// multipartMemory — часть multipart формы, хранимая в памяти.
	multipartMemory = 32 << 20
	// multipartOverhead — запас на заголовки и текстовые поля формы.
	multipartOverhead = 1 << 20
)

// FilesHandler — обработчик файловых endpoints.
type FilesHandler struct {
	files       *service.FileService
	maxFileSize int64
	logger      *slog.Logger
}

// NewFilesHandler создаёт обработчик файловых endpoints.
// maxFileSize — максимальный размер загружаемого файла (FM_MAX_FILE_SIZE).
func NewFilesHandler(files *service.FileService, maxFileSize int64, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		files:       files,
		maxFileSize: maxFileSize,
		logger:      logger.With(slog.String("component", "files_handler")),
	}
}

// ListFiles обрабатывает GET /uploadedfiles.
// Возвращает JSON-массив всех записей, упорядоченных по дате создания.
func (h *FilesHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	records, err := h.files.List(r.Context())
	if err != nil {
		apierrors.FromError(w, err)
		return
	}
	if records == nil {
		records = []*model.FileRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// GetFileMetadata обрабатывает GET /filemetadata/{id}.
// Перед ответом перечитывает атрибуты файла и сохраняет их в индекс.
func (h *FilesHandler) GetFileMetadata(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.files.RefreshMetadata(r.Context(), id)
	if err != nil {
		apierrors.FromError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UploadFile обрабатывает POST /uploadfile.
// Multipart form: file (обязательно), name, descr, saveToPath (опционально).
func (h *FilesHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			apierrors.FileTooLarge(w, h.tooLargeMessage())
			return
		}
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, selectFileMessage)
		return
	}
	defer file.Close()

	if header.Size > h.maxFileSize {
		apierrors.FileTooLarge(w, h.tooLargeMessage())
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка чтения файла: %s", err.Error()))
		return
	}
	if int64(len(data)) > h.maxFileSize {
		apierrors.FileTooLarge(w, h.tooLargeMessage())
		return
	}
	if len(data) == 0 {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.CodeEmptyUpload, selectFileMessage)
		return
	}

	rec, err := h.files.Register(r.Context(), service.RegisterParams{
		Name:          r.FormValue("name"),
		Description:   r.FormValue("descr"),
		BaseDirectory: r.FormValue("saveToPath"),
		OriginalName:  header.Filename,
		ContentType:   header.Header.Get("Content-Type"),
		Data:          data,
	})
	if err != nil {
		apierrors.FromError(w, err)
		return
	}

	w.Header().Set("Location", "/filemetadata/"+rec.ID)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, uploadSuccessMessage)
}

// DownloadFile обрабатывает GET /downloadfile/{id}.
// Отдаёт содержимое файла с сохранённым Content-Type и запретом кэширования.
func (h *FilesHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	started := false
	err := h.files.Stream(r.Context(), id, func(c *service.Content) error {
		started = true

		hdr := w.Header()
		hdr.Set("Access-Control-Allow-Origin", "*")
		hdr.Set("Access-Control-Allow-Methods", "GET, POST, PUT")
		hdr.Set("Access-Control-Allow-Headers", "Content-Type")
		hdr.Set("Content-Type", c.Record.ContentType)
		hdr.Set("Content-Disposition", "filename="+c.Record.Name)
		hdr.Set("Content-Length", strconv.FormatInt(c.Size, 10))
		hdr.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		hdr.Set("Pragma", "no-cache")
		hdr.Set("Expires", "0")
		w.WriteHeader(http.StatusOK)

		_, copyErr := io.Copy(w, c.Body)
		return copyErr
	})
	if err == nil {
		return
	}

	if started {
		// Заголовки уже отправлены, ответ ошибкой невозможен
		h.logger.Warn("Передача файла прервана",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return
	}
	apierrors.FromError(w, err)
}

func (h *FilesHandler) tooLargeMessage() string {
	return fmt.Sprintf("Размер файла превышает лимит %d байт", h.maxFileSize)
}

// writeJSON записывает JSON-ответ.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
