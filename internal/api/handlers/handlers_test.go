package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/goartstore/file-metadata/internal/config"
	"github.com/bigkaa/goartstore/file-metadata/internal/domain/model"
	"github.com/bigkaa/goartstore/file-metadata/internal/service"
	"github.com/bigkaa/goartstore/file-metadata/internal/storage/filestore"
	"github.com/bigkaa/goartstore/file-metadata/internal/storage/index"
	"github.com/bigkaa/goartstore/file-metadata/internal/storage/placement"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testEnv — собранный API поверх in-memory индекса.
type testEnv struct {
	router http.Handler
	store  *filestore.FileStore
	files  *service.FileService
}

// fakeReconciler — заглушка ReconcileRunner.
type fakeReconciler struct {
	report *service.ReconcileReport
	err    error
}

func (f *fakeReconciler) RunOnce(context.Context) (*service.ReconcileReport, error) {
	return f.report, f.err
}

func setupEnv(t *testing.T, maxFileSize int64, rec ReconcileRunner) *testEnv {
	t.Helper()

	store, err := filestore.New(filepath.Join(t.TempDir(), "upload"))
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}
	files := service.NewFileService(
		placement.New(store.DefaultRoot()),
		store,
		index.NewMemory(testLogger()),
		testLogger(),
	)
	if rec == nil {
		rec = service.NewReconcileService(store, index.NewMemory(testLogger()), 0, testLogger())
	}
	cfg := &config.Config{
		ServiceID:    "fm-test",
		IndexBackend: config.BackendMemory,
		DefaultRoot:  store.DefaultRoot(),
		MaxFileSize:  maxFileSize,
	}

	api := NewAPIHandler(
		NewFilesHandler(files, maxFileSize, testLogger()),
		NewSystemHandler(cfg, files, store.DiskUsage),
		NewMaintenanceHandler(rec),
		NewHealthHandler(files, nil),
	)
	router := chi.NewRouter()
	api.Routes(router)

	return &testEnv{router: router, store: store, files: files}
}

// uploadForm — поля multipart формы загрузки.
type uploadForm struct {
	filename    string
	contentType string
	content     []byte
	fields      map[string]string
	noFile      bool
}

func newUploadRequest(t *testing.T, f uploadForm) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range f.fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("ошибка формы: %v", err)
		}
	}
	if !f.noFile {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+f.filename+`"`)
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("ошибка формы: %v", err)
		}
		if _, err := part.Write(f.content); err != nil {
			t.Fatalf("ошибка формы: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("ошибка формы: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/uploadfile", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// upload загружает файл и возвращает id из заголовка Location.
func (e *testEnv) upload(t *testing.T, f uploadForm) string {
	t.Helper()
	w := e.do(newUploadRequest(t, f))
	if w.Code != http.StatusOK {
		t.Fatalf("загрузка: статус %d, тело %q", w.Code, w.Body.String())
	}
	return strings.TrimPrefix(w.Header().Get("Location"), "/filemetadata/")
}

func TestUploadFile_Success(t *testing.T) {
	env := setupEnv(t, 1<<20, nil)

	w := env.do(newUploadRequest(t, uploadForm{
		filename:    "report.pdf",
		contentType: "application/pdf",
		content:     []byte("%PDF"),
		fields:      map[string]string{"descr": "отчёт"},
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("статус: ожидалось 200, получено %d (%s)", w.Code, w.Body.String())
	}
	if w.Body.String() != uploadSuccessMessage {
		t.Errorf("тело: получено %q", w.Body.String())
	}
	if !strings.HasPrefix(w.Header().Get("Location"), "/filemetadata/") {
		t.Errorf("Location: получено %q", w.Header().Get("Location"))
	}

	data, err := os.ReadFile(env.store.DefaultRoot() + "report.pdf")
	if err != nil {
		t.Fatalf("файл не записан: %v", err)
	}
	if string(data) != "%PDF" {
		t.Errorf("содержимое: %q", data)
	}
}

func TestUploadFile_NameAndSaveToPath(t *testing.T) {
	env := setupEnv(t, 1<<20, nil)
	dir := t.TempDir()

	env.upload(t, uploadForm{
		filename: "orig.txt",
		content:  []byte("x"),
		fields:   map[string]string{"name": "custom.txt", "saveToPath": dir + "/"},
	})

	if _, err := os.Stat(filepath.Join(dir, "custom.txt")); err != nil {
		t.Errorf("файл не записан в saveToPath: %v", err)
	}
}

func TestUploadFile_MissingFile(t *testing.T) {
	env := setupEnv(t, 1<<20, nil)

	w := env.do(newUploadRequest(t, uploadForm{noFile: true, fields: map[string]string{"name": "a.txt"}}))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("статус: ожидалось 400, получено %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), selectFileMessage) {
		t.Errorf("тело: получено %q", w.Body.String())
	}
}

func TestUploadFile_Empty(t *testing.T) {
	env := setupEnv(t, 1<<20, nil)

	w := env.do(newUploadRequest(t, uploadForm{filename: "empty.txt"}))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("статус: ожидалось 400, получено %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "EMPTY_UPLOAD: ") {
		t.Errorf("тело: получено %q", w.Body.String())
	}
}

func TestUploadFile_TooLarge(t *testing.T) {
	env := setupEnv(t, 8, nil)

	w := env.do(newUploadRequest(t, uploadForm{filename: "big.bin", content: []byte("0123456789")}))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("статус: ожидалось 400, получено %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "FILE_TOO_LARGE: ") {
		t.Errorf("тело: получено %q", w.Body.String())
	}
}

func TestUploadFile_Duplicate(t *testing.T) {
	env := setupEnv(t, 1<<20, nil)
	env.upload(t, uploadForm{filename: "a.txt", content: []byte("first")})

	w := env.do(newUploadRequest(t, uploadForm{filename: "a.txt", content: []byte("second")}))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("статус: ожидалось 400, получено %d", w.Code)
	}
	want := "DUPLICATE_NAME: Duplicate file name - FileMetaData found for the given name: a.txt"
	if w.Body.String() != want {
		t.Errorf("тело: ожидалось %q, получено %q", want, w.Body.String())
	}
}

func TestUploadFile_NoSuchPath(t *testing.T) {
	env := setupEnv(t, 1<<20, nil)

	w := env.do(newUploadRequest(t, uploadForm{
		filename: "a.txt",
		content:  []byte("x"),
		fields:   map[string]string{"saveToPath": filepath.Join(t.TempDir(), "missing") + "/"},
	}))

	if w.Code != http.StatusBadRequest || !strings.HasPrefix(w.Body.String(), "NO_SUCH_PATH: ") {
		t.Errorf("ожидалось 400 NO_SUCH_PATH, получено %d %q", w.Code, w.Body.String())
	}
}

func TestListFiles(t *testing.T) {
	env := setupEnv(t, 1<<20, nil)

	w := env.do(httptest.NewRequest(http.MethodGet, "/uploadedfiles", nil))
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("пустой список: получено %d %q", w.Code, w.Body.String())
	}

	env.upload(t, uploadForm{filename: "a.txt", content: []byte("a")})
	env.upload(t, uploadForm{filename: "b.txt", content: []byte("bb")})

	w = env.do(httptest.NewRequest(http.MethodGet, "/uploadedfiles", nil))
	var records []model.FileRecord
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatalf("ошибка разбора JSON: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ожидалось 2 записи, получено %d", len(records))
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: получено %q", ct)
	}
}

func TestGetFileMetadata_Refreshes(t *testing.T) {
	env := setupEnv(t, 1<<20, nil)
	id := env.upload(t, uploadForm{filename: "grow.txt", content: []byte("abc")})

	if err := os.WriteFile(env.store.DefaultRoot()+"grow.txt", []byte("abcdef"), 0o640); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	w := env.do(httptest.NewRequest(http.MethodGet, "/filemetadata/"+id, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("статус: %d %q", w.Code, w.Body.String())
	}

	var rec model.FileRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("ошибка разбора JSON: %v", err)
	}
	if rec.ID != id || rec.Size != 6 || !rec.RegularFile {
		t.Errorf("неверная запись: %+v", rec)
	}
}

func TestGetFileMetadata_Errors(t *testing.T) {
	env := setupEnv(t, 1<<20, nil)

	w := env.do(httptest.NewRequest(http.MethodGet, "/filemetadata/unknown", nil))
	if w.Code != http.StatusBadRequest || !strings.HasPrefix(w.Body.String(), "NOT_FOUND: ") {
		t.Errorf("неизвестный id: получено %d %q", w.Code, w.Body.String())
	}

	id := env.upload(t, uploadForm{filename: "gone.txt", content: []byte("x")})
	if err := os.Remove(env.store.DefaultRoot() + "gone.txt"); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}
	w = env.do(httptest.NewRequest(http.MethodGet, "/filemetadata/"+id, nil))
	if w.Code != http.StatusBadRequest || !strings.HasPrefix(w.Body.String(), "STALE_RECORD: ") {
		t.Errorf("удалённый файл: получено %d %q", w.Code, w.Body.String())
	}
}

func TestDownloadFile(t *testing.T) {
	env := setupEnv(t, 1<<20, nil)
	id := env.upload(t, uploadForm{
		filename:    "data.csv",
		contentType: "text/csv",
		content:     []byte("a,b\n1,2\n"),
	})

	w := env.do(httptest.NewRequest(http.MethodGet, "/downloadfile/"+id, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("статус: %d %q", w.Code, w.Body.String())
	}
	if w.Body.String() != "a,b\n1,2\n" {
		t.Errorf("тело: %q", w.Body.String())
	}

	headers := map[string]string{
		"Content-Type":                 "text/csv",
		"Content-Disposition":          "filename=data.csv",
		"Content-Length":               "8",
		"Cache-Control":                "no-cache, no-store, must-revalidate",
		"Pragma":                       "no-cache",
		"Expires":                      "0",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, POST, PUT",
		"Access-Control-Allow-Headers": "Content-Type",
	}
	for k, want := range headers {
		if got := w.Header().Get(k); got != want {
			t.Errorf("%s: ожидалось %q, получено %q", k, want, got)
		}
	}
}

func TestDownloadFile_Errors(t *testing.T) {
	env := setupEnv(t, 1<<20, nil)

	w := env.do(httptest.NewRequest(http.MethodGet, "/downloadfile/unknown", nil))
	if w.Code != http.StatusBadRequest || !strings.HasPrefix(w.Body.String(), "NOT_FOUND: ") {
		t.Errorf("неизвестный id: получено %d %q", w.Code, w.Body.String())
	}

	id := env.upload(t, uploadForm{filename: "lost.bin", content: []byte("x")})
	if err := os.Remove(env.store.DefaultRoot() + "lost.bin"); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}
	w = env.do(httptest.NewRequest(http.MethodGet, "/downloadfile/"+id, nil))
	if w.Code != http.StatusBadRequest || !strings.HasPrefix(w.Body.String(), "NOT_FOUND: ") {
		t.Errorf("файл удалён: получено %d %q", w.Code, w.Body.String())
	}
}

func TestReconcile(t *testing.T) {
	report := &service.ReconcileReport{RecordsChecked: 3, Issues: []service.ReconcileIssue{}}
	env := setupEnv(t, 1<<20, &fakeReconciler{report: report})

	w := env.do(httptest.NewRequest(http.MethodPost, "/maintenance/reconcile", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("статус: %d %q", w.Code, w.Body.String())
	}
	var got service.ReconcileReport
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("ошибка разбора JSON: %v", err)
	}
	if got.RecordsChecked != 3 {
		t.Errorf("RecordsChecked: получено %d", got.RecordsChecked)
	}
}

func TestReconcile_InProgress(t *testing.T) {
	env := setupEnv(t, 1<<20, &fakeReconciler{err: service.ErrReconcileInProgress})

	w := env.do(httptest.NewRequest(http.MethodPost, "/maintenance/reconcile", nil))
	if w.Code != http.StatusConflict || !strings.HasPrefix(w.Body.String(), "RECONCILE_IN_PROGRESS: ") {
		t.Errorf("ожидалось 409, получено %d %q", w.Code, w.Body.String())
	}
}

func TestReconcile_Error(t *testing.T) {
	env := setupEnv(t, 1<<20, &fakeReconciler{err: errors.New("индекс недоступен")})

	w := env.do(httptest.NewRequest(http.MethodPost, "/maintenance/reconcile", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("ожидалось 500, получено %d", w.Code)
	}
}

func TestGetInfo(t *testing.T) {
	env := setupEnv(t, 1<<20, nil)
	env.upload(t, uploadForm{filename: "a.txt", content: []byte("a")})

	w := env.do(httptest.NewRequest(http.MethodGet, "/info", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("статус: %d", w.Code)
	}
	var info serviceInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("ошибка разбора JSON: %v", err)
	}
	if info.ServiceID != "fm-test" || info.Records != 1 || info.IndexBackend != config.BackendMemory {
		t.Errorf("неверный ответ: %+v", info)
	}
}

// fakeProbe — ReadinessProbe с заданным результатом.
type fakeProbe struct{ err error }

func (p fakeProbe) Ready(context.Context) error { return p.err }

// fakeDeps — DependencyHealth с заданным состоянием.
type fakeDeps map[string]bool

func (d fakeDeps) Health() map[string]bool { return d }

func decodeStatus(t *testing.T, body io.Reader) string {
	t.Helper()
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("ошибка разбора JSON: %v", err)
	}
	return resp.Status
}

func TestHealthLive(t *testing.T) {
	h := NewHealthHandler(fakeProbe{}, nil)
	w := httptest.NewRecorder()
	h.HealthLive(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if w.Code != http.StatusOK || decodeStatus(t, w.Body) != "ok" {
		t.Errorf("ожидалось 200 ok, получено %d", w.Code)
	}
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		probe      fakeProbe
		deps       DependencyHealth
		wantCode   int
		wantStatus string
	}{
		{"готов", fakeProbe{}, nil, http.StatusOK, "ok"},
		{"хранилище недоступно", fakeProbe{err: model.ErrAccess}, nil, http.StatusServiceUnavailable, statusFail},
		{"зависимость недоступна", fakeProbe{}, fakeDeps{"postgresql:db:5432": false}, http.StatusOK, "degraded"},
		{"зависимость доступна", fakeProbe{}, fakeDeps{"postgresql:db:5432": true}, http.StatusOK, "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.probe, tt.deps)
			w := httptest.NewRecorder()
			h.HealthReady(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if w.Code != tt.wantCode {
				t.Errorf("статус: ожидалось %d, получено %d", tt.wantCode, w.Code)
			}
			if got := decodeStatus(t, w.Body); got != tt.wantStatus {
				t.Errorf("status: ожидалось %s, получено %s", tt.wantStatus, got)
			}
		})
	}
}
