package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/file-metadata/internal/domain/model"
)

func TestReconcileRunOnce_NoIssues(t *testing.T) {
	svc, store, idx := setupFileService(t)
	ctx := context.Background()

	for _, name := range []string{"a.txt", "b.txt"} {
		if _, err := svc.Register(ctx, RegisterParams{OriginalName: name, Data: []byte(name)}); err != nil {
			t.Fatalf("ошибка регистрации: %v", err)
		}
	}

	rs := NewReconcileService(store, idx, time.Hour, testLogger())
	report, err := rs.RunOnce(ctx)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if len(report.Issues) != 0 {
		t.Errorf("ожидалось 0 проблем, получено %d: %+v", len(report.Issues), report.Issues)
	}
	if report.RecordsChecked != 2 || report.FilesScanned != 2 || report.Summary.Ok != 2 {
		t.Errorf("неверный отчёт: %+v", report)
	}
	if report.CompletedAt.Before(report.StartedAt) {
		t.Error("CompletedAt раньше StartedAt")
	}
}

func TestReconcileRunOnce_DetectsIssues(t *testing.T) {
	svc, store, idx := setupFileService(t)
	ctx := context.Background()

	stale, err := svc.Register(ctx, RegisterParams{OriginalName: "stale.txt", Data: []byte("x")})
	if err != nil {
		t.Fatalf("ошибка регистрации: %v", err)
	}
	changed, err := svc.Register(ctx, RegisterParams{OriginalName: "changed.txt", Data: []byte("abc")})
	if err != nil {
		t.Fatalf("ошибка регистрации: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterParams{OriginalName: "ok.txt", Data: []byte("ok")}); err != nil {
		t.Fatalf("ошибка регистрации: %v", err)
	}

	if err := os.Remove(stale.Path); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}
	if err := os.WriteFile(changed.Path, []byte("abcdef"), 0o640); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}
	orphan := filepath.Join(store.DefaultRoot(), "orphan.bin")
	if err := os.WriteFile(orphan, []byte("orphan"), 0o640); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	rs := NewReconcileService(store, idx, time.Hour, testLogger())
	report, err := rs.RunOnce(ctx)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if report.Summary.StaleRecords != 1 || report.Summary.SizeMismatches != 1 ||
		report.Summary.OrphanedFiles != 1 || report.Summary.Ok != 1 {
		t.Errorf("неверная сводка: %+v", report.Summary)
	}

	byType := make(map[IssueType]ReconcileIssue)
	for _, issue := range report.Issues {
		byType[issue.Type] = issue
	}
	if byType[IssueStaleRecord].FileID != stale.ID {
		t.Errorf("stale_record: ожидался id %s, получено %+v", stale.ID, byType[IssueStaleRecord])
	}
	if byType[IssueSizeMismatch].FileID != changed.ID {
		t.Errorf("size_mismatch: ожидался id %s, получено %+v", changed.ID, byType[IssueSizeMismatch])
	}
	if byType[IssueOrphanedFile].Path != orphan {
		t.Errorf("orphaned_file: ожидался путь %s, получено %+v", orphan, byType[IssueOrphanedFile])
	}

	// Сверка ничего не удаляет
	if _, err := os.Stat(orphan); err != nil {
		t.Error("файл-сирота не должен удаляться")
	}
	if _, err := idx.FindByID(ctx, stale.ID); err != nil {
		t.Error("устаревшая запись не должна удаляться")
	}
}

func TestReconcileRunOnce_ExternalFilesIgnored(t *testing.T) {
	svc, store, idx := setupFileService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterParams{
		OriginalName:  "outside.txt",
		BaseDirectory: t.TempDir(),
		Data:          []byte("outside"),
	}); err != nil {
		t.Fatalf("ошибка регистрации: %v", err)
	}

	rs := NewReconcileService(store, idx, time.Hour, testLogger())
	report, err := rs.RunOnce(ctx)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(report.Issues) != 0 || report.RecordsChecked != 1 || report.FilesScanned != 0 {
		t.Errorf("неверный отчёт: %+v", report)
	}
}

func TestReconcileRunOnce_InProgress(t *testing.T) {
	_, store, idx := setupFileService(t)

	rs := NewReconcileService(store, idx, time.Hour, testLogger())
	rs.inProcess = true

	_, err := rs.RunOnce(context.Background())
	if !errors.Is(err, ErrReconcileInProgress) {
		t.Fatalf("ожидалась ErrReconcileInProgress, получено %v", err)
	}
	if !rs.IsInProgress() {
		t.Error("флаг выполнения не должен сбрасываться чужим вызовом")
	}
}

func TestReconcileService_StartStop(t *testing.T) {
	_, store, idx := setupFileService(t)

	rs := NewReconcileService(store, idx, 10*time.Millisecond, testLogger())
	rs.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	rs.Stop()

	if rs.IsInProgress() {
		t.Error("после Stop сверка не должна выполняться")
	}
}

func TestReconcileRunOnce_UncleanRecordPath(t *testing.T) {
	_, store, idx := setupFileService(t)
	ctx := context.Background()

	dir := filepath.Join(store.DefaultRoot(), "sub")
	if err := os.Mkdir(dir, 0o750); err != nil {
		t.Fatalf("ошибка создания директории: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("abc"), 0o640); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}
	if _, err := idx.Insert(ctx, &model.FileRecord{
		Name:        "a.txt",
		Path:        store.DefaultRoot() + "/sub/./a.txt",
		Size:        3,
		RegularFile: true,
	}); err != nil {
		t.Fatalf("ошибка вставки: %v", err)
	}

	rs := NewReconcileService(store, idx, time.Hour, testLogger())
	report, err := rs.RunOnce(ctx)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("ожидалось 0 проблем, получено %+v", report.Issues)
	}
}

func TestReconcileRunOnce_IgnoresStagingFiles(t *testing.T) {
	_, store, idx := setupFileService(t)

	staged, err := store.Stage(store.DefaultRoot()+"pending.bin", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("ошибка Stage: %v", err)
	}
	defer staged.Discard()

	rs := NewReconcileService(store, idx, time.Hour, testLogger())
	report, err := rs.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if report.FilesScanned != 0 || len(report.Issues) != 0 {
		t.Errorf("временный файл учтён при сверке: %+v", report)
	}
}
