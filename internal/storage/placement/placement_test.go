package placement

import (
	"errors"
	"testing"

	"github.com/bigkaa/goartstore/file-metadata/internal/domain/model"
)

// TestResolveName_FallbackToOriginal проверяет выбор оригинального имени.
func TestResolveName_FallbackToOriginal(t *testing.T) {
	r := New("/srv/upload/")

	got, err := r.ResolveName("", "orig.txt")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if got != "orig.txt" {
		t.Errorf("ожидалось orig.txt, получено %q", got)
	}
}

// TestResolveName_RequestedWins проверяет приоритет имени из запроса.
func TestResolveName_RequestedWins(t *testing.T) {
	r := New("/srv/upload/")

	got, err := r.ResolveName("custom.pdf", "orig.txt")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if got != "custom.pdf" {
		t.Errorf("ожидалось custom.pdf, получено %q", got)
	}
}

// TestResolveName_BlankRequested проверяет, что пробельное имя считается пустым.
func TestResolveName_BlankRequested(t *testing.T) {
	r := New("/srv/upload/")

	got, err := r.ResolveName("   ", "orig.txt")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if got != "orig.txt" {
		t.Errorf("ожидалось orig.txt, получено %q", got)
	}
}

// TestResolveName_BothEmpty проверяет ошибку при отсутствии имён.
func TestResolveName_BothEmpty(t *testing.T) {
	r := New("/srv/upload/")

	_, err := r.ResolveName("", "")
	if !errors.Is(err, model.ErrInvalidName) {
		t.Fatalf("ожидалась ErrInvalidName, получено %v", err)
	}
}

// TestResolveName_RejectsTraversal проверяет защиту от выхода за директорию.
func TestResolveName_RejectsTraversal(t *testing.T) {
	r := New("/srv/upload/")

	for _, name := range []string{"../etc/passwd", "a/b.txt", `a\b.txt`, "..", "."} {
		if _, err := r.ResolveName(name, "orig.txt"); !errors.Is(err, model.ErrInvalidName) {
			t.Errorf("имя %q: ожидалась ErrInvalidName, получено %v", name, err)
		}
	}
}

// TestResolvePath_Default проверяет путь в директории по умолчанию.
func TestResolvePath_Default(t *testing.T) {
	r := New("/srv/upload/")

	if got := r.ResolvePath("", "a.txt"); got != "/srv/upload/a.txt" {
		t.Errorf("ожидалось /srv/upload/a.txt, получено %q", got)
	}
}

// TestResolvePath_Explicit проверяет путь в указанной директории.
func TestResolvePath_Explicit(t *testing.T) {
	r := New("/srv/upload/")

	if got := r.ResolvePath("/data/", "a.txt"); got != "/data/a.txt" {
		t.Errorf("ожидалось /data/a.txt, получено %q", got)
	}
	if got := r.ResolvePath("/data", "a.txt"); got != "/data/a.txt" {
		t.Errorf("без завершающего разделителя: ожидалось /data/a.txt, получено %q", got)
	}
}

// TestResolvePath_Cleaned проверяет очистку лишних разделителей и точек.
func TestResolvePath_Cleaned(t *testing.T) {
	r := New("/srv/upload/")

	tests := map[string]string{
		"/srv/upload//sub/": "/srv/upload/sub/a.txt",
		"/data/./x/":        "/data/x/a.txt",
		"/data/x/../y":      "/data/y/a.txt",
	}
	for base, want := range tests {
		if got := r.ResolvePath(base, "a.txt"); got != want {
			t.Errorf("base %q: ожидалось %q, получено %q", base, want, got)
		}
	}
}

// TestNew_NormalizesRoot проверяет нормализацию директории по умолчанию.
func TestNew_NormalizesRoot(t *testing.T) {
	for _, root := range []string{"/srv/upload", "/srv/upload/", "/srv//upload/./"} {
		if got := New(root).DefaultRoot(); got != "/srv/upload/" {
			t.Errorf("корень %q: ожидалось /srv/upload/, получено %q", root, got)
		}
	}
}

// TestNormalizeDir проверяет единую нормализацию директории.
func TestNormalizeDir(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"/":            "/",
		"/srv/upload":  "/srv/upload/",
		"/srv/upload/": "/srv/upload/",
		"/srv//a/../b": "/srv/b/",
	}
	for in, want := range tests {
		if got := NormalizeDir(in); got != want {
			t.Errorf("NormalizeDir(%q): ожидалось %q, получено %q", in, want, got)
		}
	}
}
