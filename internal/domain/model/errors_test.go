package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"прямая", ErrNotFound, ErrNotFound},
		{"обёрнутая", fmt.Errorf("%w: путь /a", ErrNoSuchPath), ErrNoSuchPath},
		{"дважды обёрнутая", fmt.Errorf("сервис: %w", fmt.Errorf("%w: x", ErrAccess)), ErrAccess},
		{"конфликт имени", &DuplicateNameError{Name: "a.txt"}, ErrDuplicateName},
		{"неизвестная", errors.New("сбой"), ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf = %v, ожидалось %v", got, tt.want)
			}
		})
	}
}

func TestKindOf_StaleBeforeNotFound(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrStaleRecord, ErrNotFound)
	if got := KindOf(err); got != ErrStaleRecord {
		t.Errorf("KindOf = %v, ожидалось ErrStaleRecord", got)
	}
}

func TestDuplicateNameError(t *testing.T) {
	err := fmt.Errorf("регистрация: %w", &DuplicateNameError{Name: "a.txt"})

	if !errors.Is(err, ErrDuplicateName) {
		t.Error("errors.Is(ErrDuplicateName) должно быть true")
	}
	var dup *DuplicateNameError
	if !errors.As(err, &dup) || dup.Name != "a.txt" {
		t.Errorf("errors.As не извлёк имя: %v", dup)
	}
}

func TestFileRecord_Clone(t *testing.T) {
	rec := &FileRecord{ID: "1", Name: "a.txt", Size: 10}
	cp := rec.Clone()
	cp.Name = "b.txt"

	if rec.Name != "a.txt" {
		t.Error("Clone должен возвращать независимую копию")
	}
}
