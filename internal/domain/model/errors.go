// errors.go — таксономия ошибок сервиса.
// Нижние слои (placement, attr, filestore, index) оборачивают эти ошибки
// через fmt.Errorf("%w: ...", ...), верхние проверяют через errors.Is.
package model

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyUpload — загружен пустой файл.
	ErrEmptyUpload = errors.New("пустой файл")
	// ErrInvalidName — не удалось определить допустимое имя файла.
	ErrInvalidName = errors.New("некорректное имя файла")
	// ErrDuplicateName — запись с таким именем уже существует.
	ErrDuplicateName = errors.New("дублирующееся имя файла")
	// ErrNotFound — запись или файл не найдены.
	ErrNotFound = errors.New("не найдено")
	// ErrStaleRecord — запись есть в индексе, но файла по её пути больше нет.
	ErrStaleRecord = errors.New("устаревшая запись")
	// ErrNoSuchPath — указанная клиентом директория не существует.
	ErrNoSuchPath = errors.New("директория не существует")
	// ErrAccess — нет прав доступа к пути.
	ErrAccess = errors.New("доступ запрещён")
	// ErrIO — прочие ошибки файловой системы.
	ErrIO = errors.New("ошибка ввода-вывода")
	// ErrUnknown — неклассифицированная ошибка.
	ErrUnknown = errors.New("неизвестная ошибка")
)

// kinds — порядок важен: ErrStaleRecord оборачивает ErrNotFound пути,
// поэтому проверяется раньше.
var kinds = []error{
	ErrEmptyUpload,
	ErrInvalidName,
	ErrDuplicateName,
	ErrStaleRecord,
	ErrNotFound,
	ErrNoSuchPath,
	ErrAccess,
	ErrIO,
}

// KindOf возвращает sentinel-ошибку, к которой относится err.
// Для nil возвращает nil, для неклассифицированных ошибок — ErrUnknown.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrUnknown
}

// DuplicateNameError — конфликт имени с указанием самого имени.
// errors.Is(err, ErrDuplicateName) для неё истинно.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDuplicateName, e.Name)
}

// Is сопоставляет ошибку с ErrDuplicateName.
func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}
