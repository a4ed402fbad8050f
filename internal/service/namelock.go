package service

import "sync"

// nameLocks — блокировки по имени файла. Регистрации с одинаковым
// именем выполняются последовательно, с разными — параллельно.
// Запись удаляется из map, когда её больше никто не держит.
type nameLocks struct {
	mu    sync.Mutex
	locks map[string]*nameLock
}

type nameLock struct {
	mu   sync.Mutex
	refs int
}

func newNameLocks() *nameLocks {
	return &nameLocks{locks: make(map[string]*nameLock)}
}

// Lock захватывает блокировку имени и возвращает функцию освобождения.
func (l *nameLocks) Lock(name string) (unlock func()) {
	l.mu.Lock()
	nl, ok := l.locks[name]
	if !ok {
		nl = &nameLock{}
		l.locks[name] = nl
	}
	nl.refs++
	l.mu.Unlock()

	nl.mu.Lock()

	return func() {
		nl.mu.Unlock()

		l.mu.Lock()
		nl.refs--
		if nl.refs == 0 {
			delete(l.locks, name)
		}
		l.mu.Unlock()
	}
}

// size возвращает количество активных блокировок.
func (l *nameLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
