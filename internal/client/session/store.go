// Package session отвечает за персистентное хранение токена доступа
// между запусками клиента.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store описывает хранилище токена доступа.
type Store interface {
	// Load возвращает сохраненный токен. Отсутствие токена — не ошибка:
	// возвращается пустая строка.
	Load() (string, error)
	// Save сохраняет токен, перезаписывая предыдущий.
	Save(token string) error
	// Clear удаляет сохраненный токен. Повторный вызов безопасен.
	Clear() error
}

// FileStore хранит токен в файле с правами только для владельца.
type FileStore struct {
	path string
}

// NewFileStore создает FileStore по заданному пути.
// Пустой путь заменяется файлом в каталоге конфигурации пользователя.
func NewFileStore(path string) (*FileStore, error) {
	const op = "session.NewFileStore"

	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		path = filepath.Join(configDir, "skincoach", "token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &FileStore{path: path}, nil
}

// Load возвращает сохраненный токен или пустую строку.
func (s *FileStore) Load() (string, error) {
	const op = "session.Load"

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save сохраняет токен, перезаписывая предыдущий.
func (s *FileStore) Save(token string) error {
	const op = "session.Save"

	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Clear удаляет файл токена. Отсутствие файла — не ошибка.
func (s *FileStore) Clear() error {
	const op = "session.Clear"

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
