// Package imagestore сохраняет загруженные снимки на диск под уникальными
// именами и строит публичные URL для их раздачи.
package imagestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store — локальное файловое хранилище снимков.
type Store struct {
	saveDir   string
	urlPrefix string
}

// New создает хранилище и каталог для снимков, если его ещё нет.
func New(saveDir, urlPrefix string) (*Store, error) {
	const op = "imagestore.New"
	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Store{
		saveDir:   saveDir,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
	}, nil
}

// Save записывает снимок под уникальным именем, сохраняя расширение
// исходного файла, и возвращает путь на диске и публичный URL.
func (s *Store) Save(originalName string, data []byte) (filePath, imageURL string, err error) {
	const op = "imagestore.Save"

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
	if ext == "" {
		ext = "jpg"
	}
	filename := fmt.Sprintf("%s.%s", uuid.New().String(), ext)

	filePath = filepath.Join(s.saveDir, filename)
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	return filePath, s.urlPrefix + "/" + filename, nil
}

// Dir возвращает каталог хранилища для монтирования в файл-сервер.
func (s *Store) Dir() string {
	return s.saveDir
}
