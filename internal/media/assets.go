package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore writes generated artifacts (speech clips, QR codes) to a
// local directory served under a public base URL.
type FileStore struct {
	dir     string
	baseURL string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir, baseURL string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create assets dir: %w", err)
	}
	return &FileStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Save writes data under a fresh unique name with the given extension
// and returns the public URL.
func (s *FileStore) Save(ext string, data []byte) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("asset id: %w", err)
	}

	name := id.String() + "." + strings.TrimPrefix(ext, ".")
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write asset: %w", err)
	}

	return s.baseURL + "/" + name, nil
}

// Dir returns the local directory backing the store.
func (s *FileStore) Dir() string { return s.dir }
