package images

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// URLPrefix is the public path under which stored images are served.
const URLPrefix = "/uploads"

// Store writes and removes uploaded image files in a single directory.
// File operations are not transactional with database writes; callers
// order them so that a crash can only leave an orphaned file behind.
type Store struct {
	dir string
}

// NewStore ensures dir exists and returns a store rooted there.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory the store writes into.
func (s *Store) Dir() string { return s.dir }

// Save writes the uploaded file under a collision-resistant generated name
// and returns the public URL path to record on the post.
func (s *Store) Save(fh *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	name := fmt.Sprintf("plaka-%d-%s%s", time.Now().UnixMilli(), uuid.NewString()[:8], ext)

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write image file: %w", err)
	}
	return URLPrefix + "/" + name, nil
}

// Remove deletes the file referenced by a stored URL path. A missing file is
// not an error; callers treat any other failure as best-effort cleanup and
// log it rather than propagate it.
func (s *Store) Remove(urlPath string) error {
	name := filepath.Base(urlPath)
	if name == "." || name == "/" || name == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
