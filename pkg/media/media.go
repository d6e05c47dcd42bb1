// Package media stores uploaded files on the local disk.
package media

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid"
)

// URLPrefix is the path prefix stored files are served under and the prefix of every stored path.
const URLPrefix = "uploads"

const maxMemory = 32 << 20

var ErrTooLarge = errors.New("upload is too large")

type Store struct {
	dir      string
	maxBytes int64
}

// New returns a Store writing into dir, creating it if needed. maxBytes caps the size of a
// whole request body, zero disables the cap.
func New(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// ParseForm parses a multipart request body, applying the size cap. Requests that are not
// multipart are left for the caller to decode.
func (s *Store) ParseForm(w http.ResponseWriter, r *http.Request) error {
	if s.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)
	}

	err := r.ParseMultipartForm(maxMemory)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, tooLarge.Limit)
	}
	return err
}

// Save stores the single file uploaded under field and returns its relative path
// uploads/<name>. A request without that file yields an empty path.
func (s *Store) Save(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", err
	}
	defer file.Close()

	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	name := id.String() + strings.ToLower(filepath.Ext(header.Filename))

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(dst.Name())
		return "", err
	}

	return path.Join(URLPrefix, name), nil
}

// Remove deletes a file previously returned by Save. Removing an empty path or a
// file that is already gone is not an error.
func (s *Store) Remove(stored string) error {
	if stored == "" {
		return nil
	}
	name := path.Base(stored)
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Handler serves stored files. It is meant to be mounted under /uploads/.
func (s *Store) Handler() http.Handler {
	return http.StripPrefix("/"+URLPrefix+"/", http.FileServer(http.Dir(s.dir)))
}
