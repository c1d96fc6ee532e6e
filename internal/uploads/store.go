// Package uploads stores images received by the upload endpoint on disk.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// URLPrefix is the path under which stored files are served.
const URLPrefix = "/uploads/"

// FallbackMIMEType is used when the extension says nothing.
const FallbackMIMEType = "image/jpeg"

var (
	ErrTooLarge    = errors.New("file exceeds the upload size limit")
	ErrNotAllowed  = errors.New("file type is not allowed")
	ErrInvalidName = errors.New("invalid file name")
)

// File describes a stored upload.
type File struct {
	Name     string // generated name, unique within the store
	Original string // name as sent by the client
	Path     string
	MIMEType string
	Size     int64
}

// URL is where the file is served.
func (f *File) URL() string { return URL(f.Name) }

// URL returns the public path of a stored file name.
func URL(name string) string { return URLPrefix + name }

// Options configures a Store.
type Options struct {
	Dir      string
	MaxBytes int64
	// Allow lists glob patterns (doublestar syntax) the original file name
	// must match. Empty allows everything.
	Allow  []string
	Logger *slog.Logger
}

// Store writes uploads into a single directory.
type Store struct {
	dir      string
	maxBytes int64
	allow    []string
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Store, creating its directory if needed.
func New(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("upload directory is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory %s: %w", opts.Dir, err)
	}
	for _, p := range opts.Allow {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid upload pattern %q", p)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:      opts.Dir,
		maxBytes: opts.MaxBytes,
		allow:    opts.Allow,
		logger:   logger.With("component", "uploads"),
		now:      time.Now,
	}, nil
}

// Dir is the directory files are written to.
func (s *Store) Dir() string { return s.dir }

// MaxBytes is the size limit, zero for none.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Allowed reports whether a client file name passes the allow-list.
func (s *Store) Allowed(name string) bool {
	if len(s.allow) == 0 {
		return true
	}
	base := filepath.Base(filepath.ToSlash(name))
	for _, pattern := range s.allow {
		if matched, err := doublestar.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}

// Save copies r into a new file named after original's extension. Files
// over the size limit are removed and ErrTooLarge is returned.
func (s *Store) Save(original string, r io.Reader) (*File, error) {
	if !s.Allowed(original) {
		return nil, fmt.Errorf("%s: %w", original, ErrNotAllowed)
	}

	name := s.uniqueName(original)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.maxBytes > 0 && n > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("storing %s: %w", original, err)
	}

	s.logger.Debug("upload stored", "name", name, "original", original, "bytes", n)
	return &File{
		Name:     name,
		Original: original,
		Path:     path,
		MIMEType: MIMEType(name),
		Size:     n,
	}, nil
}

// Read returns the content of a stored file.
func (s *Store) Read(name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Delete removes a stored file. Removing a missing file is not an error.
func (s *Store) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	s.logger.Debug("upload deleted", "name", name)
	return nil
}

func (s *Store) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return filepath.Join(s.dir, name), nil
}

// uniqueName builds file-<unix millis>-<random><ext>.
func (s *Store) uniqueName(original string) string {
	return fmt.Sprintf("file-%d-%d%s", s.now().UnixMilli(), rand.Int64N(1_000_000_000), safeExt(original))
}

// safeExt returns the extension of name if it is plain ASCII alphanumerics.
func safeExt(name string) string {
	ext := filepath.Ext(filepath.Base(filepath.ToSlash(name)))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, c := range ext[1:] {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return ""
		}
	}
	return ext
}

// MIMEType guesses the type of a file from its extension, falling back to
// image/jpeg.
func MIMEType(name string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if t == "" {
		return FallbackMIMEType
	}
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}
