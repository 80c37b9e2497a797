package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Checksum returns the hex SHA-256 digest of a document's bytes. It is
// the change-detection key for incremental syncs.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// markdownExts are the file extensions treated as corpus documents. Both
// are scanned, which is also how two files can collide on one logical id.
var markdownExts = []string{".md", ".markdown"}

// FS implements Provider backed by the local file system.
type FS struct {
	root   string // absolute path to the corpus directory
	ignore []string
}

// NewFS creates a new FS provider rooted at the given directory. The
// directory must already exist. ignore holds doublestar glob patterns
// matched against slash-separated paths relative to the root.
func NewFS(root string, ignore ...string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("corpus: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("corpus: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus: root is not a directory: %s", abs)
	}
	for _, pat := range ignore {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("corpus: invalid ignore pattern: %s", pat)
		}
	}
	return &FS{root: abs, ignore: ignore}, nil
}

// Root returns the absolute corpus root.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the corpus root and rejects
// any result that escapes it.
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("corpus: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("corpus: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("corpus: path escapes corpus root: %s", rel)
	}
	return abs, nil
}

func (f *FS) ignored(relSlash string) bool {
	for _, pat := range f.ignore {
		if ok, _ := doublestar.Match(pat, relSlash); ok {
			return true
		}
	}
	return false
}

// IsMarkdown reports whether a file name carries a corpus extension.
func IsMarkdown(name string) bool {
	for _, ext := range markdownExts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// List walks dir (relative to root) and returns metadata for every
// Markdown file, skipping dot-directories and ignored paths. WalkDir
// visits entries in lexical order, so traversal order is deterministic.
func (f *FS) List(dir string) ([]FileInfo, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []FileInfo
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != base && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsMarkdown(d.Name()) {
			return nil
		}
		rel, _ := filepath.Rel(f.root, p)
		relSlash := filepath.ToSlash(rel)
		if f.ignored(relSlash) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out = append(out, FileInfo{
			Path:      relSlash,
			Checksum:  Checksum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("corpus: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a corpus file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("corpus: read %s: %w", path, err)
	}
	return data, nil
}
