// Package fsio is the file service every command goes through.
//
// Reads are decorated with the shared cache (a hit skips the disk, a
// miss reads and populates); writes run inside a transaction and
// invalidate the affected cache keys afterward, so a reader never
// sees stale content after a mutation this process performed.
//
// All paths are interpreted relative to a configured root directory
// and rejected if they escape it.
package fsio

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/avilab/fscmd/internal/cache"
	"github.com/avilab/fscmd/internal/txn"
	"github.com/rs/zerolog"
)

// statTTL keeps metadata lookups cheap without letting them go stale
// for long; content entries use the cache's default TTL.
const statTTL = 30 * time.Second

// searchLimit caps how many matches a single search returns.
const searchLimit = 1000

// FileInfo is the metadata view returned by Stat.
type FileInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	Mode    string    `json:"mode"`
	ModTime time.Time `json:"mod_time"`
	IsDir   bool      `json:"is_dir"`
}

// DirEntry is one row of a directory listing.
type DirEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// Service performs all filesystem work on behalf of commands.
type Service struct {
	root  string
	cache *cache.Cache
	log   zerolog.Logger

	// txnOpts are threaded into every transaction the service opens;
	// tests use them to relocate the backup root.
	txnOpts []txn.Option
}

// Option configures a Service.
type Option func(*Service)

// WithTxnOptions sets options applied to every transaction opened by
// the service.
func WithTxnOptions(opts ...txn.Option) Option {
	return func(s *Service) { s.txnOpts = opts }
}

// New creates a file service rooted at root. The cache is shared and
// owned by the caller (the service container), not the service.
func New(root string, c *cache.Cache, log zerolog.Logger, opts ...Option) (*Service, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("inspecting root %q: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %q is not a directory", abs)
	}

	s := &Service{root: abs, cache: c, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the absolute directory the service operates under.
func (s *Service) Root() string { return s.root }

// resolve maps a caller-supplied path onto the root and rejects
// anything that escapes it.
func (s *Service) resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("empty path")
	}
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(s.root, abs)
	}
	abs = filepath.Clean(abs)
	if abs != s.root && !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the served root", path)
	}
	return abs, nil
}

// ReadFile returns the file's content, serving repeated reads from
// the cache.
func (s *Service) ReadFile(path string) ([]byte, error) {
	abs, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	key := contentKey(abs)
	if data, ok := s.cache.Get(key); ok {
		return data, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, data)
	return data, nil
}

// Stat returns file metadata, cached briefly.
func (s *Service) Stat(path string) (FileInfo, error) {
	abs, err := s.resolve(path)
	if err != nil {
		return FileInfo{}, err
	}

	key := statKey(abs)
	if data, ok := s.cache.Get(key); ok {
		var fi FileInfo
		if err := json.Unmarshal(data, &fi); err == nil {
			return fi, nil
		}
		// Unreadable cached entry: drop it and fall through to disk.
		s.cache.Delete(key)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return FileInfo{}, err
	}
	fi := FileInfo{
		Name:    info.Name(),
		Path:    s.relPath(abs),
		Size:    info.Size(),
		Mode:    info.Mode().String(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}
	if data, err := json.Marshal(fi); err == nil {
		s.cache.SetWithTTL(key, data, statTTL)
	}
	return fi, nil
}

// ListDir returns the entries of a directory sorted by name.
func (s *Service) ListDir(path string) ([]DirEntry, error) {
	abs, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}

	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		de := DirEntry{Name: e.Name(), IsDir: e.IsDir()}
		if info, err := e.Info(); err == nil && !e.IsDir() {
			de.Size = info.Size()
		}
		out = append(out, de)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// WriteFile creates or overwrites a file transactionally.
func (s *Service) WriteFile(path string, content []byte) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	if content == nil {
		content = []byte{}
	}

	res := s.newTxn().Write(abs, content).Commit()
	if !res.Success {
		return res.Err
	}
	s.invalidate(abs)
	return nil
}

// EditFile applies ordered literal replacements to an existing file
// transactionally; a patch that does not match leaves the file as-is.
func (s *Service) EditFile(path string, edits []txn.Edit) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}

	res := s.newTxn().Update(abs, edits).Commit()
	if !res.Success {
		return res.Err
	}
	s.invalidate(abs)
	return nil
}

// DeleteFile removes a file transactionally.
func (s *Service) DeleteFile(path string) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}

	res := s.newTxn().Remove(abs).Commit()
	if !res.Success {
		return res.Err
	}
	s.invalidate(abs)
	return nil
}

// MoveFile relocates a file as one atomic unit: write the destination,
// remove the source. A failure on either side restores the original
// layout.
func (s *Service) MoveFile(src, dst string) error {
	srcAbs, err := s.resolve(src)
	if err != nil {
		return err
	}
	dstAbs, err := s.resolve(dst)
	if err != nil {
		return err
	}
	// A write+remove pair on one path would delete the file while the
	// commit reports success.
	if srcAbs == dstAbs {
		return fmt.Errorf("%q and %q are the same file", src, dst)
	}

	content, err := os.ReadFile(srcAbs)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	res := s.newTxn().Write(dstAbs, content).Remove(srcAbs).Commit()
	if !res.Success {
		return res.Err
	}
	s.invalidate(srcAbs)
	s.invalidate(dstAbs)
	return nil
}

// CreateDir makes a directory, parents included. Idempotent.
func (s *Service) CreateDir(path string) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	return os.MkdirAll(abs, 0o755)
}

// Search walks the tree under dir collecting files whose name matches
// the glob pattern. Hidden directories are skipped; results are
// root-relative and capped at searchLimit.
func (s *Service) Search(dir, pattern string) ([]string, error) {
	abs, err := s.resolve(dir)
	if err != nil {
		return nil, err
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var matches []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != abs {
				return filepath.SkipDir
			}
			return nil
		}
		ok, _ := filepath.Match(pattern, d.Name())
		if ok {
			matches = append(matches, s.relPath(path))
			if len(matches) >= searchLimit {
				return fs.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func (s *Service) newTxn() *txn.Transaction {
	opts := append([]txn.Option{txn.WithLogger(s.log)}, s.txnOpts...)
	return txn.New(opts...)
}

func (s *Service) invalidate(abs string) {
	s.cache.Delete(contentKey(abs))
	s.cache.Delete(statKey(abs))
}

func (s *Service) relPath(abs string) string {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return abs
	}
	return rel
}

func contentKey(abs string) string { return "file:" + abs }
func statKey(abs string) string    { return "stat:" + abs }
