// Package upload turns uploaded tracklist files into catalog replaces and
// keeps the on-disk catalog file in sync with the published catalog.
package upload

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/songrequest/server/internal/catalog"
	domainerrors "github.com/songrequest/server/internal/errors"
	"github.com/songrequest/server/internal/watcher"
)

// DefaultMaxSize bounds an uploaded catalog file.
const DefaultMaxSize = 8 << 20

// Catalog is the catalog store as seen by uploads.
type Catalog interface {
	Replace(ctx context.Context, source string, r io.Reader) (catalog.Result, error)
	Loaded() bool
}

// Service applies catalog uploads.
//
// Thread safety: uploads and file reloads are serialized, so the catalog
// file on disk always holds the last successfully applied source.
type Service struct {
	catalog Catalog
	path    string
	maxSize int64
	logger  *slog.Logger

	mu       sync.Mutex
	lastHash [sha256.Size]byte
}

// Options configures a Service.
type Options struct {
	Catalog Catalog
	// Path is the catalog file kept on disk.
	Path    string
	MaxSize int64
	Logger  *slog.Logger
}

// New creates an upload service.
func New(opts Options) *Service {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		catalog: opts.Catalog,
		path:    opts.Path,
		maxSize: opts.MaxSize,
		logger:  opts.Logger,
	}
}

// Path returns the catalog file path.
func (s *Service) Path() string {
	return s.path
}

// Upload replaces the catalog with the contents of r.
// The catalog file on disk is rewritten only after the replace succeeded,
// so a rejected upload leaves both the catalog and the file unchanged.
func (s *Service) Upload(ctx context.Context, name string, r io.Reader) (catalog.Result, error) {
	data, err := s.readLimited(r)
	if err != nil {
		return catalog.Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.catalog.Replace(ctx, name, bytes.NewReader(data))
	if err != nil {
		return catalog.Result{}, err
	}

	if err := s.writeFile(data); err != nil {
		// The catalog is already live; only the restart fallback is affected.
		s.logger.Error("failed to write catalog file", "path", s.path, "error", err)
	} else {
		s.lastHash = sha256.Sum256(data)
	}

	s.logger.Info("catalog uploaded", "name", name, "tracks", result.TrackCount, "bytes", len(data))
	return result, nil
}

// ReloadFile replaces the catalog from the file on disk. It reports
// changed=false without touching the catalog when the file holds the
// source that was last applied, which is the case after our own writes.
func (s *Service) ReloadFile(ctx context.Context) (result catalog.Result, changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path) //#nosec G304 -- operator-configured catalog path
	if err != nil {
		return catalog.Result{}, false, fmt.Errorf("read catalog file: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return catalog.Result{}, false, tooLarge(s.maxSize)
	}

	hash := sha256.Sum256(data)
	if hash == s.lastHash && s.catalog.Loaded() {
		return catalog.Result{}, false, nil
	}

	result, err = s.catalog.Replace(ctx, filepath.Base(s.path), bytes.NewReader(data))
	if err != nil {
		return catalog.Result{}, false, err
	}
	s.lastHash = hash
	return result, true, nil
}

// Restore loads the catalog file when nothing was restored from storage.
// A missing file is not an error: the bot then waits for an upload.
func (s *Service) Restore(ctx context.Context) error {
	if s.catalog.Loaded() {
		return nil
	}

	result, _, err := s.ReloadFile(ctx)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("no catalog stored and no catalog file, waiting for upload", "path", s.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore catalog from %s: %w", s.path, err)
	}

	s.logger.Info("catalog restored from file", "path", s.path, "tracks", result.TrackCount)
	return nil
}

// Follow reloads the catalog whenever the watched catalog file settles after
// a change, until ctx is done. Rejected files are logged and leave the
// catalog unchanged.
func (s *Service) Follow(ctx context.Context, events <-chan watcher.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			if event.Type != watcher.EventWritten {
				s.logger.Warn("catalog file removed, keeping current catalog", "path", event.Path)
				continue
			}
			result, changed, err := s.ReloadFile(ctx)
			switch {
			case err != nil:
				s.logger.Warn("catalog file rejected, catalog unchanged", "path", event.Path, "error", err)
			case changed:
				s.logger.Info("catalog reloaded from file", "path", event.Path, "tracks", result.TrackCount)
			}
		}
	}
}

func (s *Service) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, tooLarge(s.maxSize)
	}
	return data, nil
}

// writeFile replaces the catalog file atomically via a temp file and rename.
func (s *Service) writeFile(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".catalog-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename catalog file: %w", err)
	}
	return nil
}

func tooLarge(limit int64) error {
	return domainerrors.Validationf("catalog file exceeds %d bytes", limit)
}
