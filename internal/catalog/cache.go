package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/starford/sever/internal/apperr"
	"github.com/starford/sever/internal/models"
)

const lockRetryDelay = 50 * time.Millisecond

// Scanner produces a fresh catalog tree.
type Scanner interface {
	Build(ctx context.Context) (*models.Directory, error)
}

// Cache is a one-shot, file-backed catalog cache. Once the artifact exists it
// is returned verbatim; changes to the content root are not picked up until
// the artifact is removed (see Invalidate).
type Cache struct {
	path    string
	scanner Scanner
	logger  *slog.Logger
}

// NewCache creates a Cache storing its artifact at path.
func NewCache(path string, scanner Scanner, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{path: path, scanner: scanner, logger: logger}
}

// Path returns the artifact location.
func (c *Cache) Path() string {
	return c.path
}

// Load returns the cached catalog, scanning and persisting it first if the
// artifact does not exist yet. A corrupt artifact is an error wrapping
// apperr.ErrCorruptCatalog; it is never rebuilt silently.
func (c *Cache) Load(ctx context.Context) (*models.Directory, error) {
	root, ok, err := c.read()
	if err != nil || ok {
		return root, err
	}

	lock := flock.New(c.path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("catalog: lock artifact: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("catalog: lock artifact: %s busy", c.path)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			c.logger.Warn("catalog: unlock failed", slog.String("error", err.Error()))
		}
	}()

	// Another process may have built it while we waited.
	root, ok, err = c.read()
	if err != nil || ok {
		return root, err
	}

	start := time.Now()
	root, err = c.scanner.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: build: %w", err)
	}
	if err := c.write(root); err != nil {
		return nil, err
	}

	c.logger.Info("catalog: built",
		slog.String("artifact", c.path),
		slog.Duration("took", time.Since(start)))
	return root, nil
}

// Invalidate removes the artifact so the next Load rescans.
func (c *Cache) Invalidate() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("catalog: remove artifact: %w", err)
	}
	return nil
}

func (c *Cache) read() (*models.Directory, bool, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("catalog: read artifact: %w", err)
	}
	root, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %w", apperr.ErrCorruptCatalog, c.path, err)
	}
	return root, true, nil
}

// write atomically replaces the artifact: tmp file -> fsync -> rename.
func (c *Cache) write(root *models.Directory) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("catalog: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".sever-catalog-*")
	if err != nil {
		return fmt.Errorf("catalog: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := Encode(tmp, root); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("catalog: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("catalog: close temp: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return fmt.Errorf("catalog: rename: %w", err)
	}
	success = true
	return nil
}
