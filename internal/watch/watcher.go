// Package watch reports markdown page changes under the content root.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change kinds passed to Callback.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// DefaultDebounce coalesces bursts of editor writes to one event per page.
const DefaultDebounce = 150 * time.Millisecond

// Callback receives a change kind and the slash-separated path of the page
// relative to the content root.
type Callback func(kind, path string)

// Watch starts an fsnotify watcher on root and reports .md changes until ctx
// is cancelled. Directories created at runtime are added to the watch list
// and the pages already inside them reported as created.
func Watch(ctx context.Context, root string, debounce time.Duration, logger *slog.Logger, cb Callback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	logger.Info("watcher: started", slog.String("root", root))

	// Pages seen so far, so removing a directory can report the pages it held.
	known := make(map[string]struct{})
	for _, p := range pagesUnder(root) {
		known[p] = struct{}{}
	}

	pending := make(map[string]string)
	timer := time.NewTimer(debounce)
	timer.Stop()

	queue := func(kind, abs string) {
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return
		}
		if kind == Deleted {
			delete(known, abs)
		} else {
			known[abs] = struct{}{}
		}
		rel = filepath.ToSlash(rel)
		pending[rel] = merge(pending[rel], kind)
		timer.Reset(debounce)
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("watcher: stopped")
			return nil

		case <-timer.C:
			for rel, kind := range pending {
				logger.Debug("watcher: page changed", slog.String("path", rel), slog.String("op", kind))
				if cb != nil {
					cb(kind, rel)
				}
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					for _, p := range pagesUnder(ev.Name) {
						queue(Created, p)
					}
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, ".md") {
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					prefix := ev.Name + string(filepath.Separator)
					for p := range known {
						if strings.HasPrefix(p, prefix) {
							queue(Deleted, p)
						}
					}
				}
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				queue(Created, ev.Name)
			case ev.Op&fsnotify.Write != 0:
				queue(Updated, ev.Name)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// fsnotify reports Rename on the old path; the new path
				// arrives as a separate Create.
				queue(Deleted, ev.Name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// merge folds a new change into the one already pending for a page.
func merge(prev, next string) string {
	switch {
	case prev == "":
		return next
	case next == Deleted:
		return Deleted
	case prev == Created:
		return Created
	case prev == Deleted && next == Created:
		return Updated
	default:
		return next
	}
}

func pagesUnder(dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && strings.HasSuffix(p, ".md") {
			out = append(out, p)
		}
		return nil
	})
	return out
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
