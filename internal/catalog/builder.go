// Package catalog scans the content root into a navigable tree and caches it
// as a single JSON artifact.
package catalog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/starford/sever/internal/models"
)

const (
	// SettingsFile is the reserved per-directory metadata file name.
	SettingsFile = "settings.json"
	// PageExt marks files that are listed as pages.
	PageExt = ".md"

	headingMarker = "# "
	utf8BOM       = "\ufeff"
)

// Builder walks a content root and produces the catalog tree.
type Builder struct {
	root   string
	logger *slog.Logger
}

// NewBuilder creates a Builder for root. Swallowed settings and title errors
// are reported to logger at warn level.
func NewBuilder(root string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{root: root, logger: logger}
}

// Build scans the content root. It returns nil when the root has neither a
// display name nor any content.
//
// Below the root, a directory is kept when it holds at least one entry, or
// when its settings.json gives it a non-empty zh_CN name. Directories without
// either are pruned, and the pruning propagates upward.
func (b *Builder) Build(ctx context.Context) (*models.Directory, error) {
	return b.scan(ctx, b.root, true)
}

func (b *Builder) scan(ctx context.Context, dir string, isRoot bool) (*models.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: read dir %s: %w", dir, err)
	}

	meta, named := b.readMeta(dir)
	node := &models.Directory{Meta: meta}

	for _, e := range entries {
		name := e.Name()
		if name == SettingsFile {
			continue
		}
		full := filepath.Join(dir, name)

		isDir := e.IsDir()
		if e.Type()&os.ModeSymlink != 0 {
			info, statErr := os.Stat(full)
			if statErr != nil {
				b.logger.Warn("catalog: broken symlink skipped",
					slog.String("path", full), slog.String("error", statErr.Error()))
				continue
			}
			isDir = info.IsDir()
		}

		switch {
		case isDir:
			sub, err := b.scan(ctx, full, false)
			if err != nil {
				return nil, err
			}
			if sub == nil {
				continue
			}
			b.put(node, name, sub, full)

		case strings.HasSuffix(name, PageExt):
			doc, err := b.document(full, name)
			if err != nil {
				return nil, err
			}
			b.put(node, strings.TrimSuffix(name, PageExt), doc, full)
		}
	}

	if len(node.Entries) > 0 {
		return node, nil
	}
	if node.Meta.ZhCN != "" && (isRoot || named) {
		return node, nil
	}
	return nil, nil
}

func (b *Builder) put(dir *models.Directory, key string, n models.Node, full string) {
	if dir.Put(key, n) {
		b.logger.Warn("catalog: duplicate entry name, later entry wins",
			slog.String("name", key), slog.String("path", full))
	}
}

func (b *Builder) document(full, name string) (*models.Document, error) {
	rel, err := filepath.Rel(b.root, full)
	if err != nil {
		return nil, fmt.Errorf("catalog: relative path for %s: %w", full, err)
	}
	stem := strings.TrimSuffix(name, PageExt)

	title, err := firstLineTitle(full)
	if err != nil {
		b.logger.Warn("catalog: title extraction failed, using file name",
			slog.String("path", full), slog.String("error", err.Error()))
	}
	if title == "" {
		title = stem
	}

	return &models.Document{
		ZhCN: title,
		EnUS: stem,
		Path: filepath.ToSlash(rel),
	}, nil
}

// readMeta returns the directory's display names, applying settings.json
// overrides when the file is present and well formed. The flag reports
// whether the overrides were applied.
func (b *Builder) readMeta(dir string) (models.Meta, bool) {
	base := filepath.Base(dir)
	meta := models.Meta{ZhCN: base, EnUS: base}

	path := filepath.Join(dir, SettingsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			b.logger.Warn("catalog: settings unreadable, using defaults",
				slog.String("path", path), slog.String("error", err.Error()))
		}
		return meta, false
	}

	overridden, err := applySettings(meta, data)
	if err != nil {
		b.logger.Warn("catalog: settings malformed, using defaults",
			slog.String("path", path), slog.String("error", err.Error()))
		return meta, false
	}
	return overridden, true
}

// applySettings merges a settings.json document into meta. Unknown keys are
// kept in Meta.Extra.
func applySettings(meta models.Meta, data []byte) (models.Meta, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return meta, err
	}
	if fields == nil {
		return meta, fmt.Errorf("settings must be a JSON object")
	}

	for key, raw := range fields {
		switch key {
		case models.LocaleZhCN:
			if err := json.Unmarshal(raw, &meta.ZhCN); err != nil {
				return meta, fmt.Errorf("%s: %w", key, err)
			}
		case models.LocaleEnUS:
			if err := json.Unmarshal(raw, &meta.EnUS); err != nil {
				return meta, fmt.Errorf("%s: %w", key, err)
			}
		default:
			var compact bytes.Buffer
			if err := json.Compact(&compact, raw); err != nil {
				return meta, fmt.Errorf("%s: %w", key, err)
			}
			if meta.Extra == nil {
				meta.Extra = make(map[string]json.RawMessage)
			}
			meta.Extra[key] = compact.Bytes()
		}
	}
	return meta, nil
}

// firstLineTitle reads only the first line of the file at path and returns
// its heading text, or "" if the line is not a level-one heading.
func firstLineTitle(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	if !utf8.ValidString(line) {
		return "", fmt.Errorf("first line is not valid UTF-8")
	}
	title, _ := HeadingTitle(line)
	return title, nil
}

// HeadingTitle returns the text of a "# " heading line.
func HeadingTitle(line string) (string, bool) {
	line = strings.TrimSpace(strings.TrimPrefix(line, utf8BOM))
	if !strings.HasPrefix(line, headingMarker) {
		return "", false
	}
	return line[len(headingMarker):], true
}
