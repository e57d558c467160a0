// Package wikiservice implements the catalog and page-view use cases on top
// of the catalog cache, content storage and the markdown renderer.
package wikiservice

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/sever/internal/apperr"
	"github.com/starford/sever/internal/catalog"
	"github.com/starford/sever/internal/models"
	"github.com/starford/sever/internal/pagecache"
	"github.com/starford/sever/internal/render"
	"github.com/starford/sever/internal/storage"
)

// CatalogLoader returns the current catalog tree.
type CatalogLoader interface {
	Load(ctx context.Context) (*models.Directory, error)
}

// PageCache stores rendered HTML keyed by path and a checksum of the source
// and render options.
type PageCache interface {
	Get(path, checksum string) (string, bool, error)
	Put(path, checksum, html string) error
	Delete(path string) error
}

// Page is a rendered markdown document.
type Page struct {
	Path     string `json:"path"`
	Title    string `json:"title"`
	HTML     string `json:"html"`
	Checksum string `json:"checksum"`
	Encoding string `json:"encoding"`
}

// Service coordinates catalog, storage and rendering.
type Service struct {
	catalog  CatalogLoader
	store    storage.Provider
	renderer *render.Renderer
	cache    PageCache
	logger   *slog.Logger
}

// NewService creates a new wiki service. cache may be nil to disable render
// caching.
func NewService(cat CatalogLoader, store storage.Provider, renderer *render.Renderer, cache PageCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{catalog: cat, store: store, renderer: renderer, cache: cache, logger: logger}
}

// Renderer returns the markdown renderer.
func (s *Service) Renderer() *render.Renderer {
	return s.renderer
}

// Catalog returns the cached catalog, building it on first use.
func (s *Service) Catalog(ctx context.Context) (*models.Directory, error) {
	return s.catalog.Load(ctx)
}

// ReadRaw returns the decoded source text of a page.
func (s *Service) ReadRaw(_ context.Context, p string) (string, error) {
	data, err := s.read(path.Clean(p))
	if err != nil {
		return "", err
	}
	text, _, err := render.Decode(data)
	return text, err
}

// ViewPage reads, decodes and renders the page at p. Missing files,
// directories and paths outside the content root yield apperr.ErrNotFound.
// The returned Path is cleaned, so aliases like "a/./b.md" map to one page.
func (s *Service) ViewPage(_ context.Context, p string) (*Page, error) {
	p = path.Clean(p)
	data, err := s.read(p)
	if err != nil {
		return nil, err
	}
	text, enc, err := render.Decode(data)
	if err != nil {
		return nil, err
	}
	sum := pagecache.Checksum(data)

	html, err := s.renderCached(p, s.cacheKey(data), text)
	if err != nil {
		return nil, err
	}

	return &Page{
		Path:     p,
		Title:    pageTitle(p, text),
		HTML:     html,
		Checksum: sum,
		Encoding: enc,
	}, nil
}

// Forget drops any cached rendering of p.
func (s *Service) Forget(p string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(p); err != nil {
		s.logger.Warn("render cache delete failed", slog.String("path", p), slog.String("error", err.Error()))
	}
}

func (s *Service) read(p string) ([]byte, error) {
	data, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// cacheKey covers the source bytes and the renderer options that shape the
// HTML, so changing either misses the cache.
func (s *Service) cacheKey(data []byte) string {
	fp := s.renderer.Options().Fingerprint()
	keyed := make([]byte, 0, len(fp)+1+len(data))
	keyed = append(keyed, fp...)
	keyed = append(keyed, '\n')
	keyed = append(keyed, data...)
	return pagecache.Checksum(keyed)
}

// renderCached consults the render cache before converting text. Cache
// failures are logged and never fail the request.
func (s *Service) renderCached(p, key, text string) (string, error) {
	if s.cache != nil {
		html, ok, err := s.cache.Get(p, key)
		if err != nil {
			s.logger.Warn("render cache read failed", slog.String("path", p), slog.String("error", err.Error()))
		} else if ok {
			return html, nil
		}
	}

	out, err := s.renderer.Render([]byte(text))
	if err != nil {
		return "", err
	}
	html := string(out)

	if s.cache != nil {
		if err := s.cache.Put(p, key, html); err != nil {
			s.logger.Warn("render cache write failed", slog.String("path", p), slog.String("error", err.Error()))
		}
	}
	return html, nil
}

func pageTitle(p, text string) string {
	first, _, _ := strings.Cut(text, "\n")
	if title, ok := catalog.HeadingTitle(first); ok {
		return title
	}
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}
