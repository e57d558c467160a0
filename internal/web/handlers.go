package web

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sever/internal/apperr"
	"github.com/starford/sever/internal/catalog"
	"github.com/starford/sever/internal/models"
	"github.com/starford/sever/internal/wikiservice"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

const notFoundText = "File not found"

// Handler holds the route handlers.
type Handler struct {
	svc        *wikiservice.Service
	assets     *AssetHandler
	liveReload bool
}

// NewHandler creates a new Handler.
func NewHandler(svc *wikiservice.Service, assets *AssetHandler, liveReload bool) *Handler {
	return &Handler{svc: svc, assets: assets, liveReload: liveReload}
}

// wildcardPath extracts the content path after the route prefix. Encoded
// slashes and non-ASCII names are unescaped.
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

type treeItem struct {
	Label    string
	Href     string
	Dir      bool
	Children []treeItem
}

func buildTree(dir *models.Directory, locale string) []treeItem {
	if dir == nil {
		return nil
	}
	items := make([]treeItem, 0, len(dir.Entries))
	for _, e := range dir.Entries {
		switch n := e.Node.(type) {
		case *models.Document:
			items = append(items, treeItem{Label: n.Title(locale), Href: viewHref(n.Path, locale)})
		case *models.Directory:
			items = append(items, treeItem{Label: n.Meta.Name(locale), Dir: true, Children: buildTree(n, locale)})
		}
	}
	return items
}

func viewHref(p, locale string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	href := "/view/" + strings.Join(segs, "/")
	if locale == models.LocaleEnUS {
		href += "?lang=" + models.LocaleEnUS
	}
	return href
}

type homeData struct {
	Prefs Prefs
	Title string
	Tree  []treeItem
}

type viewData struct {
	Prefs      Prefs
	Title      string
	Path       string
	Content    template.HTML
	Math       bool
	LiveReload bool
}

func (h *Handler) renderHTML(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("template execute failed", slog.String("template", name), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// Home handles GET /: the catalog as a navigable tree.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	prefs := PrefsFrom(r.Context())
	root, err := h.svc.Catalog(r.Context())
	if err != nil {
		slog.Error("load catalog failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	title := "Wiki"
	if root != nil {
		title = root.Meta.Name(prefs.Locale)
	}
	h.renderHTML(w, "index.html", homeData{Prefs: prefs, Title: title, Tree: buildTree(root, prefs.Locale)})
}

// View handles GET /view/*. Markdown pages are rendered; any other file is
// served as-is so pages can reference images next to them.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	p := wildcardPath(r)
	if p == "" {
		http.Error(w, notFoundText, http.StatusNotFound)
		return
	}
	if path.Ext(p) != catalog.PageExt {
		h.assets.ServeFile(w, r, p)
		return
	}

	page, err := h.svc.ViewPage(r.Context(), p)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.Error(w, notFoundText, http.StatusNotFound)
			return
		}
		slog.Error("view page failed", slog.String("path", p), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.renderHTML(w, "view.html", viewData{
		Prefs:      PrefsFrom(r.Context()),
		Title:      page.Title,
		Path:       page.Path,
		Content:    template.HTML(page.HTML),
		Math:       h.svc.Renderer().Options().Math,
		LiveReload: h.liveReload,
	})
}

// Theme handles GET /theme/{mode}: stores the preference and sends the reader
// back to the page they came from.
func (h *Handler) Theme(w http.ResponseWriter, r *http.Request) {
	mode := chi.URLParam(r, "mode")
	if mode != ThemeLight && mode != ThemeDark {
		http.Error(w, "unknown theme", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     ThemeCookie,
		Value:    mode,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	target := "/"
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Path != "" && (ref.Host == "" || ref.Host == r.Host) {
		target = ref.RequestURI()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// CatalogJSON handles GET /api/catalog with the artifact layout.
func (h *Handler) CatalogJSON(w http.ResponseWriter, r *http.Request) {
	root, err := h.svc.Catalog(r.Context())
	if err != nil {
		slog.Error("load catalog failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	var buf bytes.Buffer
	if err := catalog.Encode(&buf, root); err != nil {
		slog.Error("encode catalog failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// PageJSON handles GET /api/pages/*.
func (h *Handler) PageJSON(w http.ResponseWriter, r *http.Request) {
	p := wildcardPath(r)
	if path.Ext(p) != catalog.PageExt {
		writeJSON(w, http.StatusNotFound, errorBody("page not found"))
		return
	}
	page, err := h.svc.ViewPage(r.Context(), p)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("page not found"))
			return
		}
		slog.Error("view page failed", slog.String("path", p), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, page)
}
