// Package web serves the wiki over HTTP: HTML pages for readers and a small
// JSON API for tooling.
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sever/internal/storage"
	"github.com/starford/sever/internal/wikiservice"
)

// NewRouter creates a chi router with the reader pages and the JSON API.
// sseHandler, if non-nil, is mounted at GET /api/events and enables live
// reload on the view page.
func NewRouter(svc *wikiservice.Service, store storage.Provider, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, NewAssetHandler(store), sseHandler != nil)

	r := chi.NewRouter()
	r.Use(PrefsMiddleware)

	r.Get("/", h.Home)
	r.Get("/view/*", h.View)
	r.Get("/theme/{mode}", h.Theme)

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", h.CatalogJSON)
		r.Get("/pages/*", h.PageJSON)
		if sseHandler != nil {
			r.Get("/events", sseHandler.ServeHTTP)
		}
	})

	return r
}
