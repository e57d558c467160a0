package web

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/starford/sever/internal/storage"
)

// AssetHandler serves non-markdown files (images, attachments) referenced by
// pages, straight from the content root.
type AssetHandler struct {
	store storage.Provider
}

// NewAssetHandler creates a handler over the content root.
func NewAssetHandler(store storage.Provider) *AssetHandler {
	return &AssetHandler{store: store}
}

// ServeFile writes the file at rel, or 404 if it is missing, a directory, or
// outside the content root.
func (h *AssetHandler) ServeFile(w http.ResponseWriter, r *http.Request, rel string) {
	info, err := h.store.Stat(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if info.IsDir() {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	abs, err := h.store.Abs(rel)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, abs)
}
