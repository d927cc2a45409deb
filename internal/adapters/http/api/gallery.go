package api

import (
	"net/http"

	"github.com/okian/faceoff/internal/domain/model"
)

// GalleryHandler handles per-owner listings.
type GalleryHandler struct {
	deps GalleryDependencies
}

// NewGalleryHandler creates a new gallery handler.
func NewGalleryHandler(deps GalleryDependencies) *GalleryHandler {
	return &GalleryHandler{deps: deps}
}

// HandleGetGallery handles GET /gallery/{owner} requests. An owner with no
// items gets an empty list.
func (h *GalleryHandler) HandleGetGallery(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_gallery"
	items, err := h.deps.Gallery(r.Context(), r.PathValue("owner"))
	if err != nil {
		writeRankingError(w, op, err)
		return
	}
	if items == nil {
		items = []model.Standing{}
	}
	writeJSON(w, http.StatusOK, items)
}
