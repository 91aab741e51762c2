package api

import (
	"net/http"
	"strings"

	"github.com/samber/lo"

	"github.com/zoravur/bookshelf-live/internal/store"
)

type tagRequest struct {
	Name string `json:"name" validate:"required,min=1,max=50"`
}

type imageRequest struct {
	Prompt string  `json:"prompt" validate:"required,min=1,max=500"`
	URL    string  `json:"url" validate:"required,url"`
	TagIDs []int64 `json:"tag_ids" validate:"dive,gt=0"`
}

type createdID struct {
	ID int64 `json:"id"`
}

func (h *Handlers) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.Store.ListTags(r.Context())
	if err != nil {
		writeStoreError(w, r, "Tag", 0, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (h *Handlers) createTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := h.Store.CreateTag(r.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		writeStoreError(w, r, "Tag", 0, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) deleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Store.DeleteTag(r.Context(), id); err != nil {
		writeStoreError(w, r, "Tag", id, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted("Tag", id))
}

// listImages accepts ?tag=name to filter.
func (h *Handlers) listImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.Store.ListImages(r.Context(), r.URL.Query().Get("tag"))
	if err != nil {
		writeStoreError(w, r, "Image", 0, err)
		return
	}
	writeJSON(w, http.StatusOK, images)
}

func (h *Handlers) listImageIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Store.ListImageIDs(r.Context())
	if err != nil {
		writeStoreError(w, r, "Image", 0, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (h *Handlers) getImage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	img, err := h.Store.GetImage(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "Image", id, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

func (h *Handlers) createImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id, err := h.Store.CreateImage(r.Context(), store.ImageFields{
		Prompt: req.Prompt,
		URL:    req.URL,
		TagIDs: lo.Uniq(req.TagIDs),
	})
	if err != nil {
		writeStoreError(w, r, "Image", 0, err)
		return
	}
	writeJSON(w, http.StatusOK, createdID{ID: id})
}

func (h *Handlers) deleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Store.DeleteImage(r.Context(), id); err != nil {
		writeStoreError(w, r, "Image", id, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted("Image", id))
}
