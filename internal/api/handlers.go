package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/zoravur/bookshelf-live/internal/imagegen"
	"github.com/zoravur/bookshelf-live/internal/live"
	"github.com/zoravur/bookshelf-live/internal/logutil"
	"github.com/zoravur/bookshelf-live/internal/store"
)

// Handlers holds shared resources injected from app.Server.
type Handlers struct {
	Store    *store.Store
	Registry *live.Registry
	Images   *imagegen.Driver
}

// health answers 503 while the database is unreachable.
func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		logutil.FromContext(r.Context()).Warn("database ping failed", zap.Error(err))
		writeDetail(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type bookRequest struct {
	Title       string `json:"title" validate:"required,min=1"`
	Author      string `json:"author" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"required,min=1,max=100"`
	Rating      *int   `json:"rating" validate:"required,min=0,max=100"`
}

func (b bookRequest) book() store.Book {
	return store.Book{Title: b.Title, Author: b.Author, Description: b.Description, Rating: *b.Rating}
}

func (h *Handlers) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.Store.ListBooks(r.Context())
	if err != nil {
		writeStoreError(w, r, "Book", 0, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *Handlers) getBook(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	b, err := h.Store.GetBook(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "Book", id, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) createBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b, err := h.Store.CreateBook(r.Context(), req.book())
	if err != nil {
		writeStoreError(w, r, "Book", 0, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) updateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req bookRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b, err := h.Store.UpdateBook(r.Context(), id, req.book())
	if err != nil {
		writeStoreError(w, r, "Book", id, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Store.DeleteBook(r.Context(), id); err != nil {
		writeStoreError(w, r, "Book", id, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted("Book", id))
}
