package api

import (
	"net/http"

	"github.com/zoravur/bookshelf-live/internal/store"
)

type userRequest struct {
	Username string `json:"username" validate:"required,min=1,max=50"`
	Email    string `json:"email" validate:"required,email"`
}

func (u userRequest) user() store.User {
	return store.User{Username: u.Username, Email: u.Email}
}

type reviewRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Rating *int   `json:"rating" validate:"required,min=0,max=100"`
	Body   string `json:"body" validate:"max=1000"`
}

func (h *Handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeStoreError(w, r, "User", 0, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handlers) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	u, err := h.Store.GetUser(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "User", id, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) createUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeBody(w, r, &req) {
		return
	}
	u, err := h.Store.CreateUser(r.Context(), req.user())
	if err != nil {
		writeStoreError(w, r, "User", 0, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req userRequest
	if !decodeBody(w, r, &req) {
		return
	}
	u, err := h.Store.UpdateUser(r.Context(), id, req.user())
	if err != nil {
		writeStoreError(w, r, "User", id, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Store.DeleteUser(r.Context(), id); err != nil {
		writeStoreError(w, r, "User", id, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted("User", id))
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	bookID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	reviews, err := h.Store.ListReviews(r.Context(), bookID)
	if err != nil {
		writeStoreError(w, r, "Book", bookID, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (h *Handlers) createReview(w http.ResponseWriter, r *http.Request) {
	bookID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rv, err := h.Store.CreateReview(r.Context(), store.Review{
		BookID: bookID,
		UserID: req.UserID,
		Rating: *req.Rating,
		Body:   req.Body,
	})
	if err != nil {
		writeStoreError(w, r, "Book", bookID, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (h *Handlers) deleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Store.DeleteReview(r.Context(), id); err != nil {
		writeStoreError(w, r, "Review", id, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted("Review", id))
}
