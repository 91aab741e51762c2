package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zoravur/bookshelf-live/internal/logutil"
	"github.com/zoravur/bookshelf-live/internal/store"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldError mirrors the shape FastAPI clients already parse.
type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type detail struct {
	Detail any `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, msg any) {
	writeJSON(w, status, detail{Detail: msg})
}

// decodeBody reads JSON into dst and validates it. On failure it has
// already written the response.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return false
		}
		out := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldError{
				Loc:  []string{"body", fe.Field()},
				Msg:  validationMessage(fe),
				Type: fe.Tag(),
			})
		}
		writeDetail(w, http.StatusUnprocessableEntity, out)
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "email":
		return "value is not a valid email address"
	}
	return "failed " + fe.Tag() + " validation"
}

// idParam parses a path id, answering 422 like a typed path parameter would.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, []fieldError{{
			Loc:  []string{"path", name},
			Msg:  "value is not a valid integer",
			Type: "int_parsing",
		}})
		return 0, false
	}
	return id, true
}

// writeStoreError maps store sentinels to statuses. entity names the row in
// not-found messages ("Book with id 3 not found").
func writeStoreError(w http.ResponseWriter, r *http.Request, entity string, id int64, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("%s with id %d not found", entity, id))
	case errors.Is(err, store.ErrConflict):
		writeDetail(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInvalidReference):
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logutil.FromContext(r.Context()).Error("store failure",
			zap.String("entity", entity),
			zap.Int64("id", id),
			zap.Error(err),
		)
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}

func deleted(entity string, id int64) string {
	return fmt.Sprintf("%s with id %d deleted", entity, id)
}
