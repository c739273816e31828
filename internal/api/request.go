package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// ParsePage reads ?skip=&limit= with defaults 0/50; limit is capped at 100.
func ParsePage(r *http.Request) (types.Page, error) {
	page := types.Page{Skip: 0, Limit: DefaultLimit}
	q := r.URL.Query()
	if s := q.Get("skip"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return page, types.NewValidationError("skip", "must be a non-negative integer")
		}
		page.Skip = v
	}
	if s := q.Get("limit"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil || v == 0 {
			return page, types.NewValidationError("limit", "must be a positive integer")
		}
		page.Limit = min(v, MaxLimit)
	}
	return page, nil
}

// URLParamID parses a positive int64 chi URL parameter.
func URLParamID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, types.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

// QueryBool returns nil when key is absent.
func QueryBool(r *http.Request, key string) (*bool, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, types.NewValidationError(key, "must be a boolean")
	}
	return &v, nil
}

// QueryID returns nil when key is absent.
func QueryID(r *http.Request, key string) (*int64, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return nil, types.NewValidationError(key, "must be a positive integer")
	}
	return &v, nil
}

// ParseMultipartForm caps the request body at maxBytes and parses it, keeping up to
// 8 MiB of file data in memory.
func ParseMultipartForm(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return types.NewValidationError("body", "invalid multipart form: "+err.Error())
	}
	return nil
}
