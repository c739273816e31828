package category

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-shop-backend/internal/storage"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func newRouter(h *HandlerImpl) http.Handler {
	r := chi.NewRouter()
	r.Get("/categories", h.ListCategories)
	r.Post("/categories", h.CreateCategory)
	r.Get("/categories/subcategory", h.ListSubCategories)
	r.Post("/categories/subcategory", h.CreateSubCategory)
	r.Get("/categories/{id}", h.GetCategory)
	r.Put("/categories/{id}", h.UpdateCategory)
	r.Delete("/categories/{id}", h.DeleteCategory)
	return r
}

func TestCategoryHandlerJSONCreate(t *testing.T) {
	repo := new(MockCategoryRepo)
	h := NewHandlerImpl(NewCategoryService(repo, nil, 1<<20, discardLogger()), 1<<20, discardLogger())

	repo.On("CreateCategory", mock.Anything, types.Category{Name: "Watches", Slug: "watches"}).
		Return(&types.Category{ID: 7, Name: "Watches", Slug: "watches", Subcategories: []types.SubCategory{}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(`{"name":"Watches"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var got types.Category
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, int64(7), got.ID)
}

func TestCategoryHandlerMultipartCreate(t *testing.T) {
	repo := new(MockCategoryRepo)
	store, err := storage.NewDiskStorage(t.TempDir(), "/static")
	require.NoError(t, err)
	h := NewHandlerImpl(NewCategoryService(repo, store, 1<<20, discardLogger()), 1<<20, discardLogger())

	repo.On("CreateCategory", mock.Anything, mock.MatchedBy(func(c types.Category) bool {
		return c.Slug == "hats" && c.Image != nil && strings.HasPrefix(*c.Image, "/static/categories/")
	})).Return(&types.Category{ID: 3, Name: "Hats", Slug: "hats"}, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Hats"))
	fw, err := mw.CreateFormFile("image", "hat.png")
	require.NoError(t, err)
	_, err = fw.Write(pngHeader)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/categories", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	repo.AssertExpectations(t)
}

func TestCategoryHandlerSlugConflict(t *testing.T) {
	repo := new(MockCategoryRepo)
	h := NewHandlerImpl(NewCategoryService(repo, nil, 0, discardLogger()), 0, discardLogger())
	repo.On("CreateCategory", mock.Anything, mock.Anything).Return(nil, types.NewConflictError(categoryConflict))

	req := httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(`{"name":"Shoes"}`))
	rr := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), categoryConflict)
}

func TestCategoryHandlerGetAndDelete(t *testing.T) {
	repo := new(MockCategoryRepo)
	h := NewHandlerImpl(NewCategoryService(repo, nil, 0, discardLogger()), 0, discardLogger())

	repo.On("GetCategory", mock.Anything, int64(404)).Return(nil, types.ErrNotFound)
	repo.On("DeleteCategory", mock.Anything, int64(5)).Return(&types.Category{ID: 5}, nil)

	rr := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/categories/404", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	newRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/categories/5", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	newRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/categories/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCategoryHandlerListSubCategoriesFilter(t *testing.T) {
	repo := new(MockCategoryRepo)
	h := NewHandlerImpl(NewCategoryService(repo, nil, 0, discardLogger()), 0, discardLogger())

	repo.On("ListSubCategories", mock.Anything, mock.MatchedBy(func(id *int64) bool {
		return id != nil && *id == 2
	})).Return([]types.SubCategory{{ID: 1, Name: "Boots", Slug: "boots", CategoryID: 2}}, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/categories/subcategory?category_id=2", nil).WithContext(context.Background())
	newRouter(h).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var subs []types.SubCategory
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&subs))
	assert.Len(t, subs, 1)
}
