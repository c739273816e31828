package product

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-shop-backend/internal/storage"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

type MockProductRepo struct {
	mock.Mock
}

func (m *MockProductRepo) ListProducts(ctx context.Context, filter types.ProductFilter) ([]types.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Product), args.Error(1)
}

func (m *MockProductRepo) GetProduct(ctx context.Context, id int64) (*types.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Product), args.Error(1)
}

func (m *MockProductRepo) CreateProduct(ctx context.Context, p types.Product) (*types.Product, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Product), args.Error(1)
}

func (m *MockProductRepo) UpdateProduct(ctx context.Context, id int64, changes map[string]any) (*types.Product, error) {
	args := m.Called(ctx, id, changes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Product), args.Error(1)
}

func (m *MockProductRepo) DeleteProduct(ctx context.Context, id int64) (*types.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Product), args.Error(1)
}

// recordingStore remembers deleted URLs.
type recordingStore struct {
	mu      sync.Mutex
	deleted []string
}

func (s *recordingStore) Put(_ context.Context, key, _ string, _ io.Reader, _ int64) (string, error) {
	return "/static/" + key, nil
}

func (s *recordingStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, url)
	return nil
}

var _ storage.Storage = (*recordingStore)(nil)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// imageUploads builds n parsed PNG file parts named "images".
func imageUploads(t *testing.T, n int) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for i := 0; i < n; i++ {
		fw, err := mw.CreateFormFile("images", "p.png")
		require.NoError(t, err)
		_, err = fw.Write(pngHeader)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["images"]
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewProductService(new(MockProductRepo), nil, 0, discardLogger())

	_, err := svc.CreateProduct(context.Background(), types.ProductInput{}, nil)
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "name")
	assert.Contains(t, ve.Fields, "price")

	_, err = svc.CreateProduct(context.Background(), types.ProductInput{Name: strPtr("Tee"), Price: decPtr("-1")}, nil)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "must not be negative", ve.Fields["price"])
}

func TestCreateProductStoresUploadsInOrder(t *testing.T) {
	repo := new(MockProductRepo)
	store, err := storage.NewDiskStorage(t.TempDir(), "/static")
	require.NoError(t, err)
	svc := NewProductService(repo, store, 1<<20, discardLogger())

	repo.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p types.Product) bool {
		if len(p.Images) != 3 || p.Images[0] != "/static/products/existing.png" {
			return false
		}
		for _, u := range p.Images[1:] {
			if !strings.HasPrefix(u, "/static/products/") || !strings.HasSuffix(u, ".png") {
				return false
			}
		}
		return p.Name == "Tee" && p.InStock && !p.Featured
	})).Return(&types.Product{ID: 1, Name: "Tee"}, nil)

	in := types.ProductInput{
		Name:   strPtr(" Tee "),
		Price:  decPtr("19.99"),
		Images: []string{"/static/products/existing.png"},
	}
	p, err := svc.CreateProduct(context.Background(), in, imageUploads(t, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	repo.AssertExpectations(t)
}

func TestCreateProductRemovesUploadsOnFailure(t *testing.T) {
	repo := new(MockProductRepo)
	store := &recordingStore{}
	svc := NewProductService(repo, store, 1<<20, discardLogger())
	repo.On("CreateProduct", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	_, err := svc.CreateProduct(context.Background(),
		types.ProductInput{Name: strPtr("Tee"), Price: decPtr("5")}, imageUploads(t, 2))
	require.ErrorIs(t, err, assert.AnError)
	assert.Len(t, store.deleted, 2)
}

func TestUpdateProductReplacesImageList(t *testing.T) {
	repo := new(MockProductRepo)
	store := &recordingStore{}
	svc := NewProductService(repo, store, 1<<20, discardLogger())

	repo.On("GetProduct", mock.Anything, int64(3)).Return(&types.Product{
		ID: 3, Images: []string{"/static/products/a.png", "/static/products/b.png"},
	}, nil)
	repo.On("UpdateProduct", mock.Anything, int64(3), map[string]any{
		"images": []string{"/static/products/a.png"},
	}).Return(&types.Product{ID: 3, Images: []string{"/static/products/a.png"}}, nil)

	p, err := svc.UpdateProduct(context.Background(), 3, types.ProductInput{Images: []string{"/static/products/a.png"}}, nil)
	require.NoError(t, err)
	assert.Len(t, p.Images, 1)
	assert.Equal(t, []string{"/static/products/b.png"}, store.deleted)
}

func TestUpdateProductOnlyProvidedFields(t *testing.T) {
	repo := new(MockProductRepo)
	svc := NewProductService(repo, &recordingStore{}, 0, discardLogger())
	featured := true

	repo.On("GetProduct", mock.Anything, int64(4)).Return(&types.Product{ID: 4}, nil)
	repo.On("UpdateProduct", mock.Anything, int64(4), map[string]any{
		"name":     "Hoodie",
		"featured": &featured,
	}).Return(&types.Product{ID: 4, Name: "Hoodie", Featured: true}, nil)

	_, err := svc.UpdateProduct(context.Background(), 4, types.ProductInput{Name: strPtr(" Hoodie "), Featured: &featured}, nil)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestListNewArrivalsSetsFlag(t *testing.T) {
	repo := new(MockProductRepo)
	svc := NewProductService(repo, nil, 0, discardLogger())
	page := types.Page{Skip: 0, Limit: 10}

	repo.On("ListProducts", mock.Anything, mock.MatchedBy(func(f types.ProductFilter) bool {
		return f.NewArrival != nil && *f.NewArrival && f.Page == page
	})).Return([]types.Product{{ID: 9, NewArrival: true}}, nil)

	resp, err := svc.ListNewArrivals(context.Background(), page)
	require.NoError(t, err)
	assert.Len(t, resp.Items, 1)
	assert.Equal(t, uint64(10), resp.Limit)
}
