package product

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-shop-backend/internal/api"
	"github.com/FACorreiaa/go-shop-backend/internal/storage"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

var _ ProductService = (*ProductServiceImpl)(nil)

type ProductService interface {
	ListProducts(ctx context.Context, filter types.ProductFilter) (*types.ListResponse[types.Product], error)
	ListNewArrivals(ctx context.Context, page types.Page) (*types.ListResponse[types.Product], error)
	GetProduct(ctx context.Context, id int64) (*types.Product, error)
	CreateProduct(ctx context.Context, in types.ProductInput, images []*multipart.FileHeader) (*types.Product, error)
	UpdateProduct(ctx context.Context, id int64, in types.ProductInput, images []*multipart.FileHeader) (*types.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// maxParallelUploads bounds how many images of one request are stored at once.
const maxParallelUploads = 4

type ProductServiceImpl struct {
	logger    *slog.Logger
	repo      ProductRepo
	store     storage.Storage
	maxUpload int64
}

func NewProductService(repo ProductRepo, store storage.Storage, maxUpload int64, logger *slog.Logger) *ProductServiceImpl {
	return &ProductServiceImpl{logger: logger, repo: repo, store: store, maxUpload: maxUpload}
}

func (s *ProductServiceImpl) ListProducts(ctx context.Context, filter types.ProductFilter) (*types.ListResponse[types.Product], error) {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "ListProducts", trace.WithAttributes(
		attribute.Int64("page.skip", int64(filter.Page.Skip)),
		attribute.Int64("page.limit", int64(filter.Page.Limit)),
		attribute.String("search", filter.Search),
	))
	defer span.End()

	products, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "List failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Products listed")
	return &types.ListResponse[types.Product]{Items: products, Skip: filter.Page.Skip, Limit: filter.Page.Limit}, nil
}

func (s *ProductServiceImpl) ListNewArrivals(ctx context.Context, page types.Page) (*types.ListResponse[types.Product], error) {
	newArrival := true
	return s.ListProducts(ctx, types.ProductFilter{NewArrival: &newArrival, Page: page})
}

func (s *ProductServiceImpl) GetProduct(ctx context.Context, id int64) (*types.Product, error) {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "GetProduct", trace.WithAttributes(
		attribute.Int64("product.id", id),
	))
	defer span.End()
	return s.repo.GetProduct(ctx, id)
}

func validateInput(in types.ProductInput, creating bool) error {
	if err := api.Validate(in); err != nil {
		return err
	}
	fields := map[string]string{}
	if creating {
		if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
			fields["name"] = "is required"
		}
		if in.Price == nil {
			fields["price"] = "is required"
		}
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		fields["name"] = "must not be blank"
	}
	if in.Price != nil && in.Price.IsNegative() {
		fields["price"] = "must not be negative"
	}
	if in.DiscountPrice != nil && in.DiscountPrice.IsNegative() {
		fields["discount_price"] = "must not be negative"
	}
	if len(fields) > 0 {
		return &types.ValidationError{Fields: fields}
	}
	return nil
}

// uploadImages stores files concurrently, preserving their order. On failure every image
// stored by this call is removed again.
func (s *ProductServiceImpl) uploadImages(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUploads)
	for i, fh := range files {
		g.Go(func() error {
			url, err := storage.SaveImage(gctx, s.store, "products", "images", fh, s.maxUpload)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.discard(ctx, slices.DeleteFunc(urls, func(u string) bool { return u == "" }))
		return nil, err
	}
	return urls, nil
}

func (s *ProductServiceImpl) discard(ctx context.Context, urls []string) {
	var wg sync.WaitGroup
	for _, u := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.Delete(ctx, u); err != nil {
				s.logger.WarnContext(ctx, "Failed to delete product image", slog.String("url", u), slog.Any("error", err))
			}
		}()
	}
	wg.Wait()
}

// missingReference reports a dangling category or subcategory as a field error.
func missingReference(err error, in types.ProductInput) error {
	if !errors.Is(err, api.ErrReferenceMissing) {
		return err
	}
	if in.SubcategoryID != nil && in.CategoryID == nil {
		return types.NewValidationError("subcategory_id", "does not exist")
	}
	return types.NewValidationError("category_id", "category or subcategory does not exist")
}

func (s *ProductServiceImpl) CreateProduct(ctx context.Context, in types.ProductInput, images []*multipart.FileHeader) (*types.Product, error) {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "CreateProduct", trace.WithAttributes(
		attribute.Int("images.uploaded", len(images)),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "CreateProduct"))

	if err := validateInput(in, true); err != nil {
		return nil, err
	}
	uploaded, err := s.uploadImages(ctx, images)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	p := types.Product{
		Name:           strings.TrimSpace(*in.Name),
		Description:    deref(in.Description),
		Price:          *in.Price,
		DiscountPrice:  in.DiscountPrice,
		CategoryID:     in.CategoryID,
		SubcategoryID:  in.SubcategoryID,
		Colors:         in.Colors,
		Sizes:          in.Sizes,
		Images:         append(slices.Clone(in.Images), uploaded...),
		Highlights:     in.Highlights,
		Specifications: deref(in.Specifications),
		Details:        deref(in.Details),
		InStock:        in.InStock == nil || *in.InStock,
		Featured:       in.Featured != nil && *in.Featured,
		BestSeller:     in.BestSeller != nil && *in.BestSeller,
		NewArrival:     in.NewArrival != nil && *in.NewArrival,
		Rating:         decimal.Zero,
	}

	created, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		s.discard(ctx, uploaded)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Create failed")
		return nil, missingReference(err, in)
	}
	l.InfoContext(ctx, "Product created", slog.Int64("productID", created.ID), slog.Int("images", len(created.Images)))
	span.SetStatus(codes.Ok, "Product created")
	return created, nil
}

func (s *ProductServiceImpl) UpdateProduct(ctx context.Context, id int64, in types.ProductInput, images []*multipart.FileHeader) (*types.Product, error) {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "UpdateProduct", trace.WithAttributes(
		attribute.Int64("product.id", id),
		attribute.Int("images.uploaded", len(images)),
	))
	defer span.End()

	if err := validateInput(in, false); err != nil {
		return nil, err
	}
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
	}
	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	uploaded, err := s.uploadImages(ctx, images)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// A provided image list replaces the current one; uploads are appended either way.
	var nextImages []string
	if in.Images != nil || len(uploaded) > 0 {
		base := existing.Images
		if in.Images != nil {
			base = in.Images
		}
		nextImages = append(slices.Clone(base), uploaded...)
	}

	updated, err := s.repo.UpdateProduct(ctx, id, changeSet(in, nextImages))
	if err != nil {
		s.discard(ctx, uploaded)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return nil, missingReference(err, in)
	}
	if nextImages != nil {
		var dropped []string
		for _, u := range existing.Images {
			if !slices.Contains(nextImages, u) {
				dropped = append(dropped, u)
			}
		}
		s.discard(ctx, dropped)
	}
	span.SetStatus(codes.Ok, "Product updated")
	return updated, nil
}

func (s *ProductServiceImpl) DeleteProduct(ctx context.Context, id int64) error {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "DeleteProduct", trace.WithAttributes(
		attribute.Int64("product.id", id),
	))
	defer span.End()

	deleted, err := s.repo.DeleteProduct(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		return err
	}
	s.discard(ctx, deleted.Images)
	span.SetStatus(codes.Ok, "Product deleted")
	return nil
}
