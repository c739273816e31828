package category

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-shop-backend/internal/api"
	"github.com/FACorreiaa/go-shop-backend/internal/storage"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

var _ CategoryService = (*CategoryServiceImpl)(nil)

type CategoryService interface {
	ListCategories(ctx context.Context) ([]types.Category, error)
	GetCategory(ctx context.Context, id int64) (*types.Category, error)
	CreateCategory(ctx context.Context, in types.CategoryInput, image *multipart.FileHeader) (*types.Category, error)
	UpdateCategory(ctx context.Context, id int64, in types.CategoryInput, image *multipart.FileHeader) (*types.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListSubCategories(ctx context.Context, categoryID *int64) ([]types.SubCategory, error)
	CreateSubCategory(ctx context.Context, in types.SubCategoryInput) (*types.SubCategory, error)
	UpdateSubCategory(ctx context.Context, id int64, in types.SubCategoryInput) (*types.SubCategory, error)
	DeleteSubCategory(ctx context.Context, id int64) error
}

const listCacheKey = "categories:all"

type CategoryServiceImpl struct {
	logger    *slog.Logger
	repo      CategoryRepo
	store     storage.Storage
	maxUpload int64
	cache     *cache.Cache
}

func NewCategoryService(repo CategoryRepo, store storage.Storage, maxUpload int64, logger *slog.Logger) *CategoryServiceImpl {
	return &CategoryServiceImpl{
		logger:    logger,
		repo:      repo,
		store:     store,
		maxUpload: maxUpload,
		cache:     cache.New(10*time.Minute, 30*time.Minute),
	}
}

// slugFor keeps an explicit slug (normalised) and derives one from name otherwise.
func slugFor(explicit, name string) (string, error) {
	src := strings.TrimSpace(explicit)
	if src == "" {
		src = name
	}
	s := slug.Make(src)
	if s == "" {
		return "", types.NewValidationError("slug", "cannot be derived from the given name")
	}
	return s, nil
}

func (s *CategoryServiceImpl) invalidate() {
	s.cache.Delete(listCacheKey)
}

func (s *CategoryServiceImpl) ListCategories(ctx context.Context) ([]types.Category, error) {
	ctx, span := otel.Tracer("CategoryService").Start(ctx, "ListCategories")
	defer span.End()
	span.SetAttributes(attribute.String("cache.key", listCacheKey))

	if cached, found := s.cache.Get(listCacheKey); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached.([]types.Category), nil
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "List failed")
		return nil, err
	}
	s.cache.Set(listCacheKey, categories, cache.DefaultExpiration)
	span.SetStatus(codes.Ok, "Categories listed")
	return categories, nil
}

func (s *CategoryServiceImpl) GetCategory(ctx context.Context, id int64) (*types.Category, error) {
	ctx, span := otel.Tracer("CategoryService").Start(ctx, "GetCategory", trace.WithAttributes(
		attribute.Int64("category.id", id),
	))
	defer span.End()
	return s.repo.GetCategory(ctx, id)
}

func (s *CategoryServiceImpl) uploadImage(ctx context.Context, fh *multipart.FileHeader) (*string, error) {
	if fh == nil {
		return nil, nil
	}
	url, err := storage.SaveImage(ctx, s.store, "categories", "image", fh, s.maxUpload)
	if err != nil {
		return nil, err
	}
	return &url, nil
}

func (s *CategoryServiceImpl) discard(ctx context.Context, url *string) {
	if url == nil {
		return
	}
	if err := s.store.Delete(ctx, *url); err != nil {
		s.logger.WarnContext(ctx, "Failed to delete category image", slog.String("url", *url), slog.Any("error", err))
	}
}

func (s *CategoryServiceImpl) CreateCategory(ctx context.Context, in types.CategoryInput, image *multipart.FileHeader) (*types.Category, error) {
	ctx, span := otel.Tracer("CategoryService").Start(ctx, "CreateCategory")
	defer span.End()

	if err := api.Validate(in); err != nil {
		return nil, err
	}
	sl, err := slugFor(in.Slug, in.Name)
	if err != nil {
		return nil, err
	}
	uploaded, err := s.uploadImage(ctx, image)
	if err != nil {
		return nil, err
	}
	img := in.Image
	if uploaded != nil {
		img = uploaded
	}

	created, err := s.repo.CreateCategory(ctx, types.Category{Name: strings.TrimSpace(in.Name), Slug: sl, Image: img})
	if err != nil {
		s.discard(ctx, uploaded)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Create failed")
		return nil, err
	}
	s.invalidate()
	s.logger.InfoContext(ctx, "Category created", slog.Int64("categoryID", created.ID), slog.String("slug", sl))
	span.SetStatus(codes.Ok, "Category created")
	return created, nil
}

func (s *CategoryServiceImpl) UpdateCategory(ctx context.Context, id int64, in types.CategoryInput, image *multipart.FileHeader) (*types.Category, error) {
	ctx, span := otel.Tracer("CategoryService").Start(ctx, "UpdateCategory", trace.WithAttributes(
		attribute.Int64("category.id", id),
	))
	defer span.End()

	if err := api.Validate(in); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	sl, err := slugFor(in.Slug, in.Name)
	if err != nil {
		return nil, err
	}
	uploaded, err := s.uploadImage(ctx, image)
	if err != nil {
		return nil, err
	}

	img := existing.Image
	switch {
	case uploaded != nil:
		img = uploaded
	case in.Image != nil:
		img = in.Image
	}

	updated, err := s.repo.UpdateCategory(ctx, types.Category{ID: id, Name: strings.TrimSpace(in.Name), Slug: sl, Image: img})
	if err != nil {
		s.discard(ctx, uploaded)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return nil, err
	}
	if existing.Image != nil && (img == nil || *img != *existing.Image) {
		s.discard(ctx, existing.Image)
	}
	s.invalidate()
	span.SetStatus(codes.Ok, "Category updated")
	return updated, nil
}

func (s *CategoryServiceImpl) DeleteCategory(ctx context.Context, id int64) error {
	ctx, span := otel.Tracer("CategoryService").Start(ctx, "DeleteCategory", trace.WithAttributes(
		attribute.Int64("category.id", id),
	))
	defer span.End()

	deleted, err := s.repo.DeleteCategory(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		return err
	}
	s.discard(ctx, deleted.Image)
	s.invalidate()
	span.SetStatus(codes.Ok, "Category deleted")
	return nil
}

func (s *CategoryServiceImpl) ListSubCategories(ctx context.Context, categoryID *int64) ([]types.SubCategory, error) {
	ctx, span := otel.Tracer("CategoryService").Start(ctx, "ListSubCategories")
	defer span.End()
	return s.repo.ListSubCategories(ctx, categoryID)
}

func (s *CategoryServiceImpl) buildSubCategory(in types.SubCategoryInput) (types.SubCategory, error) {
	if err := api.Validate(in); err != nil {
		return types.SubCategory{}, err
	}
	sl, err := slugFor(in.Slug, in.Name)
	if err != nil {
		return types.SubCategory{}, err
	}
	return types.SubCategory{Name: strings.TrimSpace(in.Name), Slug: sl, CategoryID: in.CategoryID}, nil
}

func (s *CategoryServiceImpl) CreateSubCategory(ctx context.Context, in types.SubCategoryInput) (*types.SubCategory, error) {
	ctx, span := otel.Tracer("CategoryService").Start(ctx, "CreateSubCategory")
	defer span.End()

	sc, err := s.buildSubCategory(in)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.CreateSubCategory(ctx, sc)
	if err != nil {
		span.RecordError(err)
		return nil, parentMissing(err, in.CategoryID)
	}
	s.invalidate()
	span.SetStatus(codes.Ok, "Subcategory created")
	return created, nil
}

func (s *CategoryServiceImpl) UpdateSubCategory(ctx context.Context, id int64, in types.SubCategoryInput) (*types.SubCategory, error) {
	ctx, span := otel.Tracer("CategoryService").Start(ctx, "UpdateSubCategory", trace.WithAttributes(
		attribute.Int64("subcategory.id", id),
	))
	defer span.End()

	sc, err := s.buildSubCategory(in)
	if err != nil {
		return nil, err
	}
	sc.ID = id
	updated, err := s.repo.UpdateSubCategory(ctx, sc)
	if err != nil {
		span.RecordError(err)
		return nil, parentMissing(err, in.CategoryID)
	}
	s.invalidate()
	span.SetStatus(codes.Ok, "Subcategory updated")
	return updated, nil
}

func (s *CategoryServiceImpl) DeleteSubCategory(ctx context.Context, id int64) error {
	ctx, span := otel.Tracer("CategoryService").Start(ctx, "DeleteSubCategory", trace.WithAttributes(
		attribute.Int64("subcategory.id", id),
	))
	defer span.End()

	if err := s.repo.DeleteSubCategory(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}
	s.invalidate()
	span.SetStatus(codes.Ok, "Subcategory deleted")
	return nil
}

// parentMissing reports a foreign-key failure as a bad category_id rather than a 404 on the URL.
func parentMissing(err error, categoryID int64) error {
	if errors.Is(err, api.ErrReferenceMissing) {
		return types.NewValidationError("category_id", fmt.Sprintf("category %d does not exist", categoryID))
	}
	return err
}
