package coupon

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-shop-backend/internal/api"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

var _ CouponService = (*CouponServiceImpl)(nil)

type CouponService interface {
	ListCoupons(ctx context.Context, page types.Page) (*types.ListResponse[types.Coupon], error)
	GetCoupon(ctx context.Context, id int64) (*types.Coupon, error)
	CreateCoupon(ctx context.Context, req types.CouponRequest) (*types.Coupon, error)
	UpdateCoupon(ctx context.Context, id int64, req types.CouponRequest) (*types.Coupon, error)
	DeleteCoupon(ctx context.Context, id int64) error
	// ValidateCoupon quotes the discount the code gives on req.Subtotal right now.
	ValidateCoupon(ctx context.Context, req types.ValidateCouponRequest) (*types.CouponQuote, error)
}

var hundred = decimal.NewFromInt(100)

type CouponServiceImpl struct {
	logger *slog.Logger
	repo   CouponRepo
	now    func() time.Time
}

func NewCouponService(repo CouponRepo, logger *slog.Logger) *CouponServiceImpl {
	return &CouponServiceImpl{logger: logger, repo: repo, now: time.Now}
}

func (s *CouponServiceImpl) ListCoupons(ctx context.Context, page types.Page) (*types.ListResponse[types.Coupon], error) {
	ctx, span := otel.Tracer("CouponService").Start(ctx, "ListCoupons")
	defer span.End()

	coupons, err := s.repo.ListCoupons(ctx, page)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &types.ListResponse[types.Coupon]{Items: coupons, Skip: page.Skip, Limit: page.Limit}, nil
}

func (s *CouponServiceImpl) GetCoupon(ctx context.Context, id int64) (*types.Coupon, error) {
	ctx, span := otel.Tracer("CouponService").Start(ctx, "GetCoupon", trace.WithAttributes(
		attribute.Int64("coupon.id", id),
	))
	defer span.End()
	return s.repo.GetCoupon(ctx, id)
}

// fromRequest validates req and builds the coupon it describes. Active defaults to true.
func fromRequest(req types.CouponRequest) (types.Coupon, error) {
	if err := api.Validate(req); err != nil {
		return types.Coupon{}, err
	}
	fields := map[string]string{}
	if !req.DiscountValue.IsPositive() {
		fields["discount_value"] = "must be greater than 0"
	} else if req.DiscountType == types.DiscountPercentage && req.DiscountValue.GreaterThan(hundred) {
		fields["discount_value"] = "must be at most 100 for percentage coupons"
	}
	if req.MinimumPurchase.IsNegative() {
		fields["minimum_purchase"] = "must not be negative"
	}
	if len(fields) > 0 {
		return types.Coupon{}, &types.ValidationError{Fields: fields}
	}
	return types.Coupon{
		Code:            strings.TrimSpace(req.Code),
		Description:     req.Description,
		DiscountType:    req.DiscountType,
		DiscountValue:   req.DiscountValue,
		MinimumPurchase: req.MinimumPurchase,
		ValidFrom:       req.ValidFrom,
		ValidTo:         req.ValidTo,
		MaxUses:         req.MaxUses,
		Active:          req.Active == nil || *req.Active,
	}, nil
}

func (s *CouponServiceImpl) CreateCoupon(ctx context.Context, req types.CouponRequest) (*types.Coupon, error) {
	ctx, span := otel.Tracer("CouponService").Start(ctx, "CreateCoupon", trace.WithAttributes(
		attribute.String("coupon.code", req.Code),
	))
	defer span.End()

	c, err := fromRequest(req)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.CreateCoupon(ctx, c)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Create failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Coupon created")
	return created, nil
}

func (s *CouponServiceImpl) UpdateCoupon(ctx context.Context, id int64, req types.CouponRequest) (*types.Coupon, error) {
	ctx, span := otel.Tracer("CouponService").Start(ctx, "UpdateCoupon", trace.WithAttributes(
		attribute.Int64("coupon.id", id),
	))
	defer span.End()

	c, err := fromRequest(req)
	if err != nil {
		return nil, err
	}
	c.ID = id
	updated, err := s.repo.UpdateCoupon(ctx, c)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return nil, err
	}
	return updated, nil
}

func (s *CouponServiceImpl) DeleteCoupon(ctx context.Context, id int64) error {
	ctx, span := otel.Tracer("CouponService").Start(ctx, "DeleteCoupon", trace.WithAttributes(
		attribute.Int64("coupon.id", id),
	))
	defer span.End()
	return s.repo.DeleteCoupon(ctx, id)
}

func (s *CouponServiceImpl) ValidateCoupon(ctx context.Context, req types.ValidateCouponRequest) (*types.CouponQuote, error) {
	ctx, span := otel.Tracer("CouponService").Start(ctx, "ValidateCoupon", trace.WithAttributes(
		attribute.String("coupon.code", req.Code),
	))
	defer span.End()

	if err := api.Validate(req); err != nil {
		return nil, err
	}
	if req.Subtotal.IsNegative() {
		return nil, types.NewValidationError("subtotal", "must not be negative")
	}
	c, err := s.repo.GetCouponByCode(ctx, strings.TrimSpace(req.Code))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.NewValidationError("code", "coupon does not exist")
		}
		return nil, err
	}
	if err := c.Redeemable(req.Subtotal, s.now()); err != nil {
		span.SetAttributes(attribute.Bool("coupon.redeemable", false))
		return nil, err
	}

	discount := c.Discount(req.Subtotal)
	span.SetStatus(codes.Ok, "Coupon valid")
	return &types.CouponQuote{
		Code:     c.Code,
		Subtotal: req.Subtotal,
		Discount: discount,
		Total:    req.Subtotal.Sub(discount),
	}, nil
}
