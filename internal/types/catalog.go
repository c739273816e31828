package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Slug          string        `json:"slug"`
	Image         *string       `json:"image,omitempty"`
	Subcategories []SubCategory `json:"subcategories" db:"-"`
}

type SubCategory struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	CategoryID int64  `json:"category_id"`
}

// CategoryInput arrives as JSON or as a multipart form; an uploaded file replaces Image.
type CategoryInput struct {
	Name  string  `json:"name" validate:"required,max=120"`
	Slug  string  `json:"slug,omitempty" validate:"omitempty,max=140"`
	Image *string `json:"image,omitempty" validate:"omitempty,url|startswith=/"`
}

type SubCategoryInput struct {
	Name       string `json:"name" validate:"required,max=120"`
	Slug       string `json:"slug,omitempty" validate:"omitempty,max=140"`
	CategoryID int64  `json:"category_id" validate:"required,gt=0"`
}

type Product struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Price          decimal.Decimal  `json:"price"`
	DiscountPrice  *decimal.Decimal `json:"discount_price,omitempty"`
	CategoryID     *int64           `json:"category_id,omitempty"`
	SubcategoryID  *int64           `json:"subcategory_id,omitempty"`
	Colors         []string         `json:"colors"`
	Sizes          []string         `json:"sizes"`
	Images         []string         `json:"images"`
	Highlights     []string         `json:"highlights"`
	Specifications string           `json:"specifications"`
	Details        string           `json:"details"`
	InStock        bool             `json:"in_stock"`
	Rating         decimal.Decimal  `json:"rating"`
	Reviews        int              `json:"reviews"`
	Featured       bool             `json:"featured"`
	BestSeller     bool             `json:"best_seller"`
	NewArrival     bool             `json:"new_arrival"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// EffectivePrice is the discount price when one is set and lower than the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice != nil && p.DiscountPrice.LessThan(p.Price) {
		return *p.DiscountPrice
	}
	return p.Price
}

// ProductInput is the decoded create/update form or JSON body. Nil pointers and nil slices mean "not provided".
type ProductInput struct {
	Name           *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description    *string          `json:"description"`
	Price          *decimal.Decimal `json:"price" validate:"-"`
	DiscountPrice  *decimal.Decimal `json:"discount_price" validate:"-"`
	CategoryID     *int64           `json:"category_id" validate:"omitempty,gt=0"`
	SubcategoryID  *int64           `json:"subcategory_id" validate:"omitempty,gt=0"`
	Colors         []string         `json:"colors" validate:"omitempty,dive,max=50"`
	Sizes          []string         `json:"sizes" validate:"omitempty,dive,max=50"`
	Images         []string         `json:"images" validate:"-"`
	Highlights     []string         `json:"highlights" validate:"omitempty,dive,max=300"`
	Specifications *string          `json:"specifications"`
	Details        *string          `json:"details"`
	InStock        *bool            `json:"in_stock"`
	Featured       *bool            `json:"featured"`
	BestSeller     *bool            `json:"best_seller"`
	NewArrival     *bool            `json:"new_arrival"`
}

type ProductFilter struct {
	CategoryID    *int64
	SubcategoryID *int64
	Featured      *bool
	BestSeller    *bool
	NewArrival    *bool
	InStock       *bool
	Search        string
	Page          Page
}
