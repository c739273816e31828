package product

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/go-shop-backend/internal/api"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

// ParseList reads a list form value given either as a JSON array of strings or as a
// comma-separated list. Blank entries are dropped; an empty value yields an empty list.
func ParseList(field, raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var out []string
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, types.NewValidationError(field, "must be a JSON array of strings or a comma-separated list")
		}
		return compact(out), nil
	}
	return compact(strings.Split(raw, ",")), nil
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

// formReader collects typed values from a parsed multipart form, accumulating field errors.
type formReader struct {
	values map[string][]string
	errs   map[string]string
}

func (f *formReader) raw(key string) (string, bool) {
	v, ok := f.values[key]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

func (f *formReader) str(key string) *string {
	v, ok := f.raw(key)
	if !ok {
		return nil
	}
	return &v
}

func (f *formReader) dec(key string) *decimal.Decimal {
	v, ok := f.raw(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		f.errs[key] = "must be a decimal number"
		return nil
	}
	return &d
}

func (f *formReader) id(key string) *int64 {
	v, ok := f.raw(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n <= 0 {
		f.errs[key] = "must be a positive integer"
		return nil
	}
	return &n
}

func (f *formReader) boolean(key string) *bool {
	v, ok := f.raw(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		f.errs[key] = "must be a boolean"
		return nil
	}
	return &b
}

func (f *formReader) list(key string) []string {
	v, ok := f.raw(key)
	if !ok {
		return nil
	}
	out, err := ParseList(key, v)
	if err != nil {
		f.errs[key] = "must be a JSON array of strings or a comma-separated list"
		return nil
	}
	return out
}

// decodeProductInput accepts a JSON body or multipart/form-data whose "images" parts are uploads.
func decodeProductInput(w http.ResponseWriter, r *http.Request, maxBytes int64) (types.ProductInput, []*multipart.FileHeader, error) {
	var in types.ProductInput
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return in, nil, api.DecodeJSONBody(w, r, &in)
	}
	if err := api.ParseMultipartForm(w, r, maxBytes); err != nil {
		return in, nil, err
	}

	f := &formReader{values: r.MultipartForm.Value, errs: map[string]string{}}
	in = types.ProductInput{
		Name:           f.str("name"),
		Description:    f.str("description"),
		Price:          f.dec("price"),
		DiscountPrice:  f.dec("discount_price"),
		CategoryID:     f.id("category_id"),
		SubcategoryID:  f.id("subcategory_id"),
		Colors:         f.list("colors"),
		Sizes:          f.list("sizes"),
		Highlights:     f.list("highlights"),
		Specifications: f.str("specifications"),
		Details:        f.str("details"),
		InStock:        f.boolean("in_stock"),
		Featured:       f.boolean("featured"),
		BestSeller:     f.boolean("best_seller"),
		NewArrival:     f.boolean("new_arrival"),
	}
	// Already-stored image URLs to keep, e.g. when reordering on update.
	if _, ok := f.raw("image_urls"); ok {
		in.Images = f.list("image_urls")
	}
	if len(f.errs) > 0 {
		return in, nil, &types.ValidationError{Fields: f.errs}
	}
	return in, r.MultipartForm.File["images"], nil
}

func parseFilter(r *http.Request) (types.ProductFilter, error) {
	var (
		filter types.ProductFilter
		err    error
	)
	if filter.Page, err = api.ParsePage(r); err != nil {
		return filter, err
	}
	if filter.CategoryID, err = api.QueryID(r, "category_id"); err != nil {
		return filter, err
	}
	if filter.SubcategoryID, err = api.QueryID(r, "subcategory_id"); err != nil {
		return filter, err
	}
	if filter.Featured, err = api.QueryBool(r, "featured"); err != nil {
		return filter, err
	}
	if filter.BestSeller, err = api.QueryBool(r, "best_seller"); err != nil {
		return filter, err
	}
	if filter.NewArrival, err = api.QueryBool(r, "new_arrival"); err != nil {
		return filter, err
	}
	if filter.InStock, err = api.QueryBool(r, "in_stock"); err != nil {
		return filter, err
	}
	filter.Search = strings.TrimSpace(r.URL.Query().Get("search"))
	return filter, nil
}
