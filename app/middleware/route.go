package appMiddleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// routePattern keeps metric cardinality bounded by using the matched chi pattern.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
