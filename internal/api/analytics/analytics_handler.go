package analytics

import (
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-shop-backend/internal/api"
)

type HandlerImpl struct {
	analyticsService AnalyticsService
	logger           *slog.Logger
}

func NewHandlerImpl(analyticsService AnalyticsService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{analyticsService: analyticsService, logger: logger}
}

// MonthlyOrders godoc
// @Summary      Orders per month
// @Tags         Analytics
// @Produce      json
// @Success      200 {array} types.PeriodCount
// @Failure      403 {object} types.Response
// @Security     BearerAuth
// @Router       /admin/analytics/monthly-orders [get]
func (h *HandlerImpl) MonthlyOrders(w http.ResponseWriter, r *http.Request) {
	counts, err := h.analyticsService.MonthlyOrders(r.Context())
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to count monthly orders")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, counts)
}

// DailyOrders godoc
// @Summary      Orders per day over the last week
// @Tags         Analytics
// @Produce      json
// @Success      200 {array} types.PeriodCount
// @Failure      403 {object} types.Response
// @Security     BearerAuth
// @Router       /admin/analytics/daily-orders [get]
func (h *HandlerImpl) DailyOrders(w http.ResponseWriter, r *http.Request) {
	counts, err := h.analyticsService.DailyOrders(r.Context())
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to count daily orders")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, counts)
}

// TopCustomers godoc
// @Summary      Ten customers with the most orders
// @Tags         Analytics
// @Produce      json
// @Success      200 {array} types.TopCustomer
// @Failure      403 {object} types.Response
// @Security     BearerAuth
// @Router       /admin/analytics/top-customers [get]
func (h *HandlerImpl) TopCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.analyticsService.TopCustomers(r.Context())
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to rank customers")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, customers)
}

// Summary godoc
// @Summary      All analytics reports at once
// @Tags         Analytics
// @Produce      json
// @Success      200 {object} types.AnalyticsSummary
// @Failure      403 {object} types.Response
// @Security     BearerAuth
// @Router       /admin/analytics/summary [get]
func (h *HandlerImpl) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.analyticsService.Summary(r.Context())
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to build analytics summary")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, sum)
}
