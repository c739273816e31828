package types

import "time"

type PeriodCount struct {
	Period time.Time `json:"period"`
	Orders int64     `json:"orders"`
}

type TopCustomer struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Orders    int64  `json:"orders"`
}

type AnalyticsSummary struct {
	Monthly      []PeriodCount `json:"monthly_orders"`
	Daily        []PeriodCount `json:"daily_orders"`
	TopCustomers []TopCustomer `json:"top_customers"`
}
