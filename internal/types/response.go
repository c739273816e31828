package types

// Response represents a generic API response for success or error messages.
type Response struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty" example:"Operation successful"`
	Error   string `json:"error,omitempty" example:"Resource not found"`
}

// Page is the skip/limit window applied to list endpoints.
type Page struct {
	Skip  uint64 `json:"skip"`
	Limit uint64 `json:"limit"`
}

type ListResponse[T any] struct {
	Items []T    `json:"items"`
	Skip  uint64 `json:"skip"`
	Limit uint64 `json:"limit"`
}
