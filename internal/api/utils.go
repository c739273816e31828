package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

const maxJSONBodyBytes = 1 << 20

// ErrorResponse writes a standard JSON error response including request ID.
func ErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeError(w, r, status, message, nil)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string, fields map[string]string) {
	resp := map[string]any{
		"success":    false,
		"error":      message,
		"request_id": middleware.GetReqID(r.Context()),
	}
	if len(fields) > 0 {
		resp["fields"] = fields
	}
	WriteJSONResponse(w, r, status, resp)
}

// HandleError maps the domain error taxonomy onto an HTTP status.
// fallback is the message used for unexpected errors, whose details are only logged.
func HandleError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string) {
	var (
		forbidden  *types.ForbiddenError
		validation *types.ValidationError
		conflict   *types.ConflictError
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, r, http.StatusBadRequest, "Validation failed", validation.Fields)
	case errors.Is(err, types.ErrValidation):
		ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", "Bearer")
		ErrorResponse(w, r, http.StatusUnauthorized, "Could not validate credentials")
	case errors.As(err, &forbidden):
		ErrorResponse(w, r, http.StatusForbidden, forbidden.Error())
	case errors.Is(err, types.ErrForbidden):
		ErrorResponse(w, r, http.StatusForbidden, "Forbidden")
	case errors.Is(err, types.ErrNotFound):
		ErrorResponse(w, r, http.StatusNotFound, "Not found")
	case errors.As(err, &conflict):
		ErrorResponse(w, r, http.StatusBadRequest, conflict.Message)
	case errors.Is(err, types.ErrConflict):
		ErrorResponse(w, r, http.StatusBadRequest, "Resource already exists")
	default:
		logger.ErrorContext(r.Context(), fallback,
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())))
		ErrorResponse(w, r, http.StatusInternalServerError, fallback)
	}
}

// WriteJSONResponse encodes data and writes status. 204 writes no body.
func WriteJSONResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	js, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to marshal JSON response",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(js); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write response body",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
}

// DecodeJSONBody reads a single JSON object into dst, rejecting unknown keys.
// The returned error is a *types.ValidationError suitable for HandleError.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return types.NewValidationError("body", describeDecodeError(err))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return types.NewValidationError("body", "body must only contain a single JSON value")
	}
	return nil
}

func describeDecodeError(err error) string {
	var (
		syntaxError        *json.SyntaxError
		unmarshalTypeError *json.UnmarshalTypeError
		invalidUnmarshal   *json.InvalidUnmarshalError
		maxBytesError      *http.MaxBytesError
	)
	switch {
	case errors.As(err, &syntaxError):
		return fmt.Sprintf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "body contains badly-formed JSON"
	case errors.As(err, &unmarshalTypeError):
		if unmarshalTypeError.Field != "" {
			return fmt.Sprintf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
		}
		return fmt.Sprintf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
	case errors.Is(err, io.EOF):
		return "body must not be empty"
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return fmt.Sprintf("body contains unknown key %q", field)
	case errors.As(err, &maxBytesError):
		return fmt.Sprintf("body must not be larger than %d bytes", maxBytesError.Limit)
	case errors.As(err, &invalidUnmarshal):
		panic(fmt.Errorf("developer error: invalid argument passed to json.Unmarshal: %w", err))
	default:
		return err.Error()
	}
}
