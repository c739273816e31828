package auth

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-shop-backend/internal/api"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

type HandlerImpl struct {
	authService AuthService
	logger      *slog.Logger
}

func NewHandlerImpl(authService AuthService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{authService: authService, logger: logger}
}

// SignUp godoc
// @Summary      Register a new account
// @Description  Creates a user with role "user". Duplicate emails are rejected.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.SignUpRequest true "Account details"
// @Success      201 {object} types.User
// @Failure      400 {object} types.Response "Validation failed or email already registered"
// @Failure      500 {object} types.Response
// @Router       /signUp [post]
func (h *HandlerImpl) SignUp(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "SignUp", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/signUp"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "SignUp"))

	var req types.SignUpRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.SetStatus(codes.Error, "Invalid body")
		api.HandleError(w, r, l, err, "Invalid request body")
		return
	}

	user, err := h.authService.SignUp(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, "Sign up failed")
		api.HandleError(w, r, l, err, "Failed to register user")
		return
	}
	span.SetStatus(codes.Ok, "Registered")
	api.WriteJSONResponse(w, r, http.StatusCreated, user)
}

// Login godoc
// @Summary      Log in
// @Description  Exchanges email and password for a bearer access token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.LoginRequest true "Credentials"
// @Success      200 {object} types.LoginResponse
// @Failure      400 {object} types.Response
// @Failure      401 {object} types.Response "Incorrect email or password"
// @Failure      429 {object} types.Response
// @Router       /login [post]
func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Login", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/login"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "Login"))

	var req types.LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, l, err, "Invalid request body")
		return
	}
	if err := api.Validate(req); err != nil {
		api.HandleError(w, r, l, err, "Invalid request body")
		return
	}

	resp, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		span.SetStatus(codes.Error, "Login failed")
		if isAuthError(err) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Incorrect email or password")
			return
		}
		api.HandleError(w, r, l, err, "Failed to log in")
		return
	}
	span.SetStatus(codes.Ok, "Logged in")
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// Me godoc
// @Summary      Current user
// @Tags         Auth
// @Produce      json
// @Success      200 {object} types.User
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /me [get]
func (h *HandlerImpl) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		api.HandleError(w, r, h.logger, types.ErrUnauthenticated, "")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

// ChangePassword godoc
// @Summary      Change password
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.ChangePasswordRequest true "Old and new password"
// @Success      200 {object} types.Response
// @Failure      400 {object} types.Response
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /change-password [post]
func (h *HandlerImpl) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "ChangePassword", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/change-password"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "ChangePassword"))

	user, ok := UserFromContext(ctx)
	if !ok {
		api.HandleError(w, r, l, types.ErrUnauthenticated, "")
		return
	}

	var req types.ChangePasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, l, err, "Invalid request body")
		return
	}
	if err := api.Validate(req); err != nil {
		api.HandleError(w, r, l, err, "Invalid request body")
		return
	}

	if err := h.authService.ChangePassword(ctx, user, req.OldPassword, req.NewPassword); err != nil {
		span.SetStatus(codes.Error, "Change password failed")
		api.HandleError(w, r, l, err, "Failed to change password")
		return
	}
	span.SetStatus(codes.Ok, "Password changed")
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: "Password updated successfully"})
}

// ForgotPassword godoc
// @Summary      Request a password reset link
// @Description  Always answers with the same message whether or not the email is registered.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.ForgotPasswordRequest true "Account email"
// @Success      200 {object} types.Response
// @Failure      400 {object} types.Response
// @Router       /forgot-password [post]
func (h *HandlerImpl) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "ForgotPassword", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/forgot-password"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "ForgotPassword"))

	var req types.ForgotPasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, l, err, "Invalid request body")
		return
	}
	if err := api.Validate(req); err != nil {
		api.HandleError(w, r, l, err, "Invalid request body")
		return
	}

	h.authService.ForgotPassword(ctx, req.Email)
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: types.ForgotPasswordMessage})
}

// ResetPassword godoc
// @Summary      Reset password with an emailed token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} types.Response
// @Failure      400 {object} types.Response
// @Failure      401 {object} types.Response "Invalid or expired token"
// @Router       /reset-password [post]
func (h *HandlerImpl) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "ResetPassword", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/reset-password"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "ResetPassword"))

	var req types.ResetPasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, l, err, "Invalid request body")
		return
	}
	if err := api.Validate(req); err != nil {
		api.HandleError(w, r, l, err, "Invalid request body")
		return
	}

	if err := h.authService.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		span.SetStatus(codes.Error, "Reset failed")
		if isAuthError(err) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, tokenErrorMessage(err))
			return
		}
		api.HandleError(w, r, l, err, "Failed to reset password")
		return
	}
	span.SetStatus(codes.Ok, "Password reset")
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: "Password has been reset"})
}
