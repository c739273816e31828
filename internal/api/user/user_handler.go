package user

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-shop-backend/internal/api"
	"github.com/FACorreiaa/go-shop-backend/internal/api/auth"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

type HandlerImpl struct {
	userService UserService
	logger      *slog.Logger
	maxUpload   int64
}

func NewHandlerImpl(userService UserService, maxUpload int64, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{userService: userService, logger: logger, maxUpload: maxUpload}
}

func (h *HandlerImpl) currentUser(w http.ResponseWriter, r *http.Request) (*types.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		api.HandleError(w, r, h.logger, types.ErrUnauthenticated, "")
	}
	return u, ok
}

// UpdateProfile godoc
// @Summary      Update my profile
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        body body types.UpdateProfileParams true "Fields to change"
// @Success      200 {object} types.User
// @Failure      400 {object} types.Response
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /me [put]
func (h *HandlerImpl) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "UpdateProfile", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/me"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "UpdateProfile"))

	current, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var params types.UpdateProfileParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.HandleError(w, r, l, err, "Invalid request body")
		return
	}

	updated, err := h.userService.UpdateProfile(ctx, current.ID, params)
	if err != nil {
		span.SetStatus(codes.Error, "Update failed")
		api.HandleError(w, r, l, err, "Failed to update profile")
		return
	}
	span.SetStatus(codes.Ok, "Profile updated")
	api.WriteJSONResponse(w, r, http.StatusOK, updated)
}

// UploadAvatar godoc
// @Summary      Upload my avatar
// @Tags         Users
// @Accept       multipart/form-data
// @Produce      json
// @Param        avatar formData file true "Image (jpeg, png, gif, webp)"
// @Success      200 {object} types.User
// @Failure      400 {object} types.Response
// @Security     BearerAuth
// @Router       /me/avatar [post]
func (h *HandlerImpl) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "UploadAvatar", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/me/avatar"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "UploadAvatar"))

	current, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if err := api.ParseMultipartForm(w, r, h.maxUpload+1<<20); err != nil {
		api.HandleError(w, r, l, err, "Invalid upload")
		return
	}
	_, fh, err := r.FormFile("avatar")
	if err != nil {
		api.HandleError(w, r, l, types.NewValidationError("avatar", "file is required"), "")
		return
	}

	updated, err := h.userService.UploadAvatar(ctx, current, fh)
	if err != nil {
		span.SetStatus(codes.Error, "Upload failed")
		api.HandleError(w, r, l, err, "Failed to upload avatar")
		return
	}
	span.SetStatus(codes.Ok, "Avatar uploaded")
	api.WriteJSONResponse(w, r, http.StatusOK, updated)
}

// GetSettings godoc
// @Summary      Get my notification settings
// @Tags         Users
// @Produce      json
// @Success      200 {object} types.UserSettings
// @Security     BearerAuth
// @Router       /me/settings [get]
func (h *HandlerImpl) GetSettings(w http.ResponseWriter, r *http.Request) {
	current, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	settings, err := h.userService.GetSettings(r.Context(), current.ID)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to retrieve settings")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, settings)
}

// UpdateSettings godoc
// @Summary      Update my notification settings
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        body body types.UpdateSettingsParams true "Flags to change"
// @Success      200 {object} types.UserSettings
// @Failure      400 {object} types.Response
// @Security     BearerAuth
// @Router       /me/settings [put]
func (h *HandlerImpl) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	current, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var params types.UpdateSettingsParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.HandleError(w, r, h.logger, err, "Invalid request body")
		return
	}
	settings, err := h.userService.UpdateSettings(r.Context(), current.ID, params)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to update settings")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, settings)
}

// ListUsers godoc
// @Summary      List users
// @Tags         Admin
// @Produce      json
// @Param        skip  query int false "Offset" default(0)
// @Param        limit query int false "Page size (max 100)" default(50)
// @Success      200 {object} types.ListResponse[types.User]
// @Failure      403 {object} types.Response
// @Security     BearerAuth
// @Router       /users [get]
func (h *HandlerImpl) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := api.ParsePage(r)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	resp, err := h.userService.ListUsers(r.Context(), page)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to list users")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// GetUser godoc
// @Summary      Get a user
// @Tags         Admin
// @Produce      json
// @Param        id path int true "User ID"
// @Success      200 {object} types.User
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /users/{id} [get]
func (h *HandlerImpl) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := api.URLParamID(r, "id")
	if err != nil {
		api.HandleError(w, r, h.logger, err, "")
		return
	}
	u, err := h.userService.GetUser(r.Context(), id)
	if err != nil {
		api.HandleError(w, r, h.logger, err, "Failed to retrieve user")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, u)
}

// UpdateRole godoc
// @Summary      Change a user's role
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id   path int true "User ID"
// @Param        body body types.UpdateRoleRequest true "New role"
// @Success      200 {object} types.User
// @Failure      400 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /users/{id}/role [put]
func (h *HandlerImpl) UpdateRole(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "UpdateRole"))
	actor, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, err := api.URLParamID(r, "id")
	if err != nil {
		api.HandleError(w, r, l, err, "")
		return
	}
	var req types.UpdateRoleRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, l, err, "Invalid request body")
		return
	}
	if err := api.Validate(req); err != nil {
		api.HandleError(w, r, l, err, "")
		return
	}
	u, err := h.userService.UpdateRole(r.Context(), actor, id, req.Role)
	if err != nil {
		api.HandleError(w, r, l, err, "Failed to update role")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, u)
}
