package user

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-shop-backend/internal/api"
	"github.com/FACorreiaa/go-shop-backend/internal/storage"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

var _ UserService = (*UserServiceImpl)(nil)

type UserService interface {
	UpdateProfile(ctx context.Context, userID int64, params types.UpdateProfileParams) (*types.User, error)
	UploadAvatar(ctx context.Context, current *types.User, fh *multipart.FileHeader) (*types.User, error)
	GetSettings(ctx context.Context, userID int64) (*types.UserSettings, error)
	UpdateSettings(ctx context.Context, userID int64, params types.UpdateSettingsParams) (*types.UserSettings, error)

	ListUsers(ctx context.Context, page types.Page) (*types.ListResponse[types.User], error)
	GetUser(ctx context.Context, id int64) (*types.User, error)
	UpdateRole(ctx context.Context, actor *types.User, id int64, role types.Role) (*types.User, error)
}

type UserServiceImpl struct {
	logger    *slog.Logger
	repo      UserRepo
	store     storage.Storage
	maxUpload int64
}

func NewUserService(repo UserRepo, store storage.Storage, maxUpload int64, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{logger: logger, repo: repo, store: store, maxUpload: maxUpload}
}

func (s *UserServiceImpl) UpdateProfile(ctx context.Context, userID int64, params types.UpdateProfileParams) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateProfile", trace.WithAttributes(
		attribute.Int64("user.id", userID),
	))
	defer span.End()

	if params.Empty() {
		return nil, types.NewValidationError("body", "no fields to update")
	}
	if err := api.Validate(params); err != nil {
		return nil, err
	}
	u, err := s.repo.UpdateProfile(ctx, userID, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	span.SetStatus(codes.Ok, "Profile updated")
	return u, nil
}

func (s *UserServiceImpl) UploadAvatar(ctx context.Context, current *types.User, fh *multipart.FileHeader) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UploadAvatar", trace.WithAttributes(
		attribute.Int64("user.id", current.ID),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "UploadAvatar"), slog.Int64("userID", current.ID))

	url, err := storage.SaveImage(ctx, s.store, fmt.Sprintf("avatars/%d", current.ID), "avatar", fh, s.maxUpload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Upload failed")
		return nil, err
	}

	u, err := s.repo.UpdateAvatar(ctx, current.ID, url)
	if err != nil {
		if delErr := s.store.Delete(ctx, url); delErr != nil {
			l.WarnContext(ctx, "Failed to clean up orphaned avatar", slog.Any("error", delErr))
		}
		span.RecordError(err)
		return nil, fmt.Errorf("saving avatar: %w", err)
	}

	if current.Avatar != nil && *current.Avatar != url {
		if err := s.store.Delete(ctx, *current.Avatar); err != nil {
			l.WarnContext(ctx, "Failed to remove previous avatar", slog.Any("error", err))
		}
	}
	l.InfoContext(ctx, "Avatar updated")
	span.SetStatus(codes.Ok, "Avatar updated")
	return u, nil
}

func (s *UserServiceImpl) GetSettings(ctx context.Context, userID int64) (*types.UserSettings, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "GetSettings")
	defer span.End()
	return s.repo.GetSettings(ctx, userID)
}

func (s *UserServiceImpl) UpdateSettings(ctx context.Context, userID int64, params types.UpdateSettingsParams) (*types.UserSettings, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateSettings")
	defer span.End()

	if params.Email == nil && params.Offers == nil && params.Updates == nil {
		return nil, types.NewValidationError("body", "no fields to update")
	}
	return s.repo.UpdateSettings(ctx, userID, params)
}

func (s *UserServiceImpl) ListUsers(ctx context.Context, page types.Page) (*types.ListResponse[types.User], error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "ListUsers", trace.WithAttributes(
		attribute.Int64("page.skip", int64(page.Skip)),
		attribute.Int64("page.limit", int64(page.Limit)),
	))
	defer span.End()

	users, err := s.repo.ListUsers(ctx, page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "List failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Users listed")
	return &types.ListResponse[types.User]{Items: users, Skip: page.Skip, Limit: page.Limit}, nil
}

func (s *UserServiceImpl) GetUser(ctx context.Context, id int64) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "GetUser")
	defer span.End()
	return s.repo.GetUserByID(ctx, id)
}

// UpdateRole lets an admin promote or demote another account. Admins cannot change their own
// role, so the last admin cannot lock everyone out by accident.
func (s *UserServiceImpl) UpdateRole(ctx context.Context, actor *types.User, id int64, role types.Role) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateRole", trace.WithAttributes(
		attribute.Int64("target.id", id),
		attribute.String("target.role", string(role)),
	))
	defer span.End()

	if !role.Valid() {
		return nil, types.NewValidationError("role", "must be one of user, admin, merchant")
	}
	if actor == nil {
		return nil, types.ErrUnauthenticated
	}
	if actor.ID == id {
		return nil, types.NewValidationError("id", "cannot change your own role")
	}
	u, err := s.repo.UpdateRole(ctx, id, role)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return nil, err
	}
	s.logger.InfoContext(ctx, "User role changed",
		slog.Int64("actorID", actor.ID), slog.Int64("userID", id), slog.String("role", string(role)))
	span.SetStatus(codes.Ok, "Role updated")
	return u, nil
}
