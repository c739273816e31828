package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-shop-backend/app/db"
	"github.com/FACorreiaa/go-shop-backend/app/observability/metrics"
	"github.com/FACorreiaa/go-shop-backend/internal/api"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

var _ UserRepo = (*PostgresUserRepo)(nil)

type UserRepo interface {
	GetUserByID(ctx context.Context, id int64) (*types.User, error)
	ListUsers(ctx context.Context, page types.Page) ([]types.User, error)
	UpdateProfile(ctx context.Context, id int64, params types.UpdateProfileParams) (*types.User, error)
	UpdateAvatar(ctx context.Context, id int64, avatarURL string) (*types.User, error)
	UpdateRole(ctx context.Context, id int64, role types.Role) (*types.User, error)

	GetSettings(ctx context.Context, userID int64) (*types.UserSettings, error)
	UpdateSettings(ctx context.Context, userID int64, params types.UpdateSettingsParams) (*types.UserSettings, error)
}

var profileColumns = []string{
	"id", "first_name", "last_name", "email", "password_hash", "role", "avatar", "phone",
	"address_line1", "address_line2", "city", "region", "postal_code", "country",
	"created_at", "updated_at",
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

type PostgresUserRepo struct {
	logger *slog.Logger
	db     database.DB
}

func NewPostgresUserRepo(db database.DB, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{logger: logger, db: db}
}

func startSpan(ctx context.Context, name, op, table string) (context.Context, trace.Span) {
	return otel.Tracer("UserRepo").Start(ctx, name, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", op),
		attribute.String("db.sql.table", table),
	))
}

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, id int64) (*types.User, error) {
	ctx, span := startSpan(ctx, "GetUserByID", "SELECT", "users")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "users", "SELECT", time.Now())

	query, args, err := psql.Select(profileColumns...).From("users").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}

	var u types.User
	if err := pgxscan.Get(ctx, r.db, &u, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, fmt.Errorf("user %d: %w", id, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	span.SetStatus(codes.Ok, "User found")
	return &u, nil
}

func (r *PostgresUserRepo) ListUsers(ctx context.Context, page types.Page) ([]types.User, error) {
	ctx, span := startSpan(ctx, "ListUsers", "SELECT", "users")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "users", "SELECT", time.Now())

	query, args, err := psql.Select(profileColumns...).From("users").
		OrderBy("id").Offset(page.Skip).Limit(page.Limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list query: %w", err)
	}

	users := []types.User{}
	if err := pgxscan.Select(ctx, r.db, &users, query, args...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("listing users: %w", err)
	}
	span.SetAttributes(attribute.Int("results.count", len(users)))
	span.SetStatus(codes.Ok, "Users listed")
	return users, nil
}

func (r *PostgresUserRepo) updateUser(ctx context.Context, id int64, set map[string]any) (*types.User, error) {
	set["updated_at"] = squirrel.Expr("NOW()")
	query, args, err := psql.Update("users").SetMap(set).Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(profileColumns, ", ")).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building update query: %w", err)
	}

	var u types.User
	if err := pgxscan.Get(ctx, r.db, &u, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, fmt.Errorf("user %d: %w", id, types.ErrNotFound)
		}
		return nil, api.TranslateDBError(err, "updating user", "User already exists")
	}
	return &u, nil
}

func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id int64, params types.UpdateProfileParams) (*types.User, error) {
	ctx, span := startSpan(ctx, "UpdateProfile", "UPDATE", "users")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "users", "UPDATE", time.Now())

	set := map[string]any{}
	addIfSet(set, "first_name", params.FirstName)
	addIfSet(set, "last_name", params.LastName)
	addIfSet(set, "phone", params.Phone)
	addIfSet(set, "address_line1", params.AddressLine1)
	addIfSet(set, "address_line2", params.AddressLine2)
	addIfSet(set, "city", params.City)
	addIfSet(set, "region", params.Region)
	addIfSet(set, "postal_code", params.PostalCode)
	addIfSet(set, "country", params.Country)

	u, err := r.updateUser(ctx, id, set)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return nil, err
	}
	r.logger.InfoContext(ctx, "Profile updated", slog.Int64("userID", id), slog.Int("fields", len(set)-1))
	span.SetStatus(codes.Ok, "Profile updated")
	return u, nil
}

func (r *PostgresUserRepo) UpdateAvatar(ctx context.Context, id int64, avatarURL string) (*types.User, error) {
	ctx, span := startSpan(ctx, "UpdateAvatar", "UPDATE", "users")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "users", "UPDATE", time.Now())

	u, err := r.updateUser(ctx, id, map[string]any{"avatar": avatarURL})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Avatar updated")
	return u, nil
}

func (r *PostgresUserRepo) UpdateRole(ctx context.Context, id int64, role types.Role) (*types.User, error) {
	ctx, span := startSpan(ctx, "UpdateRole", "UPDATE", "users")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "users", "UPDATE", time.Now())

	u, err := r.updateUser(ctx, id, map[string]any{"role": role})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return nil, err
	}
	r.logger.InfoContext(ctx, "Role updated", slog.Int64("userID", id), slog.String("role", string(role)))
	span.SetStatus(codes.Ok, "Role updated")
	return u, nil
}

func (r *PostgresUserRepo) GetSettings(ctx context.Context, userID int64) (*types.UserSettings, error) {
	ctx, span := startSpan(ctx, "GetSettings", "SELECT", "user_settings")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "user_settings", "SELECT", time.Now())

	var s types.UserSettings
	err := pgxscan.Get(ctx, r.db, &s,
		`SELECT user_id, email, offers, updates FROM user_settings WHERE user_id = $1`, userID)
	if err != nil {
		if pgxscan.NotFound(err) {
			// Rows are created at sign up; accounts seeded by hand fall back to defaults.
			return &types.UserSettings{UserID: userID, Email: true, Offers: true, Updates: true}, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("fetching settings: %w", err)
	}
	span.SetStatus(codes.Ok, "Settings found")
	return &s, nil
}

func (r *PostgresUserRepo) UpdateSettings(ctx context.Context, userID int64, params types.UpdateSettingsParams) (*types.UserSettings, error) {
	ctx, span := startSpan(ctx, "UpdateSettings", "UPSERT", "user_settings")
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "user_settings", "UPSERT", time.Now())

	var s types.UserSettings
	err := pgxscan.Get(ctx, r.db, &s, `
		INSERT INTO user_settings (user_id, email, offers, updates)
		VALUES ($1, COALESCE($2::boolean, TRUE), COALESCE($3::boolean, TRUE), COALESCE($4::boolean, TRUE))
		ON CONFLICT (user_id) DO UPDATE SET
			email   = COALESCE($2, user_settings.email),
			offers  = COALESCE($3, user_settings.offers),
			updates = COALESCE($4, user_settings.updates)
		RETURNING user_id, email, offers, updates`,
		userID, params.Email, params.Offers, params.Updates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Upsert failed")
		return nil, api.TranslateDBError(err, "updating settings", "Settings already exist")
	}
	span.SetStatus(codes.Ok, "Settings updated")
	return &s, nil
}

func addIfSet(set map[string]any, column string, v *string) {
	if v != nil {
		set[column] = *v
	}
}
