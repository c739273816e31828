package auth

import (
	"context"
	"fmt"
	"log/slog"
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

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// AuthRepo is the credential-facing view of the users table.
type AuthRepo interface {
	// GetUserByEmail returns types.ErrNotFound for unknown addresses. Matching is case-sensitive.
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	// CreateUser inserts the user and its default settings row; duplicate email is types.ErrConflict.
	CreateUser(ctx context.Context, user *types.User) (*types.User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

var userColumns = []string{
	"id", "first_name", "last_name", "email", "password_hash", "role", "avatar", "phone",
	"address_line1", "address_line2", "city", "region", "postal_code", "country",
	"created_at", "updated_at",
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	db     database.DB
}

func NewPostgresAuthRepo(db database.DB, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{logger: logger, db: db}
}

func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByEmail", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "users", "SELECT", time.Now())

	query, args, err := squirrel.Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"email": email}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}

	var user types.User
	if err := pgxscan.Get(ctx, r.db, &user, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			span.SetStatus(codes.Ok, "User not found")
			return nil, fmt.Errorf("user %q: %w", email, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("fetching user by email: %w", err)
	}
	span.SetStatus(codes.Ok, "User found")
	return &user, nil
}

func (r *PostgresAuthRepo) CreateUser(ctx context.Context, user *types.User) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "CreateUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "users", "INSERT", time.Now())

	l := r.logger.With(slog.String("method", "CreateUser"))

	query, args, err := squirrel.Insert("users").
		Columns("first_name", "last_name", "email", "password_hash", "role", "phone").
		Values(user.FirstName, user.LastName, user.Email, user.PasswordHash, user.Role, user.Phone).
		Suffix("RETURNING id, created_at, updated_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert query: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created := *user
	if err := tx.QueryRow(ctx, query, args...).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		l.WarnContext(ctx, "Failed to insert user", slog.Any("error", err))
		return nil, api.TranslateDBError(err, "inserting user", "Email already registered")
	}
	if _, err := tx.Exec(ctx, `INSERT INTO user_settings (user_id) VALUES ($1)`, created.ID); err != nil {
		span.RecordError(err)
		return nil, api.TranslateDBError(err, "inserting user settings", "Settings already exist")
	}
	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("committing user insert: %w", err)
	}

	l.InfoContext(ctx, "User created", slog.Int64("userID", created.ID))
	span.SetStatus(codes.Ok, "User created")
	return &created, nil
}

func (r *PostgresAuthRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "UpdatePassword", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.Int64("db.user.id", userID),
	))
	defer span.End()
	defer metrics.RecordDBQuery(ctx, "users", "UPDATE", time.Now())

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return fmt.Errorf("updating password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", userID, types.ErrNotFound)
	}
	span.SetStatus(codes.Ok, "Password updated")
	return nil
}
