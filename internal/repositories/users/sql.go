package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/meditrack/internal/common"
	"github.com/dmitrijs2005/meditrack/internal/dbx"
	"github.com/dmitrijs2005/meditrack/internal/models"
)

var userColumns = []string{"id", "name", "email", "password_hash", "created_at"}

// SQLRepository keeps users in the users table created by the migrations.
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
	sb      squirrel.StatementBuilderType
}

func NewSQLRepository(db dbx.DBTX, d dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: d, sb: d.Builder()}
}

func (r *SQLRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	ins := r.sb.Insert("users").
		Columns("name", "email", "password_hash", "created_at").
		Values(user.Name, user.Email, user.PasswordHash, models.FormatTime(user.CreatedAt))

	var err error
	if r.dialect.IsPostgres() {
		query, args, buildErr := ins.Suffix("RETURNING id").ToSql()
		if buildErr != nil {
			return nil, fmt.Errorf("failed to build user insert: %w", buildErr)
		}
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&user.ID)
	} else {
		query, args, buildErr := ins.ToSql()
		if buildErr != nil {
			return nil, fmt.Errorf("failed to build user insert: %w", buildErr)
		}
		var res sql.Result
		res, err = r.db.ExecContext(ctx, query, args...)
		if err == nil {
			user.ID, err = res.LastInsertId()
		}
	}

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("user %s: %w", user.Email, common.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var (
		u       models.User
		created string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &created); err != nil {
		return nil, err
	}
	u.CreatedAt = models.Row{models.ColCreatedAt: created}.Time(models.ColCreatedAt)
	return &u, nil
}

func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query, args, err := r.sb.Select(userColumns...).From("users").Where(squirrel.Eq{"email": email}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}

	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", email, common.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]models.User, error) {
	query, args, err := r.sb.Select(userColumns...).From("users").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	query, args, err := r.sb.Update("users").Set("password_hash", passwordHash).
		Where(squirrel.Eq{"email": email}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build password update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if dbx.RowsAffected(res) == 0 {
		return fmt.Errorf("user %s: %w", email, common.ErrNotFound)
	}
	return nil
}
