package repository

import (
	"context"
	"database/sql"

	"permissions-manager/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	email := domain.NormalizeEmail(u.Email)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, is_admin) VALUES (?, ?)`,
		email, boolToInt(u.IsAdmin))
	if err != nil {
		return nil, mapDBError(err, domain.CodeUserNotFound, domain.CodeUserAlreadyExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, email, is_admin, created_at FROM users WHERE id = ?`, id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, email, is_admin, created_at FROM users WHERE email = ?`,
		domain.NormalizeEmail(email)))
}

func (r *UserRepo) ListAdmins(ctx context.Context, filter string, page domain.PageRequest) ([]domain.User, int64, error) {
	where := `WHERE is_admin = 1`
	args := []any{}
	if filter != "" {
		where += ` AND lower(email) LIKE ? ESCAPE '\'`
		args = append(args, likePattern(filter))
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, email, is_admin, created_at FROM users ` + where +
		` ORDER BY email ` + page.Order() + ` LIMIT ? OFFSET ?`
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		var isAdmin int64
		if err := rows.Scan(&u.ID, &u.Email, &isAdmin, &u.CreatedAt); err != nil {
			return nil, 0, err
		}
		u.IsAdmin = isAdmin != 0
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *UserRepo) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_admin = ? WHERE id = ?`, boolToInt(isAdmin), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound(domain.CodeUserNotFound, "user %d not found", id)
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound(domain.CodeUserNotFound, "user %d not found", id)
	}
	return nil
}

// DeleteIfOrphaned removes the user when it has no memberships left and does
// not carry the super admin flag. Reports whether a row was deleted.
func (r *UserRepo) DeleteIfOrphaned(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM users
		 WHERE id = ? AND is_admin = 0
		   AND NOT EXISTS (SELECT 1 FROM group_users WHERE user_id = users.id)`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *UserRepo) scanOne(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var isAdmin int64
	if err := row.Scan(&u.ID, &u.Email, &isAdmin, &u.CreatedAt); err != nil {
		return nil, mapDBError(err, domain.CodeUserNotFound, domain.CodeUserAlreadyExists)
	}
	u.IsAdmin = isAdmin != 0
	return &u, nil
}
