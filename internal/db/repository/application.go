package repository

import (
	"context"
	"database/sql"
	"fmt"

	"permissions-manager/internal/domain"
)

type ApplicationRepo struct {
	db *sql.DB
}

func NewApplicationRepo(db *sql.DB) *ApplicationRepo {
	return &ApplicationRepo{db: db}
}

const applicationColumns = `a.id, a.name, a.description, a.is_public,
	a.group_id, g.name, a.created_at`

func (r *ApplicationRepo) Create(ctx context.Context, a *domain.Application) (*domain.Application, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO applications (name, description, is_public, group_id) VALUES (?, ?, ?, ?)`,
		a.Name, a.Description, boolToInt(a.IsPublic), a.GroupID)
	if err != nil {
		return nil, mapDBError(err, domain.CodeApplicationNotFound, domain.CodeApplicationAlreadyExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *ApplicationRepo) GetByID(ctx context.Context, id int64) (*domain.Application, error) {
	return scanApplication(r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications a
		 JOIN permissions_groups g ON g.id = a.group_id WHERE a.id = ?`, id))
}

func (r *ApplicationRepo) GetByGroupAndName(ctx context.Context, groupID int64, name string) (*domain.Application, error) {
	return scanApplication(r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications a
		 JOIN permissions_groups g ON g.id = a.group_id
		 WHERE a.group_id = ? AND a.name = ?`, groupID, name))
}

// Update persists the mutable application fields only. Name and group stay
// as created.
func (r *ApplicationRepo) Update(ctx context.Context, a *domain.Application) (*domain.Application, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE applications SET description = ?, is_public = ? WHERE id = ?`,
		a.Description, boolToInt(a.IsPublic), a.ID)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrNotFound(domain.CodeApplicationNotFound, "application %d not found", a.ID)
	}
	return r.GetByID(ctx, a.ID)
}

// Delete removes the application together with its permissions, partitions,
// grants and cached grant document, in one transaction.
func (r *ApplicationRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	steps := []string{
		`DELETE FROM permission_partitions WHERE permission_id IN (
			SELECT id FROM application_permissions WHERE application_id = ?1)`,
		`DELETE FROM application_permissions WHERE application_id = ?1`,
		`DELETE FROM grant_documents WHERE application_id = ?1`,
		`DELETE FROM application_grants WHERE application_id = ?1`,
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("application cascade: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM applications WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound(domain.CodeApplicationNotFound, "application %d not found", id)
	}
	return tx.Commit()
}

// List returns applications owned by the given groups plus all public
// applications. A nil slice means no scoping (super admin); an empty slice
// scopes down to public applications only.
func (r *ApplicationRepo) List(ctx context.Context, groupIDs []int64, filter string, page domain.PageRequest) ([]domain.Application, int64, error) {
	where, args := scopeClause("a", groupIDs)
	if filter != "" {
		where += ` AND lower(a.name) LIKE ? ESCAPE '\'`
		args = append(args, likePattern(filter))
	}

	base := ` FROM applications a JOIN permissions_groups g ON g.id = a.group_id WHERE ` + where

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+base, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + applicationColumns + base +
		` ORDER BY a.name ` + page.Order() + `, a.id ASC LIMIT ? OFFSET ?`
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var apps []domain.Application
	for rows.Next() {
		var a domain.Application
		var isPublic int64
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &isPublic, &a.GroupID, &a.GroupName, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		a.IsPublic = isPublic != 0
		apps = append(apps, a)
	}
	return apps, total, rows.Err()
}

func scanApplication(row *sql.Row) (*domain.Application, error) {
	var a domain.Application
	var isPublic int64
	err := row.Scan(&a.ID, &a.Name, &a.Description, &isPublic, &a.GroupID, &a.GroupName, &a.CreatedAt)
	if err != nil {
		return nil, mapDBError(err, domain.CodeApplicationNotFound, domain.CodeApplicationAlreadyExists)
	}
	a.IsPublic = isPublic != 0
	return &a, nil
}
