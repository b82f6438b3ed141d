package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"permissions-manager/internal/domain"
)

type GroupRepo struct {
	db *sql.DB
}

func NewGroupRepo(db *sql.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

func (r *GroupRepo) Create(ctx context.Context, g *domain.Group) (*domain.Group, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO permissions_groups (name, description, is_public) VALUES (?, ?, ?)`,
		strings.TrimSpace(g.Name), g.Description, boolToInt(g.IsPublic))
	if err != nil {
		return nil, mapDBError(err, domain.CodeGroupNotFound, domain.CodeGroupAlreadyExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *GroupRepo) GetByID(ctx context.Context, id int64) (*domain.Group, error) {
	return scanGroup(r.db.QueryRowContext(ctx,
		`SELECT id, name, description, is_public, created_at FROM permissions_groups WHERE id = ?`, id))
}

func (r *GroupRepo) GetByName(ctx context.Context, name string) (*domain.Group, error) {
	return scanGroup(r.db.QueryRowContext(ctx,
		`SELECT id, name, description, is_public, created_at FROM permissions_groups WHERE name = ?`,
		strings.TrimSpace(name)))
}

func (r *GroupRepo) Update(ctx context.Context, g *domain.Group) (*domain.Group, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE permissions_groups SET name = ?, description = ? WHERE id = ?`,
		strings.TrimSpace(g.Name), g.Description, g.ID)
	if err != nil {
		return nil, mapDBError(err, domain.CodeGroupNotFound, domain.CodeGroupAlreadyExists)
	}
	return r.GetByID(ctx, g.ID)
}

// UpdateVisibility sets the group's visibility inside one immediate
// transaction. On a public→private transition it forces every owned topic
// and application private, then re-checks the invariant before commit; a
// violation rolls the whole cascade back.
func (r *GroupRepo) UpdateVisibility(ctx context.Context, id int64, isPublic bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin visibility tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var oldPublic int64
	err = tx.QueryRowContext(ctx,
		`SELECT is_public FROM permissions_groups WHERE id = ?`, id).Scan(&oldPublic)
	if err != nil {
		return mapDBError(err, domain.CodeGroupNotFound, domain.CodeGroupAlreadyExists)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE permissions_groups SET is_public = ? WHERE id = ?`, boolToInt(isPublic), id); err != nil {
		return err
	}

	if oldPublic != 0 && !isPublic {
		if _, err := tx.ExecContext(ctx,
			`UPDATE topics SET is_public = 0 WHERE group_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE applications SET is_public = 0 WHERE group_id = ?`, id); err != nil {
			return err
		}
	}

	if !isPublic {
		var violations int64
		err = tx.QueryRowContext(ctx,
			`SELECT (SELECT COUNT(*) FROM topics WHERE group_id = ? AND is_public = 1)
			      + (SELECT COUNT(*) FROM applications WHERE group_id = ? AND is_public = 1)`,
			id, id).Scan(&violations)
		if err != nil {
			return err
		}
		if violations > 0 {
			return domain.ErrCascadeIntegrity(
				"group %d is private but %d owned entities remain public", id, violations)
		}
	}

	return tx.Commit()
}

// Delete removes the group and everything it owns in one transaction:
// permission partitions, application permissions, grant documents,
// application grants, grant durations, applications, topics and
// memberships, then any users orphaned by the membership removals.
func (r *GroupRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int64
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM permissions_groups WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return domain.ErrNotFound(domain.CodeGroupNotFound, "group %d not found", id)
	}

	// Member user ids are captured before the membership rows go away so the
	// orphan sweep below can target them.
	memberIDs, err := collectInt64s(tx, ctx,
		`SELECT user_id FROM group_users WHERE group_id = ?`, id)
	if err != nil {
		return err
	}

	steps := []string{
		`DELETE FROM permission_partitions WHERE permission_id IN (
			SELECT id FROM application_permissions
			WHERE application_id IN (SELECT id FROM applications WHERE group_id = ?1)
			   OR topic_id IN (SELECT id FROM topics WHERE group_id = ?1))`,
		`DELETE FROM application_permissions
		 WHERE application_id IN (SELECT id FROM applications WHERE group_id = ?1)
		    OR topic_id IN (SELECT id FROM topics WHERE group_id = ?1)`,
		`DELETE FROM grant_documents
		 WHERE application_id IN (SELECT id FROM applications WHERE group_id = ?1)`,
		`DELETE FROM application_grants
		 WHERE group_id = ?1
		    OR application_id IN (SELECT id FROM applications WHERE group_id = ?1)`,
		`DELETE FROM grant_durations WHERE group_id = ?1`,
		`DELETE FROM applications WHERE group_id = ?1`,
		`DELETE FROM topics WHERE group_id = ?1`,
		`DELETE FROM group_users WHERE group_id = ?1`,
		`DELETE FROM permissions_groups WHERE id = ?1`,
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("group cascade: %w", err)
		}
	}

	for _, uid := range memberIDs {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM users
			 WHERE id = ? AND is_admin = 0
			   AND NOT EXISTS (SELECT 1 FROM group_users WHERE user_id = users.id)`, uid)
		if err != nil {
			return fmt.Errorf("orphan user sweep: %w", err)
		}
	}

	return tx.Commit()
}

func (r *GroupRepo) ListAll(ctx context.Context, f domain.GroupFilter, page domain.PageRequest) ([]domain.Group, int64, error) {
	where := ""
	args := []any{}
	if f.Filter != "" {
		where = ` WHERE (lower(name) LIKE ?1 ESCAPE '\' OR lower(description) LIKE ?1 ESCAPE '\')`
		args = append(args, likePattern(f.Filter))
	}

	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM permissions_groups`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, name, description, is_public, created_at FROM permissions_groups` +
		where + ` ORDER BY name ` + page.Order() + ` LIMIT ? OFFSET ?`
	args = append(args, page.Limit(), page.Offset())

	groups, err := r.queryGroups(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return groups, total, nil
}

// ListForUser lists the groups the user is a member of, optionally filtered
// by substring and by a role the user must hold in the group.
func (r *GroupRepo) ListForUser(ctx context.Context, userID int64, f domain.GroupFilter, page domain.PageRequest) ([]domain.Group, int64, error) {
	where := ` WHERE gu.user_id = ?`
	args := []any{userID}

	switch f.Role {
	case domain.RoleFilterGroupAdmin:
		where += ` AND gu.group_admin = 1`
	case domain.RoleFilterApplicationAdmin:
		where += ` AND gu.application_admin = 1`
	}
	if f.Filter != "" {
		where += ` AND (lower(g.name) LIKE ? ESCAPE '\' OR lower(g.description) LIKE ? ESCAPE '\')`
		p := likePattern(f.Filter)
		args = append(args, p, p)
	}

	base := ` FROM permissions_groups g JOIN group_users gu ON gu.group_id = g.id` + where

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+base, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT g.id, g.name, g.description, g.is_public, g.created_at` + base +
		` ORDER BY g.name ` + page.Order() + ` LIMIT ? OFFSET ?`
	args = append(args, page.Limit(), page.Offset())

	groups, err := r.queryGroups(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return groups, total, nil
}

func (r *GroupRepo) queryGroups(ctx context.Context, query string, args ...any) ([]domain.Group, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []domain.Group
	for rows.Next() {
		var g domain.Group
		var isPublic int64
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &isPublic, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.IsPublic = isPublic != 0
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func scanGroup(row *sql.Row) (*domain.Group, error) {
	var g domain.Group
	var isPublic int64
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &isPublic, &g.CreatedAt); err != nil {
		return nil, mapDBError(err, domain.CodeGroupNotFound, domain.CodeGroupAlreadyExists)
	}
	g.IsPublic = isPublic != 0
	return &g, nil
}

func collectInt64s(tx *sql.Tx, ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
