package repository

import (
	"context"
	"database/sql"

	"permissions-manager/internal/domain"
)

type ApplicationGrantRepo struct {
	db *sql.DB
}

func NewApplicationGrantRepo(db *sql.DB) *ApplicationGrantRepo {
	return &ApplicationGrantRepo{db: db}
}

const applicationGrantColumns = `id, name, application_id, group_id, grant_duration_id, subject, created_at`

func (r *ApplicationGrantRepo) Create(ctx context.Context, g *domain.ApplicationGrant) (*domain.ApplicationGrant, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO application_grants (name, application_id, group_id, grant_duration_id, subject)
		 VALUES (?, ?, ?, ?, ?)`,
		g.Name, g.ApplicationID, g.GroupID, g.GrantDurationID, g.Subject)
	if err != nil {
		return nil, mapDBError(err, domain.CodeGrantNotFound, domain.CodeGrantAlreadyExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *ApplicationGrantRepo) GetByID(ctx context.Context, id int64) (*domain.ApplicationGrant, error) {
	var g domain.ApplicationGrant
	err := r.db.QueryRowContext(ctx,
		`SELECT `+applicationGrantColumns+` FROM application_grants WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.ApplicationID, &g.GroupID, &g.GrantDurationID, &g.Subject, &g.CreatedAt)
	if err != nil {
		return nil, mapDBError(err, domain.CodeGrantNotFound, domain.CodeGrantAlreadyExists)
	}
	return &g, nil
}

func (r *ApplicationGrantRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM application_grants WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound(domain.CodeGrantNotFound, "grant %d not found", id)
	}
	return nil
}

func (r *ApplicationGrantRepo) ListByApplication(ctx context.Context, applicationID int64) ([]domain.ApplicationGrant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+applicationGrantColumns+` FROM application_grants
		 WHERE application_id = ? ORDER BY id ASC`, applicationID)
	if err != nil {
		return nil, err
	}
	return collectGrants(rows)
}

func (r *ApplicationGrantRepo) ListByGroup(ctx context.Context, groupID int64, page domain.PageRequest) ([]domain.ApplicationGrant, int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM application_grants WHERE group_id = ?`, groupID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+applicationGrantColumns+` FROM application_grants
		 WHERE group_id = ? ORDER BY name `+page.Order()+` LIMIT ? OFFSET ?`,
		groupID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	grants, err := collectGrants(rows)
	if err != nil {
		return nil, 0, err
	}
	return grants, total, nil
}

func collectGrants(rows *sql.Rows) ([]domain.ApplicationGrant, error) {
	defer rows.Close()
	var grants []domain.ApplicationGrant
	for rows.Next() {
		var g domain.ApplicationGrant
		err := rows.Scan(&g.ID, &g.Name, &g.ApplicationID, &g.GroupID, &g.GrantDurationID, &g.Subject, &g.CreatedAt)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
