package repository

import (
	"context"
	"database/sql"

	"permissions-manager/internal/domain"
)

type GrantDurationRepo struct {
	db *sql.DB
}

func NewGrantDurationRepo(db *sql.DB) *GrantDurationRepo {
	return &GrantDurationRepo{db: db}
}

func (r *GrantDurationRepo) Create(ctx context.Context, d *domain.GrantDuration) (*domain.GrantDuration, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO grant_durations (group_id, name, duration_seconds) VALUES (?, ?, ?)`,
		d.GroupID, d.Name, d.DurationSeconds)
	if err != nil {
		return nil, mapDBError(err, domain.CodeDurationNotFound, domain.CodeDurationAlreadyExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *GrantDurationRepo) GetByID(ctx context.Context, id int64) (*domain.GrantDuration, error) {
	var d domain.GrantDuration
	err := r.db.QueryRowContext(ctx,
		`SELECT id, group_id, name, duration_seconds, created_at FROM grant_durations WHERE id = ?`,
		id).Scan(&d.ID, &d.GroupID, &d.Name, &d.DurationSeconds, &d.CreatedAt)
	if err != nil {
		return nil, mapDBError(err, domain.CodeDurationNotFound, domain.CodeDurationAlreadyExists)
	}
	return &d, nil
}

func (r *GrantDurationRepo) Update(ctx context.Context, d *domain.GrantDuration) (*domain.GrantDuration, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE grant_durations SET name = ?, duration_seconds = ? WHERE id = ?`,
		d.Name, d.DurationSeconds, d.ID)
	if err != nil {
		return nil, mapDBError(err, domain.CodeDurationNotFound, domain.CodeDurationAlreadyExists)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrNotFound(domain.CodeDurationNotFound, "grant duration %d not found", d.ID)
	}
	return r.GetByID(ctx, d.ID)
}

func (r *GrantDurationRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM grant_durations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound(domain.CodeDurationNotFound, "grant duration %d not found", id)
	}
	return nil
}

func (r *GrantDurationRepo) List(ctx context.Context, groupID int64, page domain.PageRequest) ([]domain.GrantDuration, int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM grant_durations WHERE group_id = ?`, groupID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, group_id, name, duration_seconds, created_at FROM grant_durations
		 WHERE group_id = ? ORDER BY name `+page.Order()+` LIMIT ? OFFSET ?`,
		groupID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var durations []domain.GrantDuration
	for rows.Next() {
		var d domain.GrantDuration
		if err := rows.Scan(&d.ID, &d.GroupID, &d.Name, &d.DurationSeconds, &d.CreatedAt); err != nil {
			return nil, 0, err
		}
		durations = append(durations, d)
	}
	return durations, total, rows.Err()
}

// CountGrants reports how many application grants reference the duration.
// A non-zero count blocks deletion at the service layer.
func (r *GrantDurationRepo) CountGrants(ctx context.Context, durationID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM application_grants WHERE grant_duration_id = ?`, durationID).Scan(&n)
	return n, err
}
