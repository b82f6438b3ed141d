package repository

import (
	"context"
	"database/sql"

	"permissions-manager/internal/domain"
)

type GroupUserRepo struct {
	db *sql.DB
}

func NewGroupUserRepo(db *sql.DB) *GroupUserRepo {
	return &GroupUserRepo{db: db}
}

const groupUserColumns = `gu.id, gu.group_id, gu.user_id, u.email,
	gu.group_admin, gu.topic_admin, gu.application_admin`

func (r *GroupUserRepo) Add(ctx context.Context, m *domain.GroupUser) (*domain.GroupUser, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO group_users (group_id, user_id, group_admin, topic_admin, application_admin)
		 VALUES (?, ?, ?, ?, ?)`,
		m.GroupID, m.UserID, boolToInt(m.GroupAdmin), boolToInt(m.TopicAdmin), boolToInt(m.ApplicationAdmin))
	if err != nil {
		return nil, mapDBError(err, domain.CodeMembershipNotFound, domain.CodeMembershipAlreadyExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *GroupUserRepo) GetByID(ctx context.Context, id int64) (*domain.GroupUser, error) {
	return scanGroupUser(r.db.QueryRowContext(ctx,
		`SELECT `+groupUserColumns+` FROM group_users gu
		 JOIN users u ON u.id = gu.user_id WHERE gu.id = ?`, id))
}

func (r *GroupUserRepo) Get(ctx context.Context, groupID, userID int64) (*domain.GroupUser, error) {
	return scanGroupUser(r.db.QueryRowContext(ctx,
		`SELECT `+groupUserColumns+` FROM group_users gu
		 JOIN users u ON u.id = gu.user_id WHERE gu.group_id = ? AND gu.user_id = ?`,
		groupID, userID))
}

func (r *GroupUserRepo) UpdateRoles(ctx context.Context, m *domain.GroupUser) (*domain.GroupUser, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE group_users SET group_admin = ?, topic_admin = ?, application_admin = ? WHERE id = ?`,
		boolToInt(m.GroupAdmin), boolToInt(m.TopicAdmin), boolToInt(m.ApplicationAdmin), m.ID)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrNotFound(domain.CodeMembershipNotFound, "membership %d not found", m.ID)
	}
	return r.GetByID(ctx, m.ID)
}

func (r *GroupUserRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM group_users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound(domain.CodeMembershipNotFound, "membership %d not found", id)
	}
	return nil
}

func (r *GroupUserRepo) ListByGroup(ctx context.Context, groupID int64, page domain.PageRequest) ([]domain.GroupUser, int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM group_users WHERE group_id = ?`, groupID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+groupUserColumns+` FROM group_users gu
		 JOIN users u ON u.id = gu.user_id
		 WHERE gu.group_id = ?
		 ORDER BY u.email `+page.Order()+` LIMIT ? OFFSET ?`,
		groupID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var members []domain.GroupUser
	for rows.Next() {
		var m domain.GroupUser
		var ga, ta, aa int64
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.UserEmail, &ga, &ta, &aa); err != nil {
			return nil, 0, err
		}
		m.GroupAdmin, m.TopicAdmin, m.ApplicationAdmin = ga != 0, ta != 0, aa != 0
		members = append(members, m)
	}
	return members, total, rows.Err()
}

func (r *GroupUserRepo) ListGroupIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT group_id FROM group_users WHERE user_id = ? ORDER BY group_id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanGroupUser(row *sql.Row) (*domain.GroupUser, error) {
	var m domain.GroupUser
	var ga, ta, aa int64
	err := row.Scan(&m.ID, &m.GroupID, &m.UserID, &m.UserEmail, &ga, &ta, &aa)
	if err != nil {
		return nil, mapDBError(err, domain.CodeMembershipNotFound, domain.CodeMembershipAlreadyExists)
	}
	m.GroupAdmin, m.TopicAdmin, m.ApplicationAdmin = ga != 0, ta != 0, aa != 0
	return &m, nil
}
