package repository

import (
	"context"
	"database/sql"
	"fmt"

	"permissions-manager/internal/domain"
)

type ApplicationPermissionRepo struct {
	db *sql.DB
}

func NewApplicationPermissionRepo(db *sql.DB) *ApplicationPermissionRepo {
	return &ApplicationPermissionRepo{db: db}
}

// Create inserts the permission and its partition lists in one transaction.
// Partition order is preserved via the ord column.
func (r *ApplicationPermissionRepo) Create(ctx context.Context, p *domain.ApplicationPermission) (*domain.ApplicationPermission, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`INSERT INTO application_permissions (application_id, topic_id, can_read, can_write, valid_start, valid_end)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ApplicationID, p.TopicID, boolToInt(p.CanRead), boolToInt(p.CanWrite), p.ValidStart, p.ValidEnd)
	if err != nil {
		return nil, mapDBError(err, domain.CodePermissionNotFound, domain.CodePermissionAlreadyExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if err := insertPartitions(ctx, tx, id, domain.PartitionKindRead, p.ReadPartitions); err != nil {
		return nil, err
	}
	if err := insertPartitions(ctx, tx, id, domain.PartitionKindWrite, p.WritePartitions); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func insertPartitions(ctx context.Context, tx *sql.Tx, permissionID int64, kind string, names []string) error {
	for i, name := range names {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO permission_partitions (permission_id, kind, name, ord) VALUES (?, ?, ?, ?)`,
			permissionID, kind, name, i)
		if err != nil {
			return fmt.Errorf("insert %s partition: %w", kind, err)
		}
	}
	return nil
}

func (r *ApplicationPermissionRepo) GetByID(ctx context.Context, id int64) (*domain.ApplicationPermission, error) {
	p, err := scanPermission(r.db.QueryRowContext(ctx,
		`SELECT id, application_id, topic_id, can_read, can_write, valid_start, valid_end
		 FROM application_permissions WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadPartitions(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ApplicationPermissionRepo) Exists(ctx context.Context, applicationID, topicID int64) (bool, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM application_permissions WHERE application_id = ? AND topic_id = ?`,
		applicationID, topicID).Scan(&n)
	return n > 0, err
}

func (r *ApplicationPermissionRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM permission_partitions WHERE permission_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM application_permissions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound(domain.CodePermissionNotFound, "permission %d not found", id)
	}
	return tx.Commit()
}

// ListResolved joins each of the application's permissions with its topic.
// Ordering is by permission id, which is creation order.
func (r *ApplicationPermissionRepo) ListResolved(ctx context.Context, applicationID int64) ([]domain.ResolvedPermission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.application_id, p.topic_id, p.can_read, p.can_write, p.valid_start, p.valid_end,
		        t.id, t.name, t.kind, t.description, t.is_public, t.group_id, g.name, t.created_at
		 FROM application_permissions p
		 JOIN topics t ON t.id = p.topic_id
		 JOIN permissions_groups g ON g.id = t.group_id
		 WHERE p.application_id = ?
		 ORDER BY p.id ASC`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resolved []domain.ResolvedPermission
	for rows.Next() {
		var rp domain.ResolvedPermission
		var canRead, canWrite, isPublic int64
		var kind string
		err := rows.Scan(
			&rp.Permission.ID, &rp.Permission.ApplicationID, &rp.Permission.TopicID,
			&canRead, &canWrite, &rp.Permission.ValidStart, &rp.Permission.ValidEnd,
			&rp.Topic.ID, &rp.Topic.Name, &kind, &rp.Topic.Description, &isPublic,
			&rp.Topic.GroupID, &rp.Topic.GroupName, &rp.Topic.CreatedAt)
		if err != nil {
			return nil, err
		}
		rp.Permission.CanRead, rp.Permission.CanWrite = canRead != 0, canWrite != 0
		rp.Topic.Kind = domain.TopicKind(kind)
		rp.Topic.IsPublic = isPublic != 0
		resolved = append(resolved, rp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range resolved {
		if err := r.loadPartitions(ctx, &resolved[i].Permission); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func (r *ApplicationPermissionRepo) loadPartitions(ctx context.Context, p *domain.ApplicationPermission) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, name FROM permission_partitions WHERE permission_id = ? ORDER BY kind, ord ASC`,
		p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	p.ReadPartitions, p.WritePartitions = nil, nil
	for rows.Next() {
		var kind, name string
		if err := rows.Scan(&kind, &name); err != nil {
			return err
		}
		switch kind {
		case domain.PartitionKindRead:
			p.ReadPartitions = append(p.ReadPartitions, name)
		case domain.PartitionKindWrite:
			p.WritePartitions = append(p.WritePartitions, name)
		}
	}
	return rows.Err()
}

func scanPermission(row *sql.Row) (*domain.ApplicationPermission, error) {
	var p domain.ApplicationPermission
	var canRead, canWrite int64
	err := row.Scan(&p.ID, &p.ApplicationID, &p.TopicID, &canRead, &canWrite, &p.ValidStart, &p.ValidEnd)
	if err != nil {
		return nil, mapDBError(err, domain.CodePermissionNotFound, domain.CodePermissionAlreadyExists)
	}
	p.CanRead, p.CanWrite = canRead != 0, canWrite != 0
	return &p, nil
}
