package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"permissions-manager/internal/domain"
)

type TopicRepo struct {
	db *sql.DB
}

func NewTopicRepo(db *sql.DB) *TopicRepo {
	return &TopicRepo{db: db}
}

const topicColumns = `t.id, t.name, t.kind, t.description, t.is_public,
	t.group_id, g.name, t.created_at`

func (r *TopicRepo) Create(ctx context.Context, t *domain.Topic) (*domain.Topic, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO topics (name, kind, description, is_public, group_id) VALUES (?, ?, ?, ?, ?)`,
		t.Name, string(t.Kind), t.Description, boolToInt(t.IsPublic), t.GroupID)
	if err != nil {
		return nil, mapDBError(err, domain.CodeTopicNotFound, domain.CodeTopicAlreadyExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *TopicRepo) GetByID(ctx context.Context, id int64) (*domain.Topic, error) {
	return scanTopic(r.db.QueryRowContext(ctx,
		`SELECT `+topicColumns+` FROM topics t
		 JOIN permissions_groups g ON g.id = t.group_id WHERE t.id = ?`, id))
}

func (r *TopicRepo) GetByGroupAndName(ctx context.Context, groupID int64, name string) (*domain.Topic, error) {
	return scanTopic(r.db.QueryRowContext(ctx,
		`SELECT `+topicColumns+` FROM topics t
		 JOIN permissions_groups g ON g.id = t.group_id
		 WHERE t.group_id = ? AND t.name = ?`, groupID, name))
}

// Update persists the mutable topic fields only. Name, kind and group stay
// as created.
func (r *TopicRepo) Update(ctx context.Context, t *domain.Topic) (*domain.Topic, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE topics SET description = ?, is_public = ? WHERE id = ?`,
		t.Description, boolToInt(t.IsPublic), t.ID)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrNotFound(domain.CodeTopicNotFound, "topic %d not found", t.ID)
	}
	return r.GetByID(ctx, t.ID)
}

// Delete removes the topic together with the permissions and partitions
// that reference it, in one transaction.
func (r *TopicRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	steps := []string{
		`DELETE FROM permission_partitions WHERE permission_id IN (
			SELECT id FROM application_permissions WHERE topic_id = ?1)`,
		`DELETE FROM application_permissions WHERE topic_id = ?1`,
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("topic cascade: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM topics WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound(domain.CodeTopicNotFound, "topic %d not found", id)
	}
	return tx.Commit()
}

// List returns topics owned by the given groups plus all public topics.
// A nil slice means no scoping (super admin); an empty slice scopes down to
// public topics only.
func (r *TopicRepo) List(ctx context.Context, groupIDs []int64, filter string, page domain.PageRequest) ([]domain.Topic, int64, error) {
	where, args := scopeClause("t", groupIDs)
	if filter != "" {
		where += ` AND lower(t.name) LIKE ? ESCAPE '\'`
		args = append(args, likePattern(filter))
	}

	base := ` FROM topics t JOIN permissions_groups g ON g.id = t.group_id WHERE ` + where

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+base, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + topicColumns + base +
		` ORDER BY t.name ` + page.Order() + `, t.id ASC LIMIT ? OFFSET ?`
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var topics []domain.Topic
	for rows.Next() {
		t, err := scanTopicRow(rows)
		if err != nil {
			return nil, 0, err
		}
		topics = append(topics, *t)
	}
	return topics, total, rows.Err()
}

// scopeClause builds the visibility predicate for topic and application
// listings: rows owned by one of the member groups, or publicly visible.
// groupIDs == nil means "all groups" (super admin); an empty non-nil slice
// means membership in no group.
func scopeClause(alias string, groupIDs []int64) (string, []any) {
	if groupIDs == nil {
		return `1 = 1`, nil
	}
	if len(groupIDs) == 0 {
		return alias + `.is_public = 1`, nil
	}
	placeholders := strings.Repeat("?,", len(groupIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(groupIDs))
	for _, id := range groupIDs {
		args = append(args, id)
	}
	return `(` + alias + `.group_id IN (` + placeholders + `) OR ` + alias + `.is_public = 1)`, args
}

func scanTopic(row *sql.Row) (*domain.Topic, error) {
	var t domain.Topic
	var kind string
	var isPublic int64
	err := row.Scan(&t.ID, &t.Name, &kind, &t.Description, &isPublic, &t.GroupID, &t.GroupName, &t.CreatedAt)
	if err != nil {
		return nil, mapDBError(err, domain.CodeTopicNotFound, domain.CodeTopicAlreadyExists)
	}
	t.Kind = domain.TopicKind(kind)
	t.IsPublic = isPublic != 0
	return &t, nil
}

func scanTopicRow(rows *sql.Rows) (*domain.Topic, error) {
	var t domain.Topic
	var kind string
	var isPublic int64
	err := rows.Scan(&t.ID, &t.Name, &kind, &t.Description, &isPublic, &t.GroupID, &t.GroupName, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Kind = domain.TopicKind(kind)
	t.IsPublic = isPublic != 0
	return &t, nil
}
