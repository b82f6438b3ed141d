package repository

import (
	"context"
	"database/sql"

	"permissions-manager/internal/domain"
)

type GrantDocumentRepo struct {
	db *sql.DB
}

func NewGrantDocumentRepo(db *sql.DB) *GrantDocumentRepo {
	return &GrantDocumentRepo{db: db}
}

// Put upserts the application's cached document.
func (r *GrantDocumentRepo) Put(ctx context.Context, d *domain.GrantDocument) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO grant_documents (application_id, document, etag, compiled_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(application_id) DO UPDATE SET
		   document = excluded.document,
		   etag = excluded.etag,
		   compiled_at = excluded.compiled_at`,
		d.ApplicationID, d.Document, d.ETag, d.CompiledAt)
	return err
}

func (r *GrantDocumentRepo) Get(ctx context.Context, applicationID int64) (*domain.GrantDocument, error) {
	var d domain.GrantDocument
	err := r.db.QueryRowContext(ctx,
		`SELECT application_id, document, etag, compiled_at FROM grant_documents WHERE application_id = ?`,
		applicationID).Scan(&d.ApplicationID, &d.Document, &d.ETag, &d.CompiledAt)
	if err != nil {
		return nil, mapDBError(err, domain.CodeGrantDocumentNotFound, "")
	}
	return &d, nil
}

// Invalidate drops the application's cached document.
func (r *GrantDocumentRepo) Invalidate(ctx context.Context, applicationID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM grant_documents WHERE application_id = ?`, applicationID)
	return err
}

// ListStaleApplicationIDs returns every application holding at least one
// grant, whether or not a document is cached yet. The periodic refresher
// re-materializes all of them.
func (r *GrantDocumentRepo) ListStaleApplicationIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT application_id FROM application_grants ORDER BY application_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
