package repository

import (
	"context"
	"database/sql"
)

// ImportRepo tracks import sessions (one row per orchestrator run).
type ImportRepo struct {
	db *sql.DB
}

func NewImportRepo(db *sql.DB) *ImportRepo { return &ImportRepo{db: db} }

// CreateSession records a new import session and returns its id. The
// categorized count is filled in after the rule pass completes.
func (r *ImportRepo) CreateSession(ctx context.Context, rec ImportRecord) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO import_history(
	 filename, account_id, bank_format, total_count, imported_count,
	 duplicate_count, categorized_count, file_hash, import_date)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		rec.Filename, rec.AccountID, rec.BankFormat, rec.TotalCount,
		rec.ImportedCount, rec.DuplicateCount, rec.CategorizedCount, rec.FileHash)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *ImportRepo) SetCategorizedCount(ctx context.Context, id int64, n int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE import_history SET categorized_count = ? WHERE id = ?`, n, id)
	return err
}

// Delete removes a session row, used to clean up when the batch insert after
// session creation fails.
func (r *ImportRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM import_history WHERE id = ?`, id)
	return err
}

// FindByFileHash reports an earlier session that imported a byte-identical
// file into the account, if any.
func (r *ImportRepo) FindByFileHash(ctx context.Context, accountID int64, hash string) (*ImportRecord, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, filename, account_id, bank_format, total_count, imported_count,
	 duplicate_count, categorized_count, file_hash, import_date
	FROM import_history
	WHERE account_id = ? AND file_hash = ?
	ORDER BY import_date DESC LIMIT 1`, accountID, hash)
	rec, err := scanImportRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns sessions newest-first, optionally scoped to one account.
func (r *ImportRepo) List(ctx context.Context, accountID int64, limit int) ([]ImportRecord, error) {
	query := `
	SELECT id, filename, account_id, bank_format, total_count, imported_count,
	 duplicate_count, categorized_count, file_hash, import_date
	FROM import_history`
	var args []interface{}
	if accountID != 0 {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY import_date DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ImportRecord
	for rows.Next() {
		rec, err := scanImportRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanImportRecord(row rowScanner) (ImportRecord, error) {
	var rec ImportRecord
	err := row.Scan(&rec.ID, &rec.Filename, &rec.AccountID, &rec.BankFormat,
		&rec.TotalCount, &rec.ImportedCount, &rec.DuplicateCount,
		&rec.CategorizedCount, &rec.FileHash, &rec.ImportDate)
	return rec, err
}
