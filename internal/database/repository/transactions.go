package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// TransactionFilters defines list filters.
type TransactionFilters struct {
	AccountID         int64 // 0 = all accounts
	OnlyUncategorized bool
	Search            string
}

// TransactionRepo handles transactions.
type TransactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

const transactionColumns = `id, account_id, date, payee, notes, amount, category,
 is_categorized, is_transfer, transfer_account_id, imported_id, import_session_id,
 created_at, updated_at`

func (r *TransactionRepo) Insert(ctx context.Context, t Transaction) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO transactions(
	 id, account_id, date, payee, notes, amount, category, is_categorized,
	 is_transfer, transfer_account_id, imported_id, import_session_id,
	 created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`,
		t.ID, t.AccountID, t.Date, t.Payee, t.Notes, t.Amount, t.Category,
		t.IsCategorized, t.IsTransfer, t.TransferAccountID, t.ImportedID, t.ImportSessionID)
	return err
}

// InsertBatch persists all rows inside one database transaction so a failed
// import never leaves a half-written file behind.
func (r *TransactionRepo) InsertBatch(ctx context.Context, rows []Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is a no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO transactions(
	 id, account_id, date, payee, notes, amount, category, is_categorized,
	 is_transfer, transfer_account_id, imported_id, import_session_id,
	 created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`)
	if err != nil {
		return fmt.Errorf("prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range rows {
		if _, err := stmt.ExecContext(ctx,
			t.ID, t.AccountID, t.Date, t.Payee, t.Notes, t.Amount, t.Category,
			t.IsCategorized, t.IsTransfer, t.TransferAccountID, t.ImportedID, t.ImportSessionID,
		); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

func (r *TransactionRepo) Get(ctx context.Context, id string) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepo) List(ctx context.Context, f TransactionFilters) ([]Transaction, error) {
	var where []string
	var args []interface{}

	if f.AccountID != 0 {
		where = append(where, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.OnlyUncategorized {
		where = append(where, "is_categorized = 0")
	}
	if f.Search != "" {
		where = append(where, "(payee LIKE ? OR notes LIKE ? OR category LIKE ?)")
		pat := "%" + f.Search + "%"
		args = append(args, pat, pat, pat)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, created_at DESC, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateCategory assigns a category and flips is_categorized. The engine never
// un-categorizes; clearing happens only through manual edits elsewhere.
func (r *TransactionRepo) UpdateCategory(ctx context.Context, id, category string) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE transactions
	SET category = ?, is_categorized = 1, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`, category, id)
	return err
}

func (r *TransactionRepo) MarkTransfer(ctx context.Context, id string, transferAccountID int64) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE transactions
	SET is_transfer = 1, transfer_account_id = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`, transferAccountID, id)
	return err
}

// ImportedIDs returns the full set of imported ids already stored for the
// account. This is the snapshot the duplicate filter partitions against.
func (r *TransactionRepo) ImportedIDs(ctx context.Context, accountID int64) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT imported_id FROM transactions
	WHERE account_id = ? AND imported_id IS NOT NULL`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// CountCategorizedInSession reports how many rows of one import session ended
// up categorized, for the session statistics.
func (r *TransactionRepo) CountCategorizedInSession(ctx context.Context, sessionID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM transactions
	WHERE import_session_id = ? AND is_categorized = 1`, sessionID).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID, &t.AccountID, &t.Date, &t.Payee, &t.Notes, &t.Amount, &t.Category,
		&t.IsCategorized, &t.IsTransfer, &t.TransferAccountID, &t.ImportedID,
		&t.ImportSessionID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}
