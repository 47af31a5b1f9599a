package repository

import (
	"context"
	"database/sql"
)

// AccountRepo handles accounts.
type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{db: db} }

func (r *AccountRepo) Create(ctx context.Context, a Account) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO accounts(name, bank, account_number, currency, is_active)
	VALUES(?, ?, ?, ?, ?)`,
		a.Name, a.Bank, a.AccountNumber, a.Currency, a.IsActive)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *AccountRepo) Get(ctx context.Context, id int64) (*Account, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, name, bank, account_number, currency, is_active
	FROM accounts WHERE id = ?`, id)
	var a Account
	err := row.Scan(&a.ID, &a.Name, &a.Bank, &a.AccountNumber, &a.Currency, &a.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, name, bank, account_number, currency, is_active
	FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Bank, &a.AccountNumber, &a.Currency, &a.IsActive); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
