package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func insertTx(t *testing.T, repo *TransactionRepo, accountID int64, date string, payee string, amount float64, importedID string) Transaction {
	t.Helper()

	d, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	tx := Transaction{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Date:      d,
		Payee:     payee,
		Amount:    amount,
	}
	if importedID != "" {
		tx.ImportedID = &importedID
	}
	require.NoError(t, repo.Insert(context.Background(), tx))
	return tx
}

func TestTransactionRepoInsertAndGet(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	account := newTestAccount(t, db)
	repo := NewTransactionRepo(db)
	ctx := context.Background()

	inserted := insertTx(t, repo, account, "2024-03-01", "Amazon", -20.50, "2024-03-01_-20.5_abcd1234")

	got, err := repo.Get(ctx, inserted.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Amazon", got.Payee)
	require.InDelta(t, -20.50, got.Amount, 1e-9)
	require.False(t, got.IsCategorized)
	require.NotNil(t, got.ImportedID)
	require.Equal(t, "2024-03-01_-20.5_abcd1234", *got.ImportedID)

	missing, err := repo.Get(ctx, uuid.NewString())
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestTransactionRepoImportedIDUniquePerAccount(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	accountA := newTestAccount(t, db)
	accountB := newTestAccount(t, db)
	repo := NewTransactionRepo(db)

	id := "2024-03-01_-20.5_abcd1234"
	insertTx(t, repo, accountA, "2024-03-01", "Amazon", -20.50, id)

	// same imported id twice on the same account is rejected by the index
	dup := Transaction{
		ID: uuid.NewString(), AccountID: accountA,
		Date: time.Now(), Payee: "Amazon", Amount: -20.50, ImportedID: &id,
	}
	require.Error(t, repo.Insert(context.Background(), dup))

	// but the same id on a different account is fine
	insertTx(t, repo, accountB, "2024-03-01", "Amazon", -20.50, id)

	// manual rows without imported ids never collide
	insertTx(t, repo, accountA, "2024-03-02", "Cash", -10, "")
	insertTx(t, repo, accountA, "2024-03-03", "Cash", -10, "")
}

func TestTransactionRepoImportedIDs(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	accountA := newTestAccount(t, db)
	accountB := newTestAccount(t, db)
	repo := NewTransactionRepo(db)

	insertTx(t, repo, accountA, "2024-03-01", "Amazon", -20.50, "id-a-1")
	insertTx(t, repo, accountA, "2024-03-02", "Rewe", -31.20, "id-a-2")
	insertTx(t, repo, accountA, "2024-03-03", "Cash", -10, "")
	insertTx(t, repo, accountB, "2024-03-01", "Amazon", -20.50, "id-b-1")

	ids, err := repo.ImportedIDs(context.Background(), accountA)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.Contains(t, ids, "id-a-1")
	require.Contains(t, ids, "id-a-2")
	require.NotContains(t, ids, "id-b-1")
}

func TestTransactionRepoInsertBatchAtomic(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	account := newTestAccount(t, db)
	repo := NewTransactionRepo(db)
	ctx := context.Background()

	shared := "dup-id"
	rows := []Transaction{
		{ID: uuid.NewString(), AccountID: account, Date: time.Now(), Payee: "One", Amount: -1, ImportedID: &shared},
		{ID: uuid.NewString(), AccountID: account, Date: time.Now(), Payee: "Two", Amount: -2, ImportedID: &shared},
	}
	require.Error(t, repo.InsertBatch(ctx, rows))

	// the first row must have been rolled back with the second
	all, err := repo.List(ctx, TransactionFilters{AccountID: account})
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestTransactionRepoListFilters(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	account := newTestAccount(t, db)
	repo := NewTransactionRepo(db)
	ctx := context.Background()

	groceries := insertTx(t, repo, account, "2024-03-01", "REWE Markt", -31.20, "")
	insertTx(t, repo, account, "2024-03-02", "Amazon", -20.50, "")
	require.NoError(t, repo.UpdateCategory(ctx, groceries.ID, "Groceries"))

	uncategorized, err := repo.List(ctx, TransactionFilters{AccountID: account, OnlyUncategorized: true})
	require.NoError(t, err)
	require.Len(t, uncategorized, 1)
	require.Equal(t, "Amazon", uncategorized[0].Payee)

	bySearch, err := repo.List(ctx, TransactionFilters{Search: "rewe"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	require.Equal(t, "REWE Markt", bySearch[0].Payee)

	all, err := repo.List(ctx, TransactionFilters{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	// newest first
	require.Equal(t, "Amazon", all[0].Payee)
}

func TestTransactionRepoUpdateCategory(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	account := newTestAccount(t, db)
	repo := NewTransactionRepo(db)
	ctx := context.Background()

	tx := insertTx(t, repo, account, "2024-03-01", "REWE", -31.20, "")
	require.NoError(t, repo.UpdateCategory(ctx, tx.ID, "Groceries"))

	got, err := repo.Get(ctx, tx.ID)
	require.NoError(t, err)
	require.True(t, got.IsCategorized)
	require.NotNil(t, got.Category)
	require.Equal(t, "Groceries", *got.Category)
}

func TestTransactionRepoMarkTransfer(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	account := newTestAccount(t, db)
	target := newTestAccount(t, db)
	repo := NewTransactionRepo(db)
	ctx := context.Background()

	tx := insertTx(t, repo, account, "2024-03-01", "Own transfer", -500, "")
	require.NoError(t, repo.MarkTransfer(ctx, tx.ID, target))

	got, err := repo.Get(ctx, tx.ID)
	require.NoError(t, err)
	require.True(t, got.IsTransfer)
	require.NotNil(t, got.TransferAccountID)
	require.Equal(t, target, *got.TransferAccountID)
}

func TestTransactionRepoCountCategorizedInSession(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	account := newTestAccount(t, db)
	repo := NewTransactionRepo(db)
	ctx := context.Background()

	sessionID, err := NewImportRepo(db).CreateSession(ctx, ImportRecord{
		Filename: "march.csv", AccountID: account, BankFormat: "deutsche-bank",
	})
	require.NoError(t, err)

	var inSession []Transaction
	for i := 0; i < 3; i++ {
		importedID := fmt.Sprintf("id-%d", i)
		tx := Transaction{
			ID: uuid.NewString(), AccountID: account, Date: time.Now(),
			Payee: "REWE", Amount: -10, ImportedID: &importedID, ImportSessionID: &sessionID,
		}
		require.NoError(t, repo.Insert(ctx, tx))
		inSession = append(inSession, tx)
	}

	n, err := repo.CountCategorizedInSession(ctx, sessionID)
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, repo.UpdateCategory(ctx, inSession[0].ID, "Groceries"))
	require.NoError(t, repo.UpdateCategory(ctx, inSession[1].ID, "Groceries"))

	n, err = repo.CountCategorizedInSession(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
