package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestImportRepoSessionLifecycle(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	account := newTestAccount(t, db)
	repo := NewImportRepo(db)
	ctx := context.Background()

	id, err := repo.CreateSession(ctx, ImportRecord{
		Filename:       "march.csv",
		AccountID:      account,
		BankFormat:     "deutsche-bank",
		TotalCount:     10,
		ImportedCount:  8,
		DuplicateCount: 2,
		FileHash:       "deadbeef",
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	require.NoError(t, repo.SetCategorizedCount(ctx, id, 5))

	found, err := repo.FindByFileHash(ctx, account, "deadbeef")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, id, found.ID)
	require.Equal(t, "march.csv", found.Filename)
	require.Equal(t, 10, found.TotalCount)
	require.Equal(t, 8, found.ImportedCount)
	require.Equal(t, 2, found.DuplicateCount)
	require.Equal(t, 5, found.CategorizedCount)

	none, err := repo.FindByFileHash(ctx, account, "cafebabe")
	require.NoError(t, err)
	require.Nil(t, none)

	require.NoError(t, repo.Delete(ctx, id))
	found, err = repo.FindByFileHash(ctx, account, "deadbeef")
	require.NoError(t, err)
	require.Nil(t, found)
}

func TestImportRepoFileHashScopedToAccount(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	accountA := newTestAccount(t, db)
	accountB := newTestAccount(t, db)
	repo := NewImportRepo(db)
	ctx := context.Background()

	_, err := repo.CreateSession(ctx, ImportRecord{
		Filename: "march.csv", AccountID: accountA, BankFormat: "ing", FileHash: "deadbeef",
	})
	require.NoError(t, err)

	found, err := repo.FindByFileHash(ctx, accountB, "deadbeef")
	require.NoError(t, err)
	require.Nil(t, found, "a file imported into another account is not a repeat")
}

func TestImportRepoList(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	accountA := newTestAccount(t, db)
	accountB := newTestAccount(t, db)
	repo := NewImportRepo(db)
	ctx := context.Background()

	for i, account := range []int64{accountA, accountA, accountB} {
		_, err := repo.CreateSession(ctx, ImportRecord{
			Filename: "file.csv", AccountID: account, BankFormat: "standard",
			FileHash: string(rune('a' + i)),
		})
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// newest first; timestamps share a second, so the id tiebreak decides
	require.Greater(t, all[0].ID, all[1].ID)

	scoped, err := repo.List(ctx, accountA, 10)
	require.NoError(t, err)
	require.Len(t, scoped, 2)

	limited, err := repo.List(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestAccountRepo(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewAccountRepo(db)
	ctx := context.Background()

	id, err := repo.Create(ctx, Account{
		Name: "Giro", Bank: "ING", AccountNumber: "DE02", Currency: "EUR", IsActive: true,
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Giro", got.Name)
	require.Equal(t, "ING", got.Bank)
	require.True(t, got.IsActive)

	missing, err := repo.Get(ctx, id+100)
	require.NoError(t, err)
	require.Nil(t, missing)

	_, err = repo.Create(ctx, Account{Name: "Savings", Bank: "ING", Currency: "EUR", IsActive: true})
	require.NoError(t, err)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Giro", list[0].Name)
}
