package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/potzenhotz/sankash/internal/bank"
	"github.com/potzenhotz/sankash/internal/dedup"
	"github.com/potzenhotz/sankash/internal/database/repository"
)

// ImportService composes the import pipeline: normalize, assign imported ids,
// filter duplicates, persist, run rules, record statistics.
type ImportService struct {
	Transactions *repository.TransactionRepo
	Accounts     *repository.AccountRepo
	Imports      *repository.ImportRepo
	Rules        *RuleService
	Log          zerolog.Logger
}

// ImportStats summarizes one import session. Warnings carry rejected rows and
// failed rule actions; they accompany a successful import rather than failing it.
type ImportStats struct {
	Total       int
	Imported    int
	Duplicates  int
	Categorized int
	SessionID   int64
	Warnings    []error
}

// ImportFile runs the full pipeline for one CSV file. Normalization and
// id-assignment failures abort before anything is persisted. Once the batch
// is committed, a failing rule pass leaves the inserted rows in place and is
// reported through Warnings.
func (s *ImportService) ImportFile(ctx context.Context, path string, accountID int64, format bank.Format) (ImportStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportStats{}, fmt.Errorf("read import file: %w", err)
	}
	fileHash := hashBytes(data)

	account, err := s.Accounts.Get(ctx, accountID)
	if err != nil {
		return ImportStats{}, fmt.Errorf("look up account %d: %w", accountID, err)
	}
	if account == nil {
		return ImportStats{}, fmt.Errorf("account %d does not exist", accountID)
	}

	if prev, err := s.Imports.FindByFileHash(ctx, accountID, fileHash); err == nil && prev != nil {
		s.Log.Info().Str("file", prev.Filename).Time("imported_at", prev.ImportDate).
			Msg("identical file was imported before; duplicate filter will drop its rows")
	}

	res, err := bank.Normalize(bytes.NewReader(data), format)
	if err != nil {
		return ImportStats{}, withFileDiagnostics(err, data)
	}

	candidates := dedup.AssignIDs(res.Transactions, accountID)

	existing, err := s.Transactions.ImportedIDs(ctx, accountID)
	if err != nil {
		return ImportStats{}, fmt.Errorf("load existing imported ids: %w", err)
	}
	fresh, duplicates, err := dedup.Partition(candidates, existing)
	if err != nil {
		return ImportStats{}, err
	}

	stats := ImportStats{
		Total:      len(candidates),
		Imported:   len(fresh),
		Duplicates: len(duplicates),
		Warnings:   res.RowErrors,
	}

	sessionID, err := s.Imports.CreateSession(ctx, repository.ImportRecord{
		Filename:       filepath.Base(path),
		AccountID:      accountID,
		BankFormat:     string(format),
		TotalCount:     stats.Total,
		ImportedCount:  stats.Imported,
		DuplicateCount: stats.Duplicates,
		FileHash:       fileHash,
	})
	if err != nil {
		return ImportStats{}, fmt.Errorf("create import session: %w", err)
	}
	stats.SessionID = sessionID

	if err := s.Transactions.InsertBatch(ctx, candidatesToRows(fresh, sessionID)); err != nil {
		// Best effort: do not leave an empty session behind.
		_ = s.Imports.Delete(ctx, sessionID)
		return ImportStats{}, fmt.Errorf("persist imported transactions: %w", err)
	}

	// Deliberately runs over all uncategorized transactions, not just this
	// session's rows, so older imports benefit from rules added since.
	applied, ruleWarnings, err := s.Rules.ApplyToUncategorized(ctx)
	stats.Warnings = append(stats.Warnings, ruleWarnings...)
	if err != nil {
		stats.Warnings = append(stats.Warnings, fmt.Errorf("rule pass failed after import: %w", err))
	}

	categorized, err := s.Transactions.CountCategorizedInSession(ctx, sessionID)
	if err != nil {
		stats.Warnings = append(stats.Warnings, fmt.Errorf("count categorized rows: %w", err))
	} else {
		stats.Categorized = categorized
		if err := s.Imports.SetCategorizedCount(ctx, sessionID, categorized); err != nil {
			stats.Warnings = append(stats.Warnings, fmt.Errorf("record categorized count: %w", err))
		}
	}

	s.Log.Info().
		Int64("session", sessionID).
		Int64("account", accountID).
		Str("format", string(format)).
		Int("total", stats.Total).
		Int("imported", stats.Imported).
		Int("duplicates", stats.Duplicates).
		Int("categorized", stats.Categorized).
		Int("rules_applied_total", applied).
		Msg("import complete")
	return stats, nil
}

// PreviewImport normalizes and assigns ids without touching storage,
// returning the head of the candidate list.
func (s *ImportService) PreviewImport(path string, accountID int64, format bank.Format, limit int) ([]dedup.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	res, err := bank.Normalize(bytes.NewReader(data), format)
	if err != nil {
		return nil, withFileDiagnostics(err, data)
	}
	candidates := dedup.AssignIDs(res.Transactions, accountID)
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// FindSimilar is the manual duplicate check: transactions on the account with
// the same amount and calendar date whose payee is close to the given one.
func (s *ImportService) FindSimilar(ctx context.Context, accountID int64, date time.Time, amount float64, payee string) ([]repository.Transaction, error) {
	txs, err := s.Transactions.List(ctx, repository.TransactionFilters{AccountID: accountID})
	if err != nil {
		return nil, err
	}
	var out []repository.Transaction
	for _, t := range txs {
		if t.Amount != amount || !sameDay(t.Date, date) {
			continue
		}
		if payeeSimilar(t.Payee, payee) {
			out = append(out, t)
		}
	}
	return out, nil
}

func payeeSimilar(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if strings.Contains(la, lb) || strings.Contains(lb, la) {
		return true
	}
	longest := len(la)
	if len(lb) > longest {
		longest = len(lb)
	}
	if longest == 0 {
		return false
	}
	dist := levenshtein.ComputeDistance(la, lb)
	return float64(dist)/float64(longest) < 0.4
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func candidatesToRows(candidates []dedup.Candidate, sessionID int64) []repository.Transaction {
	rows := make([]repository.Transaction, 0, len(candidates))
	for _, c := range candidates {
		importedID := c.ImportedID
		session := sessionID
		rows = append(rows, repository.Transaction{
			ID:              uuid.NewString(),
			AccountID:       c.AccountID,
			Date:            c.Date,
			Payee:           c.Payee,
			Notes:           c.Notes,
			Amount:          c.Amount,
			ImportedID:      &importedID,
			ImportSessionID: &session,
		})
	}
	return rows
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// withFileDiagnostics attaches the first raw lines of the file to a
// normalization error so the user can see what the parser saw.
func withFileDiagnostics(err error, data []byte) error {
	lines := strings.SplitN(string(data), "\n", 4)
	if len(lines) > 3 {
		lines = lines[:3]
	}
	head := strings.TrimRight(strings.Join(lines, "\n"), "\r\n")
	if head == "" {
		return err
	}
	return fmt.Errorf("%w; first lines of file:\n%s", err, head)
}
