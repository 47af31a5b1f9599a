package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/potzenhotz/sankash/internal/database"
)

// MaintenanceService houses destructive ops actions.
type MaintenanceService struct {
	DB *sql.DB
}

// Reset wipes all user data while keeping the schema intact.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if s.DB == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	if err := database.WithTx(s.DB, func(tx *sql.Tx) error {
		tables := []string{
			"transactions",
			"import_history",
			"rules",
			"accounts",
		}
		for _, t := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	_, _ = s.DB.ExecContext(ctx, "VACUUM")
	return nil
}
