package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/potzenhotz/sankash/internal/config"
	"github.com/potzenhotz/sankash/internal/database"
	"github.com/potzenhotz/sankash/internal/database/repository"
	"github.com/potzenhotz/sankash/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log.Level)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatal().Err(err).Msg("create database directory")
	}
	if err := database.RunMigrations(cfg.Database.Path, cfg.Database.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	txRepo := repository.NewTransactionRepo(db)
	accountRepo := repository.NewAccountRepo(db)
	ruleRepo := repository.NewRuleRepo(db)
	importRepo := repository.NewImportRepo(db)

	ruleSvc := &service.RuleService{Transactions: txRepo, Rules: ruleRepo, Log: log}
	importSvc := &service.ImportService{
		Transactions: txRepo,
		Accounts:     accountRepo,
		Imports:      importRepo,
		Rules:        ruleSvc,
		Log:          log,
	}

	a := &app{
		cfg:         cfg,
		log:         log,
		accounts:    accountRepo,
		rules:       ruleRepo,
		imports:     importRepo,
		importer:    importSvc,
		ruleRunner:  ruleSvc,
		maintenance: &service.MaintenanceService{DB: db},
	}

	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
