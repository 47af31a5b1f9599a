package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/potzenhotz/sankash/internal/bank"
	"github.com/potzenhotz/sankash/internal/config"
	"github.com/potzenhotz/sankash/internal/database/repository"
	"github.com/potzenhotz/sankash/internal/service"
)

type app struct {
	cfg         config.Config
	log         zerolog.Logger
	accounts    *repository.AccountRepo
	rules       *repository.RuleRepo
	imports     *repository.ImportRepo
	importer    *service.ImportService
	ruleRunner  *service.RuleService
	maintenance *service.MaintenanceService
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "sankash",
		Short:         "Import and categorize bank CSV exports",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newAccountsCmd(a),
		newImportCmd(a),
		newPreviewCmd(a),
		newRulesCmd(a),
		newHistoryCmd(a),
		newSimilarCmd(a),
		newResetCmd(a),
	)
	return root
}

func newAccountsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "accounts", Short: "Manage accounts"}

	var name, bankName, number, currency string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name is required")
			}
			id, err := a.accounts.Create(context.Background(), repository.Account{
				Name:          name,
				Bank:          bankName,
				AccountNumber: number,
				Currency:      currency,
				IsActive:      true,
			})
			if err != nil {
				return err
			}
			fmt.Printf("created account %d (%s)\n", id, name)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "account name")
	add.Flags().StringVar(&bankName, "bank", "", "bank name")
	add.Flags().StringVar(&number, "number", "", "account number")
	add.Flags().StringVar(&currency, "currency", "EUR", "currency code")

	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := a.accounts.List(context.Background())
			if err != nil {
				return err
			}
			for _, acct := range accounts {
				fmt.Printf("%4d  %-24s %-16s %s\n", acct.ID, acct.Name, acct.Bank, acct.Currency)
			}
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var accountID int64
	var format string
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a bank CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := bank.ParseFormat(format)
			if err != nil {
				return err
			}
			stats, err := a.importer.ImportFile(context.Background(), args[0], accountID, f)
			if err != nil {
				return err
			}
			fmt.Printf("session %d: %d rows, %d imported, %d duplicates, %d categorized\n",
				stats.SessionID, stats.Total, stats.Imported, stats.Duplicates, stats.Categorized)
			for _, w := range stats.Warnings {
				fmt.Printf("warning: %v\n", w)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&accountID, "account", 0, "target account id")
	cmd.Flags().StringVar(&format, "format", string(bank.FormatStandard), formatHelp())
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func newPreviewCmd(a *app) *cobra.Command {
	var accountID int64
	var format string
	var limit int
	cmd := &cobra.Command{
		Use:   "preview <file.csv>",
		Short: "Preview an import without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := bank.ParseFormat(format)
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = a.cfg.Import.PreviewLimit
			}
			candidates, err := a.importer.PreviewImport(args[0], accountID, f, limit)
			if err != nil {
				return err
			}
			for _, c := range candidates {
				fmt.Printf("%s  %10.2f  %-30s %s\n",
					c.Date.Format("2006-01-02"), c.Amount, c.Payee, c.ImportedID)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&accountID, "account", 0, "target account id")
	cmd.Flags().StringVar(&format, "format", string(bank.FormatStandard), formatHelp())
	cmd.Flags().IntVar(&limit, "limit", 0, "number of rows to show")
	return cmd
}

func newRulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "rules", Short: "Manage and run categorization rules"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := a.rules.List(context.Background())
			if err != nil {
				return err
			}
			for _, r := range rules {
				state := "active"
				if !r.IsActive {
					state = "inactive"
				}
				fmt.Printf("%4d  prio %3d  %-8s %-5s %d cond / %d act  %s\n",
					r.ID, r.Priority, state, r.MatchType, len(r.Conditions), len(r.Actions), r.Name)
			}
			return nil
		},
	}

	apply := &cobra.Command{
		Use:   "apply",
		Short: "Apply active rules to all uncategorized transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, warnings, err := a.ruleRunner.ApplyToUncategorized(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("categorized %d transactions\n", n)
			for _, w := range warnings {
				fmt.Printf("warning: %v\n", w)
			}
			return nil
		},
	}

	var ruleID int64
	test := &cobra.Command{
		Use:   "test",
		Short: "Dry-run one rule against stored transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := a.rules.Get(context.Background(), ruleID)
			if err != nil {
				return err
			}
			if rule == nil {
				return fmt.Errorf("rule %d not found", ruleID)
			}
			matches, err := a.ruleRunner.TestRule(context.Background(), *rule)
			if err != nil {
				return err
			}
			fmt.Printf("rule %q matches %d transactions\n", rule.Name, len(matches))
			for _, t := range matches {
				fmt.Printf("%s  %10.2f  %s\n", t.Date.Format("2006-01-02"), t.Amount, t.Payee)
			}
			return nil
		},
	}
	test.Flags().Int64Var(&ruleID, "id", 0, "rule id")
	_ = test.MarkFlagRequired("id")

	var txID, name string
	var priority int
	addFrom := &cobra.Command{
		Use:   "add-from",
		Short: "Create a rule from a categorized transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := a.ruleRunner.CreateFromTransaction(context.Background(), txID, name, priority)
			if err != nil {
				return err
			}
			fmt.Printf("created rule %d (%s)\n", rule.ID, rule.Name)
			return nil
		},
	}
	addFrom.Flags().StringVar(&txID, "transaction", "", "source transaction id")
	addFrom.Flags().StringVar(&name, "name", "", "rule name")
	addFrom.Flags().IntVar(&priority, "priority", 0, "rule priority")
	_ = addFrom.MarkFlagRequired("transaction")
	_ = addFrom.MarkFlagRequired("name")

	cmd.AddCommand(list, apply, test, addFrom)
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var accountID int64
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past import sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.imports.List(context.Background(), accountID, limit)
			if err != nil {
				return err
			}
			for _, rec := range records {
				fmt.Printf("%4d  %s  acct %d  %-13s %3d rows, %3d new, %3d dup, %3d categorized  %s\n",
					rec.ID, rec.ImportDate.Format("2006-01-02 15:04"), rec.AccountID,
					rec.BankFormat, rec.TotalCount, rec.ImportedCount, rec.DuplicateCount,
					rec.CategorizedCount, rec.Filename)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&accountID, "account", 0, "filter by account id")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum sessions to show")
	return cmd
}

func newSimilarCmd(a *app) *cobra.Command {
	var accountID int64
	var dateStr, payee string
	var amount float64
	cmd := &cobra.Command{
		Use:   "similar",
		Short: "Find stored transactions similar to the given one",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := time.Parse("2006-01-02", dateStr)
			if err != nil {
				return fmt.Errorf("parse --date: %w", err)
			}
			matches, err := a.importer.FindSimilar(context.Background(), accountID, date, amount, payee)
			if err != nil {
				return err
			}
			for _, t := range matches {
				fmt.Printf("%s  %10.2f  %-30s %s\n", t.Date.Format("2006-01-02"), t.Amount, t.Payee, t.Notes)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&accountID, "account", 0, "account id")
	cmd.Flags().StringVar(&dateStr, "date", "", "transaction date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&amount, "amount", 0, "transaction amount")
	cmd.Flags().StringVar(&payee, "payee", "", "payee text")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("payee")
	return cmd
}

func newResetCmd(a *app) *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all data (accounts, transactions, rules, history)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("refusing to wipe data without --yes")
			}
			return a.maintenance.Reset(context.Background())
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the wipe")
	return cmd
}

func formatHelp() string {
	names := make([]string, 0, 3)
	for _, f := range bank.Formats() {
		names = append(names, string(f))
	}
	return "bank format: " + strings.Join(names, ", ")
}
