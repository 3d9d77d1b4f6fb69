package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"budgetsync/internal/core"
)

var budgetCmd = &cobra.Command{
	Use:     "budget",
	GroupID: "local",
	Short:   "Manage local budgets",
}

var (
	budgetID     int64
	budgetName   string
	budgetAmount float64
	budgetDate   string
)

var budgetSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create or edit a local budget; it is pushed on the next sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		date := time.Now()
		if budgetDate != "" {
			d, err := time.Parse("2006-01-02", budgetDate)
			if err != nil {
				return fmt.Errorf("invalid --date %q: %w", budgetDate, err)
			}
			date = d
		}

		saved, err := app.Edits.SaveBudget(cmd.Context(), core.Budget{
			ID:     budgetID,
			Name:   budgetName,
			Amount: budgetAmount,
			Date:   date,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved budget %d (%s)\n", saved.ID, saved.Name)
		return nil
	},
}

var budgetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List local budgets",
	RunE: func(cmd *cobra.Command, args []string) error {
		budgets, err := app.Store.Budgets(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, b := range budgets {
			server := "-"
			if b.HasServerID() {
				server = fmt.Sprint(*b.ServerID)
			}
			fmt.Fprintf(out, "%d\t%s\t%.2f\tserver=%s\tsynced=%v\n", b.ID, b.Name, b.Amount, server, b.IsSynced)
		}
		return nil
	},
}

var entryCmd = &cobra.Command{
	Use:     "entry",
	GroupID: "local",
	Short:   "Manage local budget entries",
}

var (
	entryID          int64
	entryBudgetID    int64
	entryAmount      float64
	entryType        string
	entryCategory    string
	entryDescription string
)

var entrySaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create or edit a local entry; it is pushed on the next sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		e := core.BudgetEntry{
			ID:          entryID,
			BudgetID:    entryBudgetID,
			Amount:      entryAmount,
			Type:        core.EntryType(entryType),
			Category:    entryCategory,
			Description: entryDescription,
		}
		if err := e.Validate(); err != nil {
			return err
		}

		saved, err := app.Edits.SaveEntry(cmd.Context(), e)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved entry %d in budget %d\n", saved.ID, saved.BudgetID)
		return nil
	},
}

func init() {
	budgetSaveCmd.Flags().Int64Var(&budgetID, "id", 0, "local id of the budget to edit (omit to create)")
	budgetSaveCmd.Flags().StringVar(&budgetName, "name", "", "budget name")
	budgetSaveCmd.Flags().Float64Var(&budgetAmount, "amount", 0, "budget amount")
	budgetSaveCmd.Flags().StringVar(&budgetDate, "date", "", "budget date (YYYY-MM-DD, default today)")
	budgetSaveCmd.MarkFlagRequired("name")
	budgetCmd.AddCommand(budgetSaveCmd, budgetListCmd)

	entrySaveCmd.Flags().Int64Var(&entryID, "id", 0, "local id of the entry to edit (omit to create)")
	entrySaveCmd.Flags().Int64Var(&entryBudgetID, "budget", 0, "local budget id")
	entrySaveCmd.Flags().Float64Var(&entryAmount, "amount", 0, "entry amount")
	entrySaveCmd.Flags().StringVar(&entryType, "type", string(core.Outcome), "income or outcome")
	entrySaveCmd.Flags().StringVar(&entryCategory, "category", "", "entry category")
	entrySaveCmd.Flags().StringVar(&entryDescription, "description", "", "entry description")
	entrySaveCmd.MarkFlagRequired("budget")
	entryCmd.AddCommand(entrySaveCmd)

	rootCmd.AddCommand(budgetCmd, entryCmd)
}
