package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"budgetsync/internal/amqp"
	"budgetsync/internal/cli"
	"budgetsync/internal/services"
)

var budgetFlag int64

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Run a full sync now",
	Long: `Push pending budgets, pull the server budgets, then push and pull the
entries of every budget known to the server.

With --budget only the entries of that local budget are synced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		start := time.Now()

		if budgetFlag > 0 {
			report, err := app.Entries.PerformFullSync(ctx, budgetFlag, 0)
			if err != nil {
				return err
			}
			printPush(cmd, "entries", report.Push)
			printPull(cmd, "entries", report.Pull)
			return nil
		}

		if err := app.Worker.SyncAll(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Full sync completed in %v\n", time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var pushCmd = &cobra.Command{
	Use:     "push",
	GroupID: "sync",
	Short:   "Push pending local budgets, or the entries of one budget",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if budgetFlag > 0 {
			report, err := app.Entries.SyncPendingEntries(ctx, budgetFlag)
			if err != nil {
				return err
			}
			printPush(cmd, "entries", report)
			return nil
		}

		report, err := app.Budgets.SyncPendingBudgets(ctx)
		if err != nil {
			return err
		}
		printPush(cmd, "budgets", report)
		return nil
	},
}

var pullCmd = &cobra.Command{
	Use:     "pull",
	GroupID: "sync",
	Short:   "Pull server budgets, or the entries of one budget",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if budgetFlag > 0 {
			serverID, err := app.Budgets.ServerBudgetID(ctx, budgetFlag)
			if err != nil {
				return err
			}
			report, err := app.Entries.PullEntriesFromServer(ctx, serverID, budgetFlag)
			if err != nil {
				return err
			}
			printPull(cmd, "entries", report)
			return nil
		}

		report, err := app.Budgets.PullBudgetsFromServer(ctx)
		if err != nil {
			return err
		}
		printPull(cmd, "budgets", report)
		return nil
	},
}

var requestReason string

var requestCmd = &cobra.Command{
	Use:     "request",
	GroupID: "sync",
	Short:   "Ask the worker to sync through AMQP",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := cli.Publisher(app.Config)
		if err != nil {
			return err
		}
		defer client.Close()

		msg := amqp.NewBudgetsSyncRequest(requestReason)
		if budgetFlag > 0 {
			msg = amqp.NewEntriesSyncRequest(budgetFlag, requestReason)
		}
		if err := client.PublishSyncRequest(cmd.Context(), msg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sync request %s published (scope %s)\n", msg.ID, msg.Scope)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show local record counts and what is waiting to be pushed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		stats, err := app.Store.Stats(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Budgets:          %d\n", stats.Budgets)
		fmt.Fprintf(out, "Unsynced budgets: %d\n", stats.UnsyncedBudgets)
		fmt.Fprintf(out, "Unsynced entries: %d\n", stats.UnsyncedEntries)
		fmt.Fprintf(out, "Authenticated:    %v\n", app.Session.Authenticated(ctx))
		return nil
	},
}

func printPush[T any](cmd *cobra.Command, what string, r services.PushReport[T]) {
	fmt.Fprintf(cmd.OutOrStdout(), "Pushed %s: %d synced, %d failed, %d skipped\n",
		what, r.Succeeded(), r.Failed(), r.Skipped())
	for _, err := range r.Errors() {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %v\n", err)
	}
}

func printPull(cmd *cobra.Command, what string, r services.PullReport) {
	fmt.Fprintf(cmd.OutOrStdout(), "Pulled %s: %d created, %d updated, %d skipped\n",
		what, r.Created, r.Updated, r.Skipped)
}

func init() {
	for _, c := range []*cobra.Command{syncCmd, pushCmd, pullCmd, requestCmd} {
		c.Flags().Int64Var(&budgetFlag, "budget", 0, "local budget id to limit the command to its entries")
	}
	requestCmd.Flags().StringVar(&requestReason, "reason", "manual", "reason recorded in the request")

	rootCmd.AddCommand(syncCmd, pushCmd, pullCmd, requestCmd, statusCmd)
}
