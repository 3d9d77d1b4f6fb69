package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"budgetsync/internal/cli"
	"budgetsync/internal/log"
)

var (
	app    *cli.App
	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "budgetsync",
	Short: "Offline-first budget sync against the remote budget API",
	Long: `budgetsync keeps a local budget store in step with the remote budget API.

Local edits are saved unsynced and pushed on the next sync; server data
wins on pull.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cli.LoadEnvFile()
		logger = cli.SetupLogger(log.ComponentApp)

		cfg, err := cli.LoadAndValidateConfig()
		if err != nil {
			return err
		}
		app, err = cli.Build(cmd.Context(), cfg, logger)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app == nil {
			return nil
		}
		return app.Close()
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "local", Title: "Local Data Commands:"},
	)
}

func main() {
	ctx, stop := cli.ShutdownContext(log.Discard())
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
