package main

import (
	"github.com/spf13/cobra"
)

var syncReview bool

var syncCmd = &cobra.Command{
	Use:   "sync <account>...",
	Short: "Synchronize accounts bidirectionally with the remote repository",
	Long: `Synchronize one or more accounts with the remote repository.

For each account this:
  1. Pulls the main line, auto-resolving conflicts in favor of the remote
  2. Propagates local item deletions to the remote
  3. Writes changed local items into their status directories
  4. Commits and pushes once, directly or behind a review request
  5. Pulls remote additions and deletions back into the local store`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := buildApp(ctx)
		if err != nil {
			return err
		}
		for _, account := range args {
			res, err := app.engine.Sync(ctx, account, modeFromFlag(syncReview))
			if err != nil {
				return err
			}
			printResult(account, res)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncReview, "review", false, "stage changes behind a review request instead of pushing to the main line")
	rootCmd.AddCommand(syncCmd)
}
