package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pushReview bool

var pushCmd = &cobra.Command{
	Use:   "push <account> <filename>...",
	Short: "Push individual items from the local store to the remote",
	Long: `Push one or more items of an account to the remote repository.

Each item is placed into the status directory matching its current status,
removing any stale copy from other status directories. With --review the
items land on a date-scoped review branch behind a single review request;
without it they are committed straight to the main line.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := buildApp(ctx)
		if err != nil {
			return err
		}

		account := args[0]
		for _, filename := range args[1:] {
			it, err := app.store.Get(account, filename)
			if err != nil {
				return fmt.Errorf("failed to load %s/%s: %w", account, filename, err)
			}

			push := app.engine.PushDirect
			if pushReview {
				push = app.engine.PushForReview
			}
			res, err := push(ctx, account, it)
			if err != nil {
				return err
			}
			printResult(fmt.Sprintf("%s/%s", account, filename), res)
		}
		return nil
	},
}

func init() {
	pushCmd.Flags().BoolVar(&pushReview, "review", false, "stage the items behind a review request")
	rootCmd.AddCommand(pushCmd)
}
