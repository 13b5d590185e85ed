package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show remote connectivity and local store contents",
	Long: `Check that the configured remote repository is reachable with the
configured credentials, and summarize the local item store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := buildApp(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("remote: %s/%s on %s\n", app.cfg.Owner, app.cfg.Repo, app.cfg.Host)
		if err := app.host.ProbeRepo(ctx); err != nil {
			return fmt.Errorf("remote check failed: %w", err)
		}
		fmt.Println("remote: reachable")

		accounts := make([]string, 0, len(app.cfg.Accounts))
		for account := range app.cfg.Accounts {
			accounts = append(accounts, account)
		}
		sort.Strings(accounts)
		for _, account := range accounts {
			items, err := app.store.List(account)
			if err != nil {
				return err
			}
			fmt.Printf("store: %s has %d item(s)\n", account, len(items))
		}

		if last := app.engine.LastSync(); !last.IsZero() {
			fmt.Printf("last sync: %s\n", last.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
