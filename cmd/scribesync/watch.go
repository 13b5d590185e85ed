package main

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skovand/scribesync/internal/watch"
)

var (
	watchReview   bool
	watchDebounce time.Duration
	watchResync   time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [account]...",
	Short: "Watch the local store and sync on change (foreground)",
	Long: `Watch the local item store and run a sync whenever items change.

Bursts of edits are debounced into a single sync per account, and every
account is additionally resynced on a fixed interval to pick up remote-side
changes. Without arguments all configured accounts are watched.

Press Ctrl+C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}

		accounts := args
		if len(accounts) == 0 {
			for account := range app.cfg.Accounts {
				accounts = append(accounts, account)
			}
			sort.Strings(accounts)
		}
		if len(accounts) == 0 {
			return fmt.Errorf("no accounts configured and none given")
		}

		mode := modeFromFlag(watchReview)
		syncFn := func(ctx context.Context, account string) error {
			res, err := app.engine.Sync(ctx, account, mode)
			if err != nil {
				return err
			}
			printResult(account, res)
			return nil
		}

		wc := watch.DefaultConfig()
		wc.Logger = app.logger
		if watchDebounce > 0 {
			wc.DebounceInterval = watchDebounce
		}
		wc.ResyncInterval = watchResync

		d, err := watch.NewWithConfig(app.store.Root(), accounts, syncFn, wc)
		if err != nil {
			return err
		}

		fmt.Printf("watching %d account(s) under %s\n", len(accounts), app.store.Root())
		return d.Start(ctx)
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchReview, "review", false, "stage synced changes behind review requests")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "quiet period before syncing after an edit (default 2s)")
	watchCmd.Flags().DurationVar(&watchResync, "resync", 5*time.Minute, "interval for full resyncs, 0 to disable")
	rootCmd.AddCommand(watchCmd)
}
