package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/skovand/scribesync/internal/config"
	"github.com/skovand/scribesync/internal/engine"
	"github.com/skovand/scribesync/internal/hosting"
	"github.com/skovand/scribesync/internal/mirror"
	"github.com/skovand/scribesync/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "scribesync",
	Short: "Keep local content items in sync with a hosted git repository",
	Long: `scribesync mirrors local content items into a remote git repository,
organizing them into per-account status directories, resolving merge conflicts
automatically in favor of the remote, and optionally staging changes behind a
review request instead of pushing straight to the main line.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: scribesync.yaml in search paths)")
}

// app bundles everything a command needs after configuration is loaded.
type app struct {
	cfg    *config.Config
	engine *engine.Engine
	store  *store.FileStore
	host   *hosting.Client
	logger *log.Logger
}

// buildApp loads configuration and wires up the engine and its dependencies.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	st := store.New(cfg.StoreDir)
	host := hosting.New(ctx, cfg.Owner, cfg.Repo, cfg.Token, logger)
	mgr := mirror.NewManager(mirror.Options{
		RemoteURL:      cfg.RemoteURL(),
		Owner:          cfg.Owner,
		Repo:           cfg.Repo,
		BaseDir:        cfg.MirrorDir,
		DefaultBranch:  cfg.Branch,
		CommitterName:  cfg.CommitterName,
		CommitterEmail: cfg.CommitterEmail,
		Token:          cfg.Token,
		Logger:         logger,
	})

	return &app{
		cfg:    cfg,
		engine: engine.New(cfg, mgr, st, host, logger),
		store:  st,
		host:   host,
		logger: logger,
	}, nil
}

// newLogger logs to stderr, teeing into a rotated file when one is
// configured.
func newLogger(cfg *config.Config) *log.Logger {
	var w io.Writer = os.Stderr
	if cfg.LogFile != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	return log.New(w, "[scribesync] ", log.LstdFlags)
}

// modeFromFlag maps the --review flag to an engine mode.
func modeFromFlag(review bool) engine.Mode {
	if review {
		return engine.ModeReview
	}
	return engine.ModeDirect
}

// printResult reports one engine outcome on stdout.
func printResult(account string, res *engine.Result) {
	switch {
	case res.Skipped:
		fmt.Printf("%s: skipped, another run is in flight\n", account)
	case res.NoChanges:
		fmt.Printf("%s: no changes\n", account)
	default:
		fmt.Printf("%s: pushed %d, pulled %d\n", account, res.Pushed, res.Pulled)
	}
	if res.PullRequest != nil {
		fmt.Printf("%s: review request #%d %s\n", account, res.PullRequest.Number, res.PullRequest.URL)
	}
}
