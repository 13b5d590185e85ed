package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skovand/scribesync/internal/engine"
)

var deployPrefix string

var deployCmd = &cobra.Command{
	Use:   "deploy <file>...",
	Short: "Publish files through the hosting content API",
	Long: `Upload files directly to the remote repository via the hosting
content API, bypassing the local mirror entirely.

Files whose remote content already matches are skipped, so repeated
deployments of unchanged files make no commits. Intended for a small number
of static automation files; content items belong to sync and push.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := buildApp(ctx)
		if err != nil {
			return err
		}

		files := make([]engine.DeployFile, 0, len(args))
		for _, arg := range args {
			content, err := os.ReadFile(arg)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", arg, err)
			}
			dest := filepath.ToSlash(filepath.Base(arg))
			if deployPrefix != "" {
				dest = strings.TrimSuffix(deployPrefix, "/") + "/" + dest
			}
			files = append(files, engine.DeployFile{Path: dest, Content: content})
		}

		n, err := app.engine.Deploy(ctx, files)
		if err != nil {
			return err
		}
		fmt.Printf("deployed %d of %d file(s)\n", n, len(files))
		return nil
	},
}

func init() {
	deployCmd.Flags().StringVar(&deployPrefix, "prefix", "", "repository directory to deploy into")
	rootCmd.AddCommand(deployCmd)
}
