// Command coursesync is a thin reference CLI exercising the sync engine
// end to end: it wires a PrivateKeySigner, an apiclient.Client, a
// store.Store, and a syncengine.Engine, and never holds business logic of
// its own. Modelled on the teacher's fuse-client subcommand dispatch,
// rebuilt on cobra.Command per the wider example pack's CLI convention.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devkat/CodeExpertDesktop/internal/config"
	"github.com/devkat/CodeExpertDesktop/internal/logging"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "coursesync",
	Short: "Synchronise course project files with the project server",
	Long: `coursesync mirrors a course project's files between this machine and
the project server: it uploads local edits, downloads remote changes, and
flags conflicts for the caller to resolve.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(func() { cfg = config.Load() })

	rootCmd.PersistentFlags().String("server", "", "Project server base URL (overrides COURSESYNC_SERVER_URL)")
	rootCmd.PersistentFlags().String("project-dir", "", "Local sync root (overrides COURSESYNC_PROJECT_DIR)")
	rootCmd.PersistentFlags().CountP("verbose", "v", "increase log verbosity")

	rootCmd.AddCommand(loginCmd, syncCmd, statusCmd, listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func logLevel(cmd *cobra.Command) logging.Level {
	n, _ := cmd.Flags().GetCount("verbose")
	if n == 0 {
		return logging.ParseLevel(cfg.LogLevel)
	}
	if n == 1 {
		return logging.LevelInfo
	}
	return logging.LevelDebug
}

func overrideServer(cmd *cobra.Command) string {
	if v, _ := cmd.Flags().GetString("server"); v != "" {
		return v
	}
	return cfg.ServerURL
}

func overrideProjectDir(cmd *cobra.Command) string {
	if v, _ := cmd.Flags().GetString("project-dir"); v != "" {
		return v
	}
	return cfg.ProjectDir
}
