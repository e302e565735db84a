package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/OutOfBears/rbx-configs/internal/journal"
	"github.com/OutOfBears/rbx-configs/internal/remote"
	"github.com/OutOfBears/rbx-configs/internal/syncconfig"
	"github.com/OutOfBears/rbx-configs/internal/syncer"
	"github.com/spf13/cobra"
)

var versionStr string

// SetVersion sets the version string
func SetVersion(v string) {
	versionStr = v
}

var rootCmd = &cobra.Command{
	Use:   "rbx-configs",
	Short: "Sync Roblox universe configuration flags",
	Long: `rbx-configs - Sync a local JSON flag file against a Roblox universe configuration.

Changes are staged into a server-side draft and published atomically; the
remote service is the source of truth until an upload publishes on top of it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns its error. main decides the
// exit code.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().Uint64P("universe-id", "u", 0, "Universe ID to operate on")
	rootCmd.PersistentFlags().StringP("file", "f", "config.json", "Local flag file")
	rootCmd.PersistentFlags().Bool("json", false, "Machine-readable JSON output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")
}

// initLogging routes diagnostics to stderr so stdout stays script-friendly.
// RBX_CONFIGS_DEBUG=1 raises the level to debug.
func initLogging() {
	level := slog.LevelInfo
	if syncconfig.DebugEnabled() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// jsonMode reports whether --json output was requested.
func jsonMode(cmd *cobra.Command) bool {
	json, _ := cmd.Flags().GetBool("json")
	return json
}

// requireUniverseID reads the --universe-id flag, rejecting the zero value.
// Commands that never touch the remote service or the journal skip this.
func requireUniverseID(cmd *cobra.Command) (uint64, error) {
	id, _ := cmd.Flags().GetUint64("universe-id")
	if id == 0 {
		return 0, fmt.Errorf("--universe-id is required")
	}
	return id, nil
}

// newSyncer builds a Syncer for the universe named on the command line,
// wired to the configured endpoint and session cookie. The returned cleanup
// prunes and closes the journal; callers defer it.
func newSyncer(cmd *cobra.Command) (*syncer.Syncer, func(), error) {
	universeID, err := requireUniverseID(cmd)
	if err != nil {
		return nil, nil, err
	}

	cookie := syncconfig.GetCookie()
	if cookie == "" {
		return nil, nil, fmt.Errorf("not authenticated (set RBX_COOKIE or run: rbx-configs auth login)")
	}

	client := remote.New(syncconfig.GetAPIURL(), cookie)

	var jnl *journal.Journal
	if syncconfig.JournalEnabled() {
		if dir, err := syncconfig.ConfigDir(); err == nil {
			if j, err := journal.Open(dir); err == nil {
				jnl = j
			} else {
				slog.Debug("open journal", "err", err)
			}
		}
	}

	cleanup := func() {
		if jnl == nil {
			return
		}
		if err := jnl.Prune(syncconfig.JournalKeep()); err != nil {
			slog.Debug("prune journal", "err", err)
		}
		jnl.Close()
	}

	return syncer.New(client, universeID, syncer.Options{Journal: jnl}), cleanup, nil
}
