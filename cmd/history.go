package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OutOfBears/rbx-configs/internal/journal"
	"github.com/OutOfBears/rbx-configs/internal/output"
	"github.com/OutOfBears/rbx-configs/internal/syncconfig"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Styles for history output
var (
	pullArrow   = lipgloss.NewStyle().Foreground(lipgloss.Color("45")).Render("←")  // cyan
	pushArrow   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("→")  // green
	deleteArrow = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("→") // red
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sync activity from the local journal",
	Long: `Show recent sync activity. Use --follow to follow in real-time.

Examples:
  rbx-configs history                  # Last 20 entries, all universes
  rbx-configs history -u 123456        # Only universe 123456
  rbx-configs history --follow         # Follow new entries in real-time
  rbx-configs history -n 50            # Last 50 entries`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		limit, _ := cmd.Flags().GetInt("limit")
		universeID, _ := cmd.Flags().GetUint64("universe-id")

		if follow && jsonMode(cmd) {
			err := fmt.Errorf("--follow cannot be combined with --json")
			output.Error("%v", err)
			return err
		}

		dir, err := syncconfig.ConfigDir()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		jnl, err := journal.Open(dir)
		if err != nil {
			output.Error("open journal: %v", err)
			return err
		}
		defer jnl.Close()

		var entries []journal.Entry
		if limit > 0 {
			entries, err = jnl.Tail(universeID, limit)
			if err != nil {
				output.Error("query journal: %v", err)
				return err
			}
		}

		if jsonMode(cmd) {
			return output.JSON(historyJSON(entries))
		}

		showUniverse := universeID == 0
		var maxID int64
		for _, e := range entries {
			printHistoryEntry(e, showUniverse)
			if e.ID > maxID {
				maxID = e.ID
			}
		}

		if !follow {
			if len(entries) == 0 {
				fmt.Println("No sync activity recorded.")
			}
			return nil
		}

		// If no initial entries were shown but we're following, baseline on
		// the newest row so only new activity prints.
		if maxID == 0 && limit == 0 {
			tail, _ := jnl.Tail(universeID, 1)
			if len(tail) > 0 {
				maxID = tail[0].ID
			}
		}

		// Follow mode: poll for new entries, handle Ctrl+C gracefully
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-sigCh:
				fmt.Println() // clean line after ^C
				return nil
			case <-ticker.C:
				newEntries, err := jnl.After(universeID, maxID, 100)
				if err != nil {
					slog.Debug("history: poll", "err", err)
					continue
				}
				for _, e := range newEntries {
					printHistoryEntry(e, showUniverse)
					if e.ID > maxID {
						maxID = e.ID
					}
				}
			}
		}
	},
}

// opArrow picks the direction marker for a journal operation: downloads pull
// from the service, everything else pushes toward it.
func opArrow(op string) string {
	switch op {
	case journal.OpDownload:
		return pullArrow
	case journal.OpPurge:
		return deleteArrow
	default:
		return pushArrow
	}
}

func printHistoryEntry(e journal.Entry, showUniverse bool) {
	ts := output.Subtle(e.CreatedAt.Local().Format("2006-01-02 15:04:05"))

	line := fmt.Sprintf("%s %s %s %s", ts, opArrow(e.Operation), output.FormatOutcome(e.Outcome), e.Operation)
	if showUniverse {
		line += fmt.Sprintf(" u:%d", e.UniverseID)
	}
	if e.Flag != "" {
		line += " " + e.Flag
	}
	if e.Detail != "" {
		// Service error text can run long; keep each entry on one line.
		detail := output.Truncate(e.Detail, output.TerminalWidth(0)/2)
		line += " " + output.Subtle("("+detail+")")
	}
	fmt.Println(line)
}

func historyJSON(entries []journal.Entry) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]interface{}{
			"id":          e.ID,
			"universe_id": e.UniverseID,
			"operation":   e.Operation,
			"flag":        e.Flag,
			"outcome":     e.Outcome,
			"detail":      e.Detail,
			"created_at":  e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func init() {
	historyCmd.Flags().Bool("follow", false, "Follow new entries in real-time")
	historyCmd.Flags().IntP("limit", "n", 20, "Number of initial entries to show")
	rootCmd.AddCommand(historyCmd)
}
