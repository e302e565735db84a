package cmd

import (
	"fmt"

	"github.com/OutOfBears/rbx-configs/internal/output"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every flag in the published configuration",
	Long: `Purge stages a deletion for every published flag and publishes in chunks.
This empties the universe's configuration and cannot be undone, so it asks
first unless --yes is given.`,
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		universeID, err := requireUniverseID(cmd)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			if !output.IsTerminal() {
				err := fmt.Errorf("refusing to purge without confirmation (use --yes)")
				output.Error("%v", err)
				return err
			}
			confirmed, err := confirmPurge(universeID)
			if err != nil {
				output.Error("confirm: %v", err)
				return err
			}
			if !confirmed {
				fmt.Println("Aborted.")
				return nil
			}
		}

		s, cleanup, err := newSyncer(cmd)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer cleanup()

		res, err := s.Purge(cmd.Context())
		if err != nil {
			printRemoteError(cmd, "purge config", err)
			if !jsonMode(cmd) && res != nil && len(res.Failed) > 0 {
				printRejections(res.Failed)
			}
			return err
		}

		if jsonMode(cmd) {
			return output.JSON(map[string]interface{}{
				"deleted": res.Deleted,
			})
		}

		if len(res.Deleted) == 0 {
			fmt.Println("Nothing to purge.")
			return nil
		}
		for _, name := range res.Deleted {
			fmt.Println(output.FormatOp("delete", name))
		}
		output.Success("Purged %d flags", len(res.Deleted))
		return nil
	},
}

func confirmPurge(universeID uint64) (bool, error) {
	var confirmed bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("Delete every flag in universe %d?", universeID)).
			Description("Deletions are published immediately and cannot be undone.").
			Value(&confirmed),
	))
	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}

func init() {
	purgeCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(purgeCmd)
}
