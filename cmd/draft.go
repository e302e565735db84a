package cmd

import (
	"fmt"

	"github.com/OutOfBears/rbx-configs/internal/output"
	"github.com/spf13/cobra"
)

var draftCmd = &cobra.Command{
	Use:     "draft",
	Short:   "Manage the server-side configuration draft",
	GroupID: "sync",
}

var draftDiscardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Discard the draft the service holds for the universe",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cleanup, err := newSyncer(cmd)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer cleanup()

		existed, err := s.DiscardDraft(cmd.Context())
		if err != nil {
			printRemoteError(cmd, "discard draft", err)
			return err
		}

		if jsonMode(cmd) {
			return output.JSON(map[string]interface{}{"discarded": existed})
		}

		if !existed {
			fmt.Println("No draft to discard.")
			return nil
		}
		output.Success("Draft discarded.")
		return nil
	},
}

var draftPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the draft the service holds for the universe",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cleanup, err := newSyncer(cmd)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer cleanup()

		if err := s.PublishDraft(cmd.Context()); err != nil {
			printRemoteError(cmd, "publish draft", err)
			return err
		}

		if jsonMode(cmd) {
			return output.JSON(map[string]interface{}{"published": true})
		}
		output.Success("Draft published.")
		return nil
	},
}

func init() {
	draftCmd.AddCommand(draftDiscardCmd)
	draftCmd.AddCommand(draftPublishCmd)
	rootCmd.AddCommand(draftCmd)
}
