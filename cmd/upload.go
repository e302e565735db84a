package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/OutOfBears/rbx-configs/internal/draft"
	"github.com/OutOfBears/rbx-configs/internal/flagset"
	"github.com/OutOfBears/rbx-configs/internal/output"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload the local flag file on top of the published configuration",
	Long: `Upload stages every local flag that is new or differs from the published
configuration, then publishes. Flags that exist only remotely are left
untouched; upload never deletes.`,
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		data, err := os.ReadFile(path)
		if err != nil {
			output.Error("read %s: %v", path, err)
			return err
		}

		local, err := flagset.Parse(data)
		if err != nil {
			printRemoteError(cmd, "parse "+path, err)
			return err
		}

		s, cleanup, err := newSyncer(cmd)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer cleanup()

		res, err := s.Upload(cmd.Context(), local)
		if err != nil {
			printRemoteError(cmd, "upload config", err)
			if !jsonMode(cmd) {
				var rejected *draft.StageRejectedError
				var partial *draft.PartialPublishError
				if errors.As(err, &rejected) {
					printRejections(rejected.Rejected)
				} else if errors.As(err, &partial) {
					printRejections(partial.Failed)
				}
			}
			return err
		}

		if jsonMode(cmd) {
			return output.JSON(map[string]interface{}{
				"created":   res.Created,
				"updated":   res.Updated,
				"publishes": res.Chunks,
			})
		}

		if res.Ops() == 0 {
			fmt.Println("Nothing to upload.")
			return nil
		}

		for _, name := range res.Created {
			fmt.Println(output.FormatOp("create", name))
		}
		for _, name := range res.Updated {
			fmt.Println(output.FormatOp("update", name))
		}
		output.Success("Uploaded %d flags (%d created, %d updated) in %d publishes",
			res.Ops(), len(res.Created), len(res.Updated), res.Chunks)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
