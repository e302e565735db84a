package cmd

import (
	"fmt"

	"github.com/OutOfBears/rbx-configs/internal/output"
	"github.com/OutOfBears/rbx-configs/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Show version and check for updates",
	GroupID: "system",
	Run: func(cmd *cobra.Command, args []string) {
		short, _ := cmd.Flags().GetBool("short")
		if short {
			fmt.Print(versionStr)
			return
		}

		if jsonMode(cmd) {
			output.JSON(map[string]interface{}{"version": versionStr})
			return
		}

		fmt.Printf("rbx-configs version %s\n", versionStr)

		checkUpdates, _ := cmd.Flags().GetBool("check")
		if !checkUpdates {
			return
		}
		if notice := version.Banner(versionStr); notice != "" {
			fmt.Printf("\n%s\n", notice)
		}
	},
}

func init() {
	versionCmd.Flags().Bool("check", true, "Check for updates")
	versionCmd.Flags().Bool("short", false, "Output only version string")
	rootCmd.AddCommand(versionCmd)
}
