package cmd

import (
	"os"
	"path/filepath"

	"github.com/OutOfBears/rbx-configs/internal/flagset"
	"github.com/OutOfBears/rbx-configs/internal/output"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:     "download",
	Short:   "Download the published configuration to the local flag file",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cleanup, err := newSyncer(cmd)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer cleanup()

		data, err := s.Download(cmd.Context())
		if err != nil {
			printRemoteError(cmd, "download config", err)
			return err
		}

		path, _ := cmd.Flags().GetString("file")
		if err := writeFileAtomic(path, data); err != nil {
			output.Error("write %s: %v", path, err)
			return err
		}

		// Download output is our own rendering, so this re-parse cannot fail.
		flags, _ := flagset.Parse(data)

		if jsonMode(cmd) {
			return output.JSON(map[string]interface{}{
				"file":  path,
				"flags": len(flags),
			})
		}

		output.Success("Downloaded %d flags to %s", len(flags), path)
		return nil
	},
}

// writeFileAtomic writes data via a temp file in the target directory plus
// rename, so an interrupted download never truncates the flag file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}

func init() {
	rootCmd.AddCommand(downloadCmd)
}
