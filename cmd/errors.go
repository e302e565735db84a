package cmd

import (
	"errors"

	"github.com/OutOfBears/rbx-configs/internal/draft"
	"github.com/OutOfBears/rbx-configs/internal/flagset"
	"github.com/OutOfBears/rbx-configs/internal/output"
	"github.com/OutOfBears/rbx-configs/internal/remote"
	"github.com/spf13/cobra"
)

// errCode maps an error onto the stable code reported in --json output.
func errCode(err error) string {
	var malformed *flagset.MalformedConfigError
	var rejected *draft.StageRejectedError
	var partial *draft.PartialPublishError

	switch {
	case errors.As(err, &malformed):
		return output.ErrCodeMalformedConfig
	case errors.As(err, &rejected):
		return output.ErrCodeStageRejected
	case errors.As(err, &partial):
		return output.ErrCodePartialPublish
	case errors.Is(err, draft.ErrNothingStaged):
		return output.ErrCodeNothingStaged
	case errors.Is(err, remote.ErrUnauthorized):
		return output.ErrCodeUnauthorized
	case errors.Is(err, remote.ErrRateLimited):
		return output.ErrCodeRateLimited
	case errors.Is(err, remote.ErrNotFound):
		return output.ErrCodeNotFound
	case errors.Is(err, remote.ErrNoDraft):
		return output.ErrCodeNoDraft
	default:
		return output.ErrCodeTransport
	}
}

// printRemoteError renders err for humans, or as a structured error object
// under --json. Known failure classes get a hint line with the usual fix.
func printRemoteError(cmd *cobra.Command, action string, err error) {
	if jsonMode(cmd) {
		output.JSONError(errCode(err), err.Error())
		return
	}

	output.Error("%s: %v", action, err)
	switch {
	case errors.Is(err, remote.ErrUnauthorized):
		output.Info("Session cookie was rejected. Run: rbx-configs auth login")
	case errors.Is(err, remote.ErrNotFound):
		output.Info("Check the universe ID and that your account can edit it.")
	}
}

// printRejections lists per-flag refusals under an error summary.
func printRejections(rejected []remote.Rejection) {
	for _, r := range rejected {
		detail := r.Message
		if r.Code != "" {
			detail = r.Code + ": " + r.Message
		}
		output.Info("  %s %s (%s)", output.FormatOutcome("error"), r.Name, detail)
	}
}
