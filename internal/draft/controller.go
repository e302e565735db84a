// Package draft drives the staged-draft lifecycle of a universe
// configuration. Operations are staged into the draft the service holds for
// the universe, then the draft is published atomically or discarded.
package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OutOfBears/rbx-configs/internal/diff"
	"github.com/OutOfBears/rbx-configs/internal/remote"
)

// ErrNothingStaged is returned by Publish when the controller knows of no
// staged operations.
var ErrNothingStaged = errors.New("nothing staged")

// StageRejectedError reports operations the service refused to stage.
// Accepted operations from the same batch remain staged.
type StageRejectedError struct {
	Rejected []remote.Rejection
}

func (e *StageRejectedError) Error() string {
	return fmt.Sprintf("%d operations rejected: %s", len(e.Rejected), rejectionNames(e.Rejected))
}

// PartialPublishError reports a publish that applied only part of the
// draft. The failed entries are still staged on the service side.
type PartialPublishError struct {
	Failed []remote.Rejection
}

func (e *PartialPublishError) Error() string {
	return fmt.Sprintf("publish applied partially, %d entries failed: %s", len(e.Failed), rejectionNames(e.Failed))
}

func rejectionNames(rejected []remote.Rejection) string {
	names := make([]string, len(rejected))
	for i, r := range rejected {
		names[i] = r.Name
	}
	return strings.Join(names, ", ")
}

// Controller tracks what this process has staged into a universe's draft.
type Controller struct {
	api        remote.API
	universeID uint64
	staged     bool
}

// NewController creates a controller for one universe's draft.
func NewController(api remote.API, universeID uint64) *Controller {
	return &Controller{api: api, universeID: universeID}
}

// Stage sends operations to the draft. An empty batch is a successful
// no-op and performs no network call. Per-entry rejections surface as a
// *StageRejectedError; operations the service accepted still count as
// staged, so the caller can choose to discard or publish them.
func (c *Controller) Stage(ctx context.Context, ops []diff.Operation) error {
	if len(ops) == 0 {
		return nil
	}

	report, err := c.api.StageBatch(ctx, c.universeID, ops)
	if report != nil && len(report.Accepted) > 0 {
		c.staged = true
	}
	if err != nil {
		return err
	}
	if report != nil && len(report.Rejected) > 0 {
		return &StageRejectedError{Rejected: report.Rejected}
	}
	return nil
}

// StageDeletion stages the removal of one flag from the configuration.
func (c *Controller) StageDeletion(ctx context.Context, name string) error {
	if err := c.api.StageDeletion(ctx, c.universeID, name); err != nil {
		return err
	}
	c.staged = true
	return nil
}

// Discard drops the draft. Discarding when no draft exists is a success,
// so the call is safe to repeat and safe to run before anything was staged.
// The returned bool reports whether the service actually held a draft.
func (c *Controller) Discard(ctx context.Context) (bool, error) {
	err := c.api.DiscardDraft(ctx, c.universeID)
	if errors.Is(err, remote.ErrNoDraft) {
		c.staged = false
		return false, nil
	}
	if err != nil {
		return false, err
	}
	c.staged = false
	return true, nil
}

// Publish atomically applies the draft to the live configuration.
// Publishing with nothing staged fails with ErrNothingStaged before any
// network traffic. Per-entry failures surface as a *PartialPublishError and
// leave the controller staged: the service still holds the failed
// remainder.
func (c *Controller) Publish(ctx context.Context) error {
	if !c.staged {
		return ErrNothingStaged
	}

	report, err := c.api.PublishDraft(ctx, c.universeID)
	if err != nil {
		return err
	}
	if report != nil && len(report.Failed) > 0 {
		return &PartialPublishError{Failed: report.Failed}
	}
	c.staged = false
	return nil
}

// AdoptRemoteDraft marks the controller staged without touching the
// network. It lets a run publish a draft that an earlier process staged.
func (c *Controller) AdoptRemoteDraft() {
	c.staged = true
}

// Staged reports whether the controller believes the draft holds
// unpublished work.
func (c *Controller) Staged() bool {
	return c.staged
}
