// Package syncer orchestrates the sync operations the CLI exposes:
// download, upload, draft discard, draft publish, and purge. It ties the
// remote client, the diff, and the draft lifecycle together and leaves
// file and terminal concerns to the caller.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/OutOfBears/rbx-configs/internal/diff"
	"github.com/OutOfBears/rbx-configs/internal/draft"
	"github.com/OutOfBears/rbx-configs/internal/flagset"
	"github.com/OutOfBears/rbx-configs/internal/journal"
	"github.com/OutOfBears/rbx-configs/internal/remote"
)

// DefaultMaxDraftOps is how many staged operations a draft may accumulate
// before an intermediate publish flushes it.
const DefaultMaxDraftOps = 40

// Options configures optional Syncer behavior.
type Options struct {
	// MaxDraftOps overrides the publish chunk size; zero or negative
	// means DefaultMaxDraftOps.
	MaxDraftOps int
	// Journal receives best-effort history rows; nil disables journaling.
	Journal *journal.Journal
}

// Syncer coordinates fetch, diff, and the draft lifecycle for one universe.
type Syncer struct {
	api         remote.API
	universeID  uint64
	ctl         *draft.Controller
	journal     *journal.Journal
	maxDraftOps int
}

// New creates a Syncer for one universe.
func New(api remote.API, universeID uint64, opts Options) *Syncer {
	maxOps := opts.MaxDraftOps
	if maxOps <= 0 {
		maxOps = DefaultMaxDraftOps
	}
	return &Syncer{
		api:         api,
		universeID:  universeID,
		ctl:         draft.NewController(api, universeID),
		journal:     opts.Journal,
		maxDraftOps: maxOps,
	}
}

// UploadResult summarizes an upload.
type UploadResult struct {
	Created []string // flags that did not exist remotely, by name
	Updated []string // flags whose value or description changed, by name
	Chunks  int      // publishes that completed
}

// Ops returns the number of planned operations.
func (r *UploadResult) Ops() int {
	return len(r.Created) + len(r.Updated)
}

// PurgeResult summarizes a purge sweep.
type PurgeResult struct {
	Deleted []string // flags whose deletion was staged, by name
	Failed  []remote.Rejection
}

// Download fetches the published configuration and returns its canonical
// JSON rendering. The caller owns file placement.
func (s *Syncer) Download(ctx context.Context) ([]byte, error) {
	cfg, err := s.api.FetchConfig(ctx, s.universeID)
	if err != nil {
		return nil, err
	}
	data, err := cfg.Flags.Marshal()
	if err != nil {
		return nil, err
	}
	s.record(journal.Entry{Operation: journal.OpDownload, Detail: fmt.Sprintf("%d flags", len(cfg.Flags))})
	return data, nil
}

// Upload pushes the local flag set on top of the published remote
// configuration. The result lists the planned operations; Chunks counts the
// publishes that completed. When local and remote already match, nothing is
// staged and the only network call is the initial fetch.
//
// Staging is chunked: every maxDraftOps operations the draft is published
// before staging continues, so the draft never grows without bound. If a
// later chunk fails, the chunks already published stay applied.
func (s *Syncer) Upload(ctx context.Context, local flagset.Set) (*UploadResult, error) {
	cfg, err := s.api.FetchConfig(ctx, s.universeID)
	if err != nil {
		return nil, err
	}

	ops := diff.Compute(cfg.Flags, local)
	res := &UploadResult{}
	for _, op := range ops {
		if op.Kind == diff.Create {
			res.Created = append(res.Created, op.Name)
		} else {
			res.Updated = append(res.Updated, op.Name)
		}
	}
	if len(ops) == 0 {
		return res, nil
	}

	// A draft left behind by an interrupted run would mix stale operations
	// into this one. Clearing it is best effort: anything that makes the
	// discard fail makes the staging below fail the same way.
	if _, err := s.ctl.Discard(ctx); err != nil {
		slog.Debug("discard stale draft", "universe", s.universeID, "err", err)
	}

	for start := 0; start < len(ops); start += s.maxDraftOps {
		end := start + s.maxDraftOps
		if end > len(ops) {
			end = len(ops)
		}
		chunk := ops[start:end]

		stageErr := s.ctl.Stage(ctx, chunk)
		s.recordStaged(chunk, stageErr)
		if stageErr != nil {
			return res, stageErr
		}

		if err := s.ctl.Publish(ctx); err != nil {
			return res, err
		}
		res.Chunks++
		s.record(journal.Entry{Operation: journal.OpDraftPublish, Detail: fmt.Sprintf("%d ops", len(chunk))})
	}

	return res, nil
}

// DiscardDraft drops whatever draft the service holds for the universe.
// The returned bool reports whether a draft existed; discarding an absent
// draft is a success.
func (s *Syncer) DiscardDraft(ctx context.Context) (bool, error) {
	existed, err := s.ctl.Discard(ctx)
	if err != nil {
		return false, err
	}
	detail := "no draft held"
	if existed {
		detail = "draft dropped"
	}
	s.record(journal.Entry{Operation: journal.OpDraftDiscard, Detail: detail})
	return existed, nil
}

// PublishDraft publishes the draft the service currently holds, whether it
// was staged by this process or an earlier one. remote.ErrNoDraft surfaces
// when the service holds nothing to publish.
func (s *Syncer) PublishDraft(ctx context.Context) error {
	s.ctl.AdoptRemoteDraft()
	if err := s.ctl.Publish(ctx); err != nil {
		return err
	}
	s.record(journal.Entry{Operation: journal.OpDraftPublish, Detail: "published held draft"})
	return nil
}

// Purge stages a deletion for every flag in the published configuration,
// in name order, publishing after every maxDraftOps deletions and once
// more for the trailing partial chunk. Per-flag failures do not stop the
// sweep; they are collected on the result and summarized in the returned
// error. An expired or rejected session aborts immediately since every
// remaining request would fail the same way.
func (s *Syncer) Purge(ctx context.Context) (*PurgeResult, error) {
	cfg, err := s.api.FetchConfig(ctx, s.universeID)
	if err != nil {
		return nil, err
	}

	res := &PurgeResult{}
	names := cfg.Flags.Names()
	if len(names) == 0 {
		return res, nil
	}

	pending := 0
	for _, name := range names {
		if err := s.ctl.StageDeletion(ctx, name); err != nil {
			if errors.Is(err, remote.ErrUnauthorized) {
				return res, err
			}
			res.Failed = append(res.Failed, remote.Rejection{Name: name, Message: err.Error()})
			s.record(journal.Entry{Operation: journal.OpPurge, Flag: name, Outcome: journal.OutcomeError, Detail: err.Error()})
			continue
		}
		res.Deleted = append(res.Deleted, name)
		s.record(journal.Entry{Operation: journal.OpPurge, Flag: name, Detail: "delete staged"})

		pending++
		if pending == s.maxDraftOps {
			if err := s.ctl.Publish(ctx); err != nil {
				return res, err
			}
			pending = 0
		}
	}

	if pending > 0 {
		if err := s.ctl.Publish(ctx); err != nil {
			return res, err
		}
	}

	if len(res.Failed) > 0 {
		return res, fmt.Errorf("%d of %d deletions failed", len(res.Failed), len(names))
	}
	return res, nil
}

// recordStaged journals the per-flag outcome of one staged chunk.
func (s *Syncer) recordStaged(chunk []diff.Operation, stageErr error) {
	rejected := make(map[string]remote.Rejection)
	var rejErr *draft.StageRejectedError
	if errors.As(stageErr, &rejErr) {
		for _, r := range rejErr.Rejected {
			rejected[r.Name] = r
		}
	} else if stageErr != nil {
		// Transport-level failure: no per-flag outcome worth recording.
		return
	}

	entries := make([]journal.Entry, 0, len(chunk))
	for _, op := range chunk {
		e := journal.Entry{Operation: journal.OpUpload, Flag: op.Name, Detail: string(op.Kind)}
		if r, ok := rejected[op.Name]; ok {
			e.Outcome = journal.OutcomeError
			e.Detail = rejectionDetail(r)
		}
		entries = append(entries, e)
	}
	s.recordAll(entries)
}

func (s *Syncer) record(e journal.Entry) {
	s.recordAll([]journal.Entry{e})
}

// recordAll writes journal rows. Journal trouble never fails a sync; it is
// logged and forgotten.
func (s *Syncer) recordAll(entries []journal.Entry) {
	if s.journal == nil || len(entries) == 0 {
		return
	}
	for i := range entries {
		entries[i].UniverseID = s.universeID
		if entries[i].Outcome == "" {
			entries[i].Outcome = journal.OutcomeOK
		}
	}
	if err := s.journal.Record(entries); err != nil {
		slog.Debug("journal write failed", "err", err)
	}
}

func rejectionDetail(r remote.Rejection) string {
	if r.Code == "" {
		return r.Message
	}
	return r.Code + ": " + r.Message
}
