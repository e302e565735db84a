package journal

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func makeEntry(universeID uint64, op, flag string) Entry {
	return Entry{
		UniverseID: universeID,
		Operation:  op,
		Flag:       flag,
		Outcome:    OutcomeOK,
	}
}

func TestRecordAndTail(t *testing.T) {
	j := openTestJournal(t)

	entries := []Entry{
		makeEntry(42, OpUpload, "ServerTickRate"),
		makeEntry(42, OpUpload, "WelcomeMessage"),
		makeEntry(42, OpDraftPublish, ""),
	}
	if err := j.Record(entries); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := j.Tail(42, 10)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("tail length: got %d, want 3", len(got))
	}

	// Chronological order: oldest first
	if got[0].Flag != "ServerTickRate" || got[2].Operation != OpDraftPublish {
		t.Fatalf("unexpected order: %+v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].ID <= got[i-1].ID {
			t.Errorf("ids not ascending: %d then %d", got[i-1].ID, got[i].ID)
		}
	}
	for _, e := range got {
		if e.CreatedAt.IsZero() {
			t.Errorf("entry %d has zero timestamp", e.ID)
		}
	}
}

func TestRecordPreservesExplicitTimestamp(t *testing.T) {
	j := openTestJournal(t)

	when := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := makeEntry(7, OpDownload, "")
	e.CreatedAt = when
	if err := j.Record([]Entry{e}); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := j.Tail(7, 1)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("tail length: got %d, want 1", len(got))
	}
	if !got[0].CreatedAt.Equal(when) {
		t.Fatalf("timestamp: got %v, want %v", got[0].CreatedAt, when)
	}
}

func TestRecordEmptyIsNoOp(t *testing.T) {
	j := openTestJournal(t)

	if err := j.Record(nil); err != nil {
		t.Fatalf("record empty: %v", err)
	}
	got, err := j.Tail(1, 10)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no entries, got %d", len(got))
	}
}

func TestTailRespectsLimit(t *testing.T) {
	j := openTestJournal(t)

	var entries []Entry
	for _, flag := range []string{"A", "B", "C", "D", "E"} {
		entries = append(entries, makeEntry(9, OpUpload, flag))
	}
	if err := j.Record(entries); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := j.Tail(9, 2)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("tail length: got %d, want 2", len(got))
	}
	// Newest two, oldest first
	if got[0].Flag != "D" || got[1].Flag != "E" {
		t.Fatalf("got flags %q, %q; want D, E", got[0].Flag, got[1].Flag)
	}
}

func TestTailFiltersByUniverse(t *testing.T) {
	j := openTestJournal(t)

	err := j.Record([]Entry{
		makeEntry(1, OpUpload, "X"),
		makeEntry(2, OpUpload, "Y"),
		makeEntry(1, OpDraftPublish, ""),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := j.Tail(1, 10)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("tail length: got %d, want 2", len(got))
	}
	for _, e := range got {
		if e.UniverseID != 1 {
			t.Errorf("entry %d has universe %d, want 1", e.ID, e.UniverseID)
		}
	}
}

func TestTailZeroUniverseReturnsAll(t *testing.T) {
	j := openTestJournal(t)

	err := j.Record([]Entry{
		makeEntry(1, OpUpload, "X"),
		makeEntry(2, OpUpload, "Y"),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := j.Tail(0, 10)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("tail length: got %d, want 2", len(got))
	}
	if got[0].UniverseID != 1 || got[1].UniverseID != 2 {
		t.Fatalf("unexpected universes: %d, %d", got[0].UniverseID, got[1].UniverseID)
	}
}

func TestAfterReturnsOnlyNewerRows(t *testing.T) {
	j := openTestJournal(t)

	err := j.Record([]Entry{
		makeEntry(3, OpUpload, "A"),
		makeEntry(3, OpUpload, "B"),
		makeEntry(3, OpUpload, "C"),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	all, err := j.Tail(3, 10)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("tail length: got %d, want 3", len(all))
	}

	got, err := j.After(3, all[0].ID, 10)
	if err != nil {
		t.Fatalf("after: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("after length: got %d, want 2", len(got))
	}
	if got[0].Flag != "B" || got[1].Flag != "C" {
		t.Fatalf("got flags %q, %q; want B, C", got[0].Flag, got[1].Flag)
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	j := openTestJournal(t)

	var entries []Entry
	for _, flag := range []string{"A", "B", "C", "D", "E"} {
		entries = append(entries, makeEntry(5, OpPurge, flag))
	}
	if err := j.Record(entries); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := j.Prune(2); err != nil {
		t.Fatalf("prune: %v", err)
	}

	got, err := j.Tail(5, 10)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("after prune: got %d entries, want 2", len(got))
	}
	if got[0].Flag != "D" || got[1].Flag != "E" {
		t.Fatalf("got flags %q, %q; want D, E", got[0].Flag, got[1].Flag)
	}
}

func TestRecordTxInsertsRows(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := initSchema(db); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	entries := []Entry{
		makeEntry(11, OpUpload, "A"),
		{UniverseID: 11, Operation: OpUpload, Flag: "B", Outcome: OutcomeError, Detail: "rejected"},
	}
	if err := recordTx(tx, entries); err != nil {
		t.Fatalf("record tx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM journal WHERE universe_id = 11`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("row count: got %d, want 2", count)
	}

	var outcome, detail string
	err = db.QueryRow(`SELECT outcome, detail FROM journal WHERE flag = 'B'`).Scan(&outcome, &detail)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if outcome != OutcomeError || detail != "rejected" {
		t.Fatalf("got outcome %q detail %q, want error/rejected", outcome, detail)
	}
}

func TestParseTimestampFormats(t *testing.T) {
	for _, s := range []string{
		"2026-01-02T03:04:05Z",
		"2026-01-02 03:04:05",
		"2026-01-02T03:04:05+02:00",
	} {
		if _, err := parseTimestamp(s); err != nil {
			t.Errorf("parse %q: %v", s, err)
		}
	}
	if _, err := parseTimestamp("yesterday"); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}
