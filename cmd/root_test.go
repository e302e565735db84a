package cmd

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/OutOfBears/rbx-configs/internal/flagset"
	"github.com/OutOfBears/rbx-configs/internal/journal"
	"github.com/OutOfBears/rbx-configs/internal/syncconfig"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func TestRootPersistentFlags(t *testing.T) {
	names := map[string]bool{}
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		names[f.Name] = true
	})
	for _, want := range []string{"universe-id", "file", "json"} {
		if !names[want] {
			t.Errorf("persistent flag %q not registered", want)
		}
	}

	if f := rootCmd.PersistentFlags().ShorthandLookup("u"); f == nil || f.Name != "universe-id" {
		t.Error("-u should map to --universe-id")
	}
	if f := rootCmd.PersistentFlags().ShorthandLookup("f"); f == nil || f.Name != "file" {
		t.Error("-f should map to --file")
	}

	// history's --follow must not reuse -f; the persistent --file owns it.
	if f := historyCmd.Flags().ShorthandLookup("f"); f != nil {
		t.Errorf("history redefines -f as %q", f.Name)
	}
}

// newTestCmd returns a bare command carrying the root's persistent flags, so
// the run helpers can be exercised without going through cobra execution.
func newTestCmd(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Uint64P("universe-id", "u", 0, "")
	cmd.Flags().StringP("file", "f", "config.json", "")
	cmd.Flags().Bool("json", false, "")
	return cmd
}

// fakeConfigService serves a published config with the given flags and
// records request paths.
func fakeConfigService(t *testing.T, entries string) (*httptest.Server, *requestRecorder) {
	t.Helper()
	rec := &requestRecorder{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.paths = append(rec.paths, r.Method+" "+r.URL.Path)
		rec.cookie = r.Header.Get("Cookie")
		rec.mu.Unlock()

		if strings.HasSuffix(r.URL.Path, "/latest") {
			fmt.Fprintf(w, `{"configVersion": "v1", "entries": [%s]}`, entries)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

type requestRecorder struct {
	mu     sync.Mutex
	paths  []string
	cookie string
}

func (r *requestRecorder) sawCookie() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cookie
}

func TestRequireUniverseID(t *testing.T) {
	cmd := newTestCmd(t)

	if _, err := requireUniverseID(cmd); err == nil {
		t.Fatal("expected error for missing universe id")
	} else if !strings.Contains(err.Error(), "--universe-id") {
		t.Fatalf("error should name the flag: %v", err)
	}

	if err := cmd.Flags().Set("universe-id", "123456"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	id, err := requireUniverseID(cmd)
	if err != nil {
		t.Fatalf("requireUniverseID: %v", err)
	}
	if id != 123456 {
		t.Fatalf("id = %d, want 123456", id)
	}
}

func TestNewSyncerRequiresCookie(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RBX_COOKIE", "")

	cmd := newTestCmd(t)
	cmd.Flags().Set("universe-id", "77")

	_, _, err := newSyncer(cmd)
	if err == nil {
		t.Fatal("expected error without cookie")
	}
	if !strings.Contains(err.Error(), "auth login") {
		t.Fatalf("error should point at auth login: %v", err)
	}
}

func TestNewSyncerRequiresUniverseID(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RBX_COOKIE", "test-cookie")

	cmd := newTestCmd(t)
	if _, _, err := newSyncer(cmd); err == nil {
		t.Fatal("expected error for missing universe id")
	}
}

func TestNewSyncerDownloadRecordsJournal(t *testing.T) {
	srv, rec := fakeConfigService(t, `{"entry": {"key": "SpeedCap", "entryValue": 16}}`)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("RBX_COOKIE", "test-cookie")
	t.Setenv("RBX_CONFIGS_API_URL", srv.URL)
	t.Setenv("RBX_CONFIGS_JOURNAL", "1")

	cmd := newTestCmd(t)
	cmd.Flags().Set("universe-id", "77")

	s, cleanup, err := newSyncer(cmd)
	if err != nil {
		t.Fatalf("newSyncer: %v", err)
	}

	data, err := s.Download(context.Background())
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	cleanup()

	flags, err := flagset.Parse(data)
	if err != nil {
		t.Fatalf("parse downloaded config: %v", err)
	}
	if len(flags) != 1 {
		t.Fatalf("got %d flags, want 1", len(flags))
	}
	if got := rec.sawCookie(); got != ".ROBLOSECURITY=test-cookie" {
		t.Fatalf("cookie header = %q", got)
	}

	// The download must land in the journal under the universe's id.
	dir, err := syncconfig.ConfigDir()
	if err != nil {
		t.Fatalf("config dir: %v", err)
	}
	jnl, err := journal.Open(dir)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer jnl.Close()

	entries, err := jnl.Tail(77, 10)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("journal rows: got %d, want 1", len(entries))
	}
	if entries[0].Operation != journal.OpDownload || entries[0].UniverseID != 77 {
		t.Fatalf("journal row = %+v", entries[0])
	}
}

func TestNewSyncerJournalDisabled(t *testing.T) {
	srv, _ := fakeConfigService(t, ``)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("RBX_COOKIE", "test-cookie")
	t.Setenv("RBX_CONFIGS_API_URL", srv.URL)
	t.Setenv("RBX_CONFIGS_JOURNAL", "0")

	cmd := newTestCmd(t)
	cmd.Flags().Set("universe-id", "9")

	s, cleanup, err := newSyncer(cmd)
	if err != nil {
		t.Fatalf("newSyncer: %v", err)
	}
	if _, err := s.Download(context.Background()); err != nil {
		t.Fatalf("download: %v", err)
	}
	cleanup()

	dir, err := syncconfig.ConfigDir()
	if err != nil {
		t.Fatalf("config dir: %v", err)
	}
	jnl, err := journal.Open(dir)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer jnl.Close()

	entries, err := jnl.Tail(9, 10)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no journal rows when disabled, got %d", len(entries))
	}
}
