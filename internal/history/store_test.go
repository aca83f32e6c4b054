package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"av1watch/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndForJob(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	states := []string{"discovered", "probed", "policy_resolved", "dispatched", "completed"}
	for i, state := range states {
		tr := history.Transition{
			JobID:      "job-a",
			SessionID:  "session-1",
			SourcePath: "/in/movie.mkv",
			State:      state,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
		if state == "completed" {
			code := 0
			tr.Outcome = "succeeded"
			tr.ExitCode = &code
			tr.OutputPath = "/out/movie.mkv"
			tr.PresetVersion = "2024.1"
		}
		if err := store.Record(ctx, tr); err != nil {
			t.Fatalf("Record(%s): %v", state, err)
		}
	}
	if err := store.Record(ctx, history.Transition{JobID: "job-b", SourcePath: "/in/other.mkv", State: "discovered"}); err != nil {
		t.Fatalf("Record(job-b): %v", err)
	}

	got, err := store.ForJob(ctx, "job-a")
	if err != nil {
		t.Fatalf("ForJob: %v", err)
	}
	if len(got) != len(states) {
		t.Fatalf("expected %d transitions, got %d", len(states), len(got))
	}
	for i, tr := range got {
		if tr.State != states[i] {
			t.Fatalf("transition %d: expected %s, got %s", i, states[i], tr.State)
		}
		if tr.Attempt != 1 {
			t.Fatalf("expected default attempt 1, got %d", tr.Attempt)
		}
	}
	last := got[len(got)-1]
	if last.ExitCode == nil || *last.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %v", last.ExitCode)
	}
	if last.Outcome != "succeeded" || last.OutputPath != "/out/movie.mkv" || last.PresetVersion != "2024.1" {
		t.Fatalf("unexpected terminal transition %+v", last)
	}
	if !last.CreatedAt.Equal(base.Add(4 * time.Second)) {
		t.Fatalf("unexpected timestamp %v", last.CreatedAt)
	}
	if got[0].ExitCode != nil {
		t.Fatalf("expected nil exit code on discovered transition")
	}
}

func TestRecentNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	for _, id := range []string{"one", "two", "three"} {
		if err := store.Record(ctx, history.Transition{JobID: id, SourcePath: "/in/" + id, State: "discovered"}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].JobID != "three" || recent[1].JobID != "two" {
		t.Fatalf("unexpected recent transitions %+v", recent)
	}
}

func TestOutcomeCounts(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	records := []history.Transition{
		{JobID: "a", SourcePath: "/in/a", State: "completed", Outcome: "succeeded"},
		{JobID: "b", SourcePath: "/in/b", State: "failed", Outcome: "unsupported"},
		{JobID: "c", SourcePath: "/in/c", State: "completed", Outcome: "succeeded"},
		{JobID: "d", SourcePath: "/in/d", State: "probed"},
	}
	for _, r := range records {
		if err := store.Record(ctx, r); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	counts, err := store.OutcomeCounts(ctx)
	if err != nil {
		t.Fatalf("OutcomeCounts: %v", err)
	}
	if counts["succeeded"] != 2 || counts["unsupported"] != 1 || len(counts) != 2 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestRecordValidatesInput(t *testing.T) {
	store := openStore(t)
	if err := store.Record(context.Background(), history.Transition{State: "discovered"}); err == nil {
		t.Fatal("expected error for missing job id")
	}
	if err := store.Record(context.Background(), history.Transition{JobID: "x"}); err == nil {
		t.Fatal("expected error for missing state")
	}
}

func TestReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Record(context.Background(), history.Transition{JobID: "keep", SourcePath: "/in/k", State: "discovered"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	rows, err := reopened.ForJob(context.Background(), "keep")
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected persisted row, got %v (%v)", rows, err)
	}
}

func TestSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("update version: %v", err)
	}
	_ = db.Close()

	if _, err := history.Open(path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}
