package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"snoowatch/internal/watch"
	logx "snoowatch/pkg/logx"
)

func cursor(id string, sec int64) watch.State {
	return watch.State{Kind: watch.StateCursor, LastSeenID: id, LastSeenAt: time.Unix(sec, 0).UTC()}
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "state")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, ok, err := st.GetState(ctx, "alice"); err != nil || ok {
		t.Fatalf("expected absent state, got ok=%v err=%v", ok, err)
	}

	want := cursor("t3_abc", 1700000000)
	if err := st.PutState(ctx, "alice", want); err != nil {
		t.Fatalf("PutState: %v", err)
	}

	got, ok, err := st.GetState(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("GetState: ok=%v err=%v", ok, err)
	}
	if got.LastSeenID != want.LastSeenID || !got.LastSeenAt.Equal(want.LastSeenAt) {
		t.Fatalf("unexpected state: %+v", got)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	cfg := Config{Driver: "file", Path: filepath.Join(dir, "state")}

	st, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.PutState(ctx, "alice", cursor("t3_old", 100)); err != nil {
		t.Fatalf("PutState: %v", err)
	}
	if err := st.PutState(ctx, "alice", cursor("t3_new", 200)); err != nil {
		t.Fatalf("PutState: %v", err)
	}
	if err := st.PutState(ctx, "bob", watch.State{Kind: watch.StateAvailability, Available: true, CheckedAt: time.Unix(300, 0).UTC()}); err != nil {
		t.Fatalf("PutState: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st, err = Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()

	got, ok, err := st.GetState(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("GetState after reopen: ok=%v err=%v", ok, err)
	}
	if got.LastSeenID != "t3_new" {
		t.Fatalf("expected last write to win, got %+v", got)
	}

	got, ok, _ = st.GetState(ctx, "bob")
	if !ok || got.Kind != watch.StateAvailability || !got.Available {
		t.Fatalf("availability state lost: ok=%v %+v", ok, got)
	}
}

func TestFileStoreJournalReplayWithoutSnapshot(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	cfg := Config{Driver: "file", Path: filepath.Join(dir, "state")}

	st, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.PutState(ctx, "alice", cursor("t3_abc", 100)); err != nil {
		t.Fatalf("PutState: %v", err)
	}
	// Simulate a crash: drop the handle without Close (no compaction).
	fs := st.(*fileStore)
	fs.mu.Lock()
	_ = fs.journalFile.Close()
	fs.journalFile = nil
	fs.mu.Unlock()

	if _, err := os.Stat(filepath.Join(dir, "state.state.snapshot.json")); !os.IsNotExist(err) {
		t.Fatalf("snapshot should not exist before compaction, err=%v", err)
	}

	st, err = Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()

	got, ok, err := st.GetState(ctx, "alice")
	if err != nil || !ok || got.LastSeenID != "t3_abc" {
		t.Fatalf("journal replay failed: ok=%v err=%v state=%+v", ok, err, got)
	}
}

func TestOpenDefaultsToFileDriver(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(Config{Path: filepath.Join(dir, "state")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open with empty driver: %v", err)
	}
	defer st.Close()
	if _, ok := st.(*fileStore); !ok {
		t.Fatalf("expected file store, got %T", st)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "etcd"}, logx.Nop()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	if _, ok, _ := st.GetState(ctx, "alice"); ok {
		t.Fatalf("expected absent state")
	}
	if err := st.PutState(ctx, "alice", cursor("t3_abc", 100)); err != nil {
		t.Fatalf("PutState: %v", err)
	}
	got, ok, _ := st.GetState(ctx, "alice")
	if !ok || got.LastSeenID != "t3_abc" {
		t.Fatalf("unexpected state: ok=%v %+v", ok, got)
	}
}
