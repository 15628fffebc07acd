package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"daypack/internal/engine"
	logx "daypack/pkg/logx"
)

func openTestStore(t *testing.T, dir string) Store {
	t.Helper()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "daypack")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	return st
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	st := openTestStore(t, dir)
	defer st.Close()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday

	err := st.PutRecurring(ctx, Recurring{ID: "r1", UserID: "u1", Title: "standup", Minutes: 15, Days: "mon,wed"})
	if err != nil {
		t.Fatalf("PutRecurring error: %v", err)
	}
	err = st.PutObjective(ctx, Objective{ID: "o1", UserID: "u1", Title: "report", Minutes: 60})
	if err != nil {
		t.Fatalf("PutObjective error: %v", err)
	}

	recs, err := st.UnmetRecurring(ctx, "u1", day)
	if err != nil {
		t.Fatalf("UnmetRecurring error: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "r1" {
		t.Fatalf("recs = %+v, want r1", recs)
	}

	// Tuesday is not in "mon,wed".
	recs, err = st.UnmetRecurring(ctx, "u1", day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("UnmetRecurring error: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("recs on off-day = %+v, want none", recs)
	}

	objs, err := st.OpenObjectives(ctx, "u1")
	if err != nil {
		t.Fatalf("OpenObjectives error: %v", err)
	}
	if len(objs) != 1 || objs[0].Status != engine.StatusNotStarted {
		t.Fatalf("objs = %+v, want o1 not_started", objs)
	}

	if objs, _ := st.OpenObjectives(ctx, "other"); len(objs) != 0 {
		t.Fatalf("user isolation broken: %+v", objs)
	}
}

func TestFileStoreMarkDoneIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t, t.TempDir())
	defer st.Close()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if err := st.PutRecurring(ctx, Recurring{ID: "r1", UserID: "u1", Minutes: 15}); err != nil {
		t.Fatalf("PutRecurring error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := st.MarkRecurringDone(ctx, "r1", "u1", day); err != nil {
			t.Fatalf("MarkRecurringDone #%d error: %v", i+1, err)
		}
	}

	recs, err := st.UnmetRecurring(ctx, "u1", day)
	if err != nil {
		t.Fatalf("UnmetRecurring error: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("marked commitment still unmet: %+v", recs)
	}

	// A different day is a fresh occurrence.
	recs, _ = st.UnmetRecurring(ctx, "u1", day.AddDate(0, 0, 7))
	if len(recs) != 1 {
		t.Fatalf("next occurrence missing: %+v", recs)
	}

	if err := st.MarkRecurringDone(ctx, "missing", "u1", day); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFileStoreStatusNeverRegresses(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t, t.TempDir())
	defer st.Close()

	if err := st.PutObjective(ctx, Objective{ID: "o1", UserID: "u1", Minutes: 30}); err != nil {
		t.Fatalf("PutObjective error: %v", err)
	}
	if err := st.SetObjectiveStatus(ctx, "o1", "u1", engine.StatusCompleted); err != nil {
		t.Fatalf("SetObjectiveStatus error: %v", err)
	}
	if err := st.SetObjectiveStatus(ctx, "o1", "u1", engine.StatusInProgress); err != nil {
		t.Fatalf("SetObjectiveStatus error: %v", err)
	}

	objs, err := st.OpenObjectives(ctx, "u1")
	if err != nil {
		t.Fatalf("OpenObjectives error: %v", err)
	}
	if len(objs) != 0 {
		t.Fatalf("completed objective reopened: %+v", objs)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	st := openTestStore(t, dir)
	if err := st.PutRecurring(ctx, Recurring{ID: "r1", UserID: "u1", Minutes: 15}); err != nil {
		t.Fatalf("PutRecurring error: %v", err)
	}
	if err := st.PutObjective(ctx, Objective{ID: "o1", UserID: "u1", Minutes: 30}); err != nil {
		t.Fatalf("PutObjective error: %v", err)
	}
	if err := st.MarkRecurringDone(ctx, "r1", "u1", day); err != nil {
		t.Fatalf("MarkRecurringDone error: %v", err)
	}
	if err := st.SetObjectiveStatus(ctx, "o1", "u1", engine.StatusInProgress); err != nil {
		t.Fatalf("SetObjectiveStatus error: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	st = openTestStore(t, dir)
	defer st.Close()

	recs, err := st.UnmetRecurring(ctx, "u1", day)
	if err != nil {
		t.Fatalf("UnmetRecurring error: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("done mark lost across reopen: %+v", recs)
	}
	objs, err := st.OpenObjectives(ctx, "u1")
	if err != nil {
		t.Fatalf("OpenObjectives error: %v", err)
	}
	if len(objs) != 1 || objs[0].Status != engine.StatusInProgress {
		t.Fatalf("objective state lost across reopen: %+v", objs)
	}
}

func TestFileStoreTornJournalTail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	st := openTestStore(t, dir)
	if err := st.PutObjective(ctx, Objective{ID: "o1", UserID: "u1", Minutes: 30}); err != nil {
		t.Fatalf("PutObjective error: %v", err)
	}
	// Skip Close so the journal keeps its lines, then simulate a torn write.
	jf, err := os.OpenFile(filepath.Join(dir, "daypack.journal.jsonl"), os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	if _, err := jf.WriteString(`{"op":"put_objective","objecti`); err != nil {
		t.Fatalf("write torn tail: %v", err)
	}
	_ = jf.Close()

	st2 := openTestStore(t, dir)
	defer st2.Close()

	objs, err := st2.OpenObjectives(ctx, "u1")
	if err != nil {
		t.Fatalf("OpenObjectives error: %v", err)
	}
	if len(objs) != 1 || objs[0].ID != "o1" {
		t.Fatalf("records before the torn tail lost: %+v", objs)
	}
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = %v, %v; want nil store, nil error", driver, st, err)
		}
	}

	if _, err := Open(Config{Driver: "bogus"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
