package audit

import (
	"testing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := New(t.TempDir())
	if err := svc.Ensure(); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	return svc
}

func TestEnsureIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	if err := svc.Ensure(); err != nil {
		t.Fatalf("second Ensure() error = %v", err)
	}
	entries, err := svc.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected the single init commit, got %d", len(entries))
	}
}

func TestCommitAndHistory(t *testing.T) {
	svc := newTestService(t)

	snapshot := Snapshot{
		Purposes:    []SnapshotPurpose{{ID: 1, Name: "Contract", RetentionPeriod: "P5Y"}},
		Assignments: []SnapshotAssignment{{ContextID: 42, PurposeID: 1}},
	}
	entry, err := svc.Commit(snapshot, "Dana", "Assign purpose to context 42")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if entry.Author != "Dana" {
		t.Fatalf("entry author = %q", entry.Author)
	}

	entries, err := svc.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected init + change commits, got %d", len(entries))
	}
	if entries[0].Hash != entry.Hash {
		t.Fatalf("newest entry should be the change commit")
	}

	got, err := svc.SnapshotAt(entry.Hash)
	if err != nil {
		t.Fatalf("SnapshotAt() error = %v", err)
	}
	if len(got.Assignments) != 1 || got.Assignments[0].ContextID != 42 {
		t.Fatalf("snapshot round-trip mismatch: %+v", got)
	}
}

func TestCommitUnchangedSnapshotAddsNothing(t *testing.T) {
	svc := newTestService(t)

	snapshot := Snapshot{Purposes: []SnapshotPurpose{{ID: 1, Name: "Contract"}}}
	first, err := svc.Commit(snapshot, "Dana", "First")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	second, err := svc.Commit(snapshot, "Dana", "Second")
	if err != nil {
		t.Fatalf("repeat Commit() error = %v", err)
	}
	if second.Hash != first.Hash {
		t.Fatalf("identical snapshot must not create a new commit")
	}

	entries, _ := svc.History(10)
	if len(entries) != 2 {
		t.Fatalf("expected init + one change, got %d commits", len(entries))
	}
}
