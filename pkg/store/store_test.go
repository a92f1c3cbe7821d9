package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devkat/CodeExpertDesktop/pkg/model"
)

func TestUpsertFindRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project_metadata.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	p := model.NewRemote(model.Metadata{ProjectID: "p1", Semester: "2024S", CourseName: "c", ExerciseName: "e", TaskName: "t"})
	if err := s.Upsert(p); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got := s.Find("p1")
	if got == nil || got.Metadata.ProjectID != "p1" {
		t.Fatalf("expected to find p1, got %+v", got)
	}
}

func TestFindReturnsNilForAbsentID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project_metadata.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := s.Find("nope"); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestUpsertPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project_metadata.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	p := model.NewRemote(model.Metadata{ProjectID: "p1", Semester: "2024S", CourseName: "c", ExerciseName: "e", TaskName: "t"})
	promoted := p.Promote([]model.FileInfo{{Path: "a.txt", Type: model.NodeFile, Hash: "H1"}}, "base", time.Now())
	if err := s.Upsert(promoted); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := reopened.Find("p1")
	if got == nil || !got.IsLocal() || len(got.Baseline()) != 1 {
		t.Fatalf("expected persisted local project with 1 baseline file, got %+v", got)
	}
}

func TestRemoveDeletesEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project_metadata.json")
	s, _ := Open(path)
	p := model.NewRemote(model.Metadata{ProjectID: "p1"})
	s.Upsert(p)

	if err := s.Remove("p1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := s.Find("p1"); got != nil {
		t.Fatalf("expected p1 removed, got %+v", got)
	}
}

func TestNoLeftoverTempFilesAfterUpsert(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project_metadata.json")
	s, _ := Open(path)
	p := model.NewRemote(model.Metadata{ProjectID: "p1"})
	if err := s.Upsert(p); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "project_metadata.json" {
			t.Fatalf("unexpected leftover file: %s", e.Name())
		}
	}
}

func TestOpenOnMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if all := s.FindAll(); len(all) != 0 {
		t.Fatalf("expected empty store, got %+v", all)
	}
}

func TestBeginSyncRejectsSecondClaim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project_metadata.json")
	s, _ := Open(path)
	p := model.NewRemote(model.Metadata{ProjectID: "p1"})

	_, already, err := s.BeginSync("p1", p)
	if err != nil || already {
		t.Fatalf("first BeginSync: already=%v err=%v", already, err)
	}
	_, already, err = s.BeginSync("p1", p)
	if err != nil {
		t.Fatalf("second BeginSync: %v", err)
	}
	if !already {
		t.Fatal("expected second BeginSync for the same id to report alreadySyncing")
	}
}

func TestBeginSyncThenEndSyncRestoresPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project_metadata.json")
	s, _ := Open(path)
	p := model.NewRemote(model.Metadata{ProjectID: "p1"}).Promote(
		[]model.FileInfo{{Path: "a.txt", Type: model.NodeFile, Hash: "H1"}}, "base", time.Now(),
	)
	if err := s.Upsert(p); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	previous, already, err := s.BeginSync("p1", p)
	if err != nil || already {
		t.Fatalf("BeginSync: already=%v err=%v", already, err)
	}
	if mid := s.Find("p1"); mid.Local.SyncState.Kind != model.SyncStateSyncing {
		t.Fatalf("expected claimed project to read as syncing, got %+v", mid.Local.SyncState)
	}

	if err := s.EndSync("p1", previous); err != nil {
		t.Fatalf("EndSync: %v", err)
	}
	got := s.Find("p1")
	if got == nil || got.Local.SyncState.Kind != model.SyncStateSynced || len(got.Baseline()) != 1 {
		t.Fatalf("expected restored pre-claim state, got %+v", got)
	}
}

func TestEndSyncWithNilPreviousRemovesEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project_metadata.json")
	s, _ := Open(path)
	p := model.NewRemote(model.Metadata{ProjectID: "p1"})

	if _, already, err := s.BeginSync("p1", p); err != nil || already {
		t.Fatalf("BeginSync: already=%v err=%v", already, err)
	}
	if got := s.Find("p1"); got == nil {
		t.Fatal("expected claim to be persisted")
	}

	if err := s.EndSync("p1", nil); err != nil {
		t.Fatalf("EndSync: %v", err)
	}
	if got := s.Find("p1"); got != nil {
		t.Fatalf("expected entry removed after a failed first sync, got %+v", got)
	}
}

// TestAtomicityP6 simulates the "fail before Commit" scenario: a store
// opened fresh after a prior run that never called Upsert must still
// report the pre-run value.
func TestAtomicityP6(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project_metadata.json")
	s, _ := Open(path)
	p := model.NewRemote(model.Metadata{ProjectID: "p1", Semester: "2024S"})
	if err := s.Upsert(p); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	before := s.Find("p1")

	// A failed run never calls Upsert again; re-reading from disk must
	// still yield the pre-run value.
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	after := reopened.Find("p1")
	if after == nil || after.Metadata.Semester != before.Metadata.Semester {
		t.Fatalf("expected unchanged project after failed run, got %+v", after)
	}
}
