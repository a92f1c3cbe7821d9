package validate

import (
	"testing"

	"github.com/devkat/CodeExpertDesktop/pkg/model"
	"github.com/devkat/CodeExpertDesktop/pkg/syncerr"
)

func TestConflictsSymmetricPathSet(t *testing.T) {
	local := []model.LocalFileChange{
		{Path: "a.txt", Change: model.ChangeUpdated},
		{Path: "b.txt", Change: model.ChangeRemoved},
	}
	remote := []model.RemoteFileChange{
		{Path: "a.txt", Change: model.ChangeUpdated, Version: 2},
		{Path: "c.txt", Change: model.ChangeAdded, Version: 1},
	}

	conflicts := Conflicts(local, remote)
	if len(conflicts) != 1 || conflicts[0].Path != "a.txt" {
		t.Fatalf("expected single conflict at a.txt, got %+v", conflicts)
	}

	// The argument types fix which side is local and which is remote, so
	// the sides are not swapped here; a second call with only the shared
	// path on each side must name the same conflict path.
	reverse := Conflicts(
		[]model.LocalFileChange{{Path: "a.txt", Change: model.ChangeUpdated}},
		[]model.RemoteFileChange{{Path: "a.txt", Change: model.ChangeUpdated, Version: 2}},
	)
	if len(reverse) != 1 || reverse[0].Path != conflicts[0].Path {
		t.Fatalf("expected same conflict path, got %+v", reverse)
	}
}

func TestConflictsEmptyWhenDisjoint(t *testing.T) {
	local := []model.LocalFileChange{{Path: "a.txt", Change: model.ChangeUpdated}}
	remote := []model.RemoteFileChange{{Path: "b.txt", Change: model.ChangeAdded, Version: 1}}
	if got := Conflicts(local, remote); len(got) != 0 {
		t.Fatalf("expected no conflicts, got %+v", got)
	}
}

func TestGateRejectsAddUnderReadOnlyAncestor(t *testing.T) {
	remote := []model.RemoteFileInfo{
		{Path: "lib", Type: model.NodeDir, Permissions: model.PermissionRead},
	}
	local := []model.LocalFileChange{{Path: "lib/new.txt", Change: model.ChangeAdded}}

	_, err := Gate(local, remote)
	se, ok := syncerr.AsSyncError(err)
	if !ok || se.Kind != syncerr.ReadOnlyFilesChanged {
		t.Fatalf("expected ReadOnlyFilesChanged, got %v", err)
	}
}

func TestGateAllowsAddUnderWritableAncestor(t *testing.T) {
	remote := []model.RemoteFileInfo{
		{Path: "lib", Type: model.NodeDir, Permissions: model.PermissionReadWrite},
	}
	local := []model.LocalFileChange{{Path: "lib/new.txt", Change: model.ChangeAdded}}

	eligible, err := Gate(local, remote)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(eligible) != 1 || eligible[0].Path != "lib/new.txt" {
		t.Fatalf("expected new.txt eligible, got %+v", eligible)
	}
}

func TestGateRejectsAddAtRootWhenRootNotInInventory(t *testing.T) {
	// spec.md §4.5: absence at "." (root) while walking for the closest
	// existing ancestor is a fileSystemCorrupted condition, not an
	// implicit allow.
	local := []model.LocalFileChange{{Path: "top.txt", Change: model.ChangeAdded}}
	_, err := Gate(local, nil)
	se, ok := syncerr.AsSyncError(err)
	if !ok || se.Kind != syncerr.FileSystemCorrupted {
		t.Fatalf("expected FileSystemCorrupted, got %v", err)
	}
}

func TestGateAllowsAddAtRootWhenRootListedWritable(t *testing.T) {
	remote := []model.RemoteFileInfo{
		{Path: ".", Type: model.NodeDir, Permissions: model.PermissionReadWrite},
	}
	local := []model.LocalFileChange{{Path: "top.txt", Change: model.ChangeAdded}}

	eligible, err := Gate(local, remote)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(eligible) != 1 {
		t.Fatalf("expected top.txt eligible, got %+v", eligible)
	}
}

func TestGateRejectsAddAtRootWhenRootListedReadOnly(t *testing.T) {
	remote := []model.RemoteFileInfo{
		{Path: ".", Type: model.NodeDir, Permissions: model.PermissionRead},
	}
	local := []model.LocalFileChange{{Path: "top.txt", Change: model.ChangeAdded}}

	_, err := Gate(local, remote)
	se, ok := syncerr.AsSyncError(err)
	if !ok || se.Kind != syncerr.ReadOnlyFilesChanged {
		t.Fatalf("expected ReadOnlyFilesChanged, got %v", err)
	}
}

func TestGateRejectsInvalidFileName(t *testing.T) {
	local := []model.LocalFileChange{{Path: "CON.txt", Change: model.ChangeAdded}}
	_, err := Gate(local, nil)
	se, ok := syncerr.AsSyncError(err)
	if !ok || se.Kind != syncerr.InvalidFilename {
		t.Fatalf("expected InvalidFilename, got %v", err)
	}
}

func TestGateRejectsUpdateOfReadOnlyFile(t *testing.T) {
	remote := []model.RemoteFileInfo{
		{Path: "a.txt", Type: model.NodeFile, Permissions: model.PermissionRead},
	}
	local := []model.LocalFileChange{{Path: "a.txt", Change: model.ChangeUpdated}}

	_, err := Gate(local, remote)
	se, ok := syncerr.AsSyncError(err)
	if !ok || se.Kind != syncerr.ReadOnlyFilesChanged {
		t.Fatalf("expected ReadOnlyFilesChanged, got %v", err)
	}
}

func TestGateRejectsRemovalUnderReadOnlyAncestor(t *testing.T) {
	remote := []model.RemoteFileInfo{
		{Path: "lib", Type: model.NodeDir, Permissions: model.PermissionRead},
		{Path: "lib/old.txt", Type: model.NodeFile, Permissions: model.PermissionReadWrite},
	}
	local := []model.LocalFileChange{{Path: "lib/old.txt", Change: model.ChangeRemoved}}

	_, err := Gate(local, remote)
	se, ok := syncerr.AsSyncError(err)
	if !ok || se.Kind != syncerr.ReadOnlyFilesChanged {
		t.Fatalf("expected ReadOnlyFilesChanged, got %v", err)
	}
}

func TestGateRejectsCorruptAncestorName(t *testing.T) {
	remote := []model.RemoteFileInfo{
		{Path: "lib", Type: model.NodeDir, Permissions: model.PermissionReadWrite},
	}
	local := []model.LocalFileChange{{Path: "lib/CON/new.txt", Change: model.ChangeAdded}}

	_, err := Gate(local, remote)
	se, ok := syncerr.AsSyncError(err)
	if !ok || se.Kind != syncerr.FileSystemCorrupted {
		t.Fatalf("expected FileSystemCorrupted, got %v", err)
	}
}
