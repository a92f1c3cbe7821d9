// Package validate implements conflict detection and upload-eligibility
// checking (C5): whether a proposed local change is safe to push given the
// remote permission tree, and whether the local/remote diffs overlap.
package validate

import (
	"strings"

	"github.com/devkat/CodeExpertDesktop/pkg/diff"
	"github.com/devkat/CodeExpertDesktop/pkg/fsutil"
	"github.com/devkat/CodeExpertDesktop/pkg/model"
	"github.com/devkat/CodeExpertDesktop/pkg/syncerr"
)

// Conflicts returns one model.Conflict for every path present in both the
// local and remote change sets — P3: the result is symmetric in the sense
// that conflicts(l, r) and conflicts(r, l) name the same path set.
func Conflicts(local []model.LocalFileChange, remote []model.RemoteFileChange) []model.Conflict {
	localByPath := diff.LocalPaths(local)
	remoteByPath := diff.RemotePaths(remote)

	var out []model.Conflict
	for path, lc := range localByPath {
		if rc, ok := remoteByPath[path]; ok {
			out = append(out, model.Conflict{Path: path, ChangeLocal: lc, ChangeRemote: rc})
		}
	}
	return out
}

// remoteIndex is a small lookup the gate checks need repeatedly: inventory
// entries by path, so ancestor walks don't re-scan the slice.
type remoteIndex map[string]model.RemoteFileInfo

func indexRemote(files []model.RemoteFileInfo) remoteIndex {
	idx := make(remoteIndex, len(files))
	for _, f := range files {
		idx[f.Path] = f
	}
	return idx
}

// closestExistingAncestor walks dirname(path) until it finds an entry
// present in the remote inventory, per spec.md §4.5. Reaching "." (root)
// without a match means root itself is absent from the inventory, which
// is the spec's explicit fileSystemCorrupted condition — root is not
// implicitly treated as an existing writable ancestor.
func closestExistingAncestor(idx remoteIndex, path string) (model.RemoteFileInfo, bool, error) {
	dir := parentOf(path)
	for {
		if entry, ok := idx[dir]; ok {
			return entry, true, nil
		}
		if dir == "." {
			return model.RemoteFileInfo{}, false, nil
		}
		dir = parentOf(dir)
	}
}

func parentOf(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return "."
}

// newAncestorSegments returns every path segment of path's directory chain
// that is NOT already present in the remote inventory — the segments that
// would need to be created, each of which must be a valid directory name.
func newAncestorSegments(idx remoteIndex, path string) []string {
	dir := parentOf(path)
	var segments []string
	for dir != "" && dir != "." {
		if _, ok := idx[dir]; ok {
			break
		}
		segments = append(segments, posixBasename(dir))
		dir = parentOf(dir)
	}
	return segments
}

// Gate applies the upload-eligibility checks of spec.md §4.5 to each local
// change and returns the subset that is safe to upload, or the first
// encountered *syncerr.Error.
func Gate(local []model.LocalFileChange, remote []model.RemoteFileInfo) ([]model.LocalFileChange, error) {
	idx := indexRemote(remote)
	var eligible []model.LocalFileChange

	for _, c := range local {
		switch c.Change {
		case model.ChangeAdded:
			if err := checkAdded(idx, c.Path); err != nil {
				return nil, err
			}
		case model.ChangeRemoved:
			if err := checkRemoved(idx, c.Path); err != nil {
				return nil, err
			}
		case model.ChangeUpdated:
			if err := checkUpdated(idx, c.Path); err != nil {
				return nil, err
			}
		case model.ChangeNone:
			// Structural invariant: diff.LocalChanges never emits noChange
			// records, since unchanged paths are simply absent from its
			// result. A noChange here would be a bug in the caller.
			continue
		}
		eligible = append(eligible, c)
	}
	return eligible, nil
}

// posixBasename returns the final '/'-separated segment of a POSIX-style
// relative path. Paths here are already project-relative strings built by
// diff/model, never OS-native, so this avoids filepath's OS-dependent
// separator handling.
func posixBasename(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

func checkAdded(idx remoteIndex, path string) error {
	if !fsutil.IsValidFileName(posixBasename(path)) {
		return syncerr.InvalidName(path)
	}
	for _, seg := range newAncestorSegments(idx, path) {
		if !fsutil.IsValidDirName(seg) {
			return syncerr.Corrupted(path, "invalid ancestor directory name: "+seg)
		}
	}
	ancestor, ok, err := closestExistingAncestor(idx, path)
	if err != nil {
		return syncerr.Corrupted(path, err.Error())
	}
	if !ok {
		return syncerr.Corrupted(path, "no existing ancestor found")
	}
	if !ancestor.Permissions.Writable() {
		return syncerr.ReadOnly(path, "ancestor "+ancestor.Path+" is read-only")
	}
	return nil
}

func checkRemoved(idx remoteIndex, path string) error {
	if entry, ok := idx[path]; ok && !entry.Permissions.Writable() {
		return syncerr.ReadOnly(path, "file is read-only on remote")
	}
	ancestor, ok, err := closestExistingAncestor(idx, path)
	if err != nil {
		return syncerr.Corrupted(path, err.Error())
	}
	if !ok {
		return syncerr.Corrupted(path, "no existing ancestor found")
	}
	if !ancestor.Permissions.Writable() {
		return syncerr.ReadOnly(path, "ancestor "+ancestor.Path+" is read-only")
	}
	return nil
}

func checkUpdated(idx remoteIndex, path string) error {
	entry, ok := idx[path]
	if !ok {
		return syncerr.Corrupted(path, "updated path missing from remote inventory")
	}
	if !entry.Permissions.Writable() {
		return syncerr.ReadOnly(path, "file is read-only on remote")
	}
	return nil
}
