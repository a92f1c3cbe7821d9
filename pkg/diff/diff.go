// Package diff implements change detection (C4): given a baseline file
// list and a latest observed inventory, it computes added/removed/updated
// sets keyed by path, with a deterministic emission order.
package diff

import (
	"sort"

	"github.com/devkat/CodeExpertDesktop/pkg/model"
)

// RemoteChanges computes the diff between a baseline and the latest remote
// inventory, using version as the discriminator for "updated". Both inputs
// should already be filtered to type=file by the caller (model.OnlyFiles /
// model.OnlyRemoteFiles) — diff never looks at directories (invariant I5).
func RemoteChanges(baseline []model.FileInfo, latest []model.RemoteFileInfo) []model.RemoteFileChange {
	prevByPath := indexFileInfo(baseline)
	latestByPath := indexRemoteInfo(latest)

	var removed, added, updated []model.RemoteFileChange

	for path, prev := range prevByPath {
		cur, ok := latestByPath[path]
		if !ok {
			removed = append(removed, model.RemoteFileChange{Path: path, Change: model.ChangeRemoved})
			continue
		}
		if cur.Version != prev.Version {
			updated = append(updated, model.RemoteFileChange{Path: path, Change: model.ChangeUpdated, Version: cur.Version})
		}
	}
	for path, cur := range latestByPath {
		if _, ok := prevByPath[path]; !ok {
			added = append(added, model.RemoteFileChange{Path: path, Change: model.ChangeAdded, Version: cur.Version})
		}
	}

	sortRemoteChanges(removed)
	sortRemoteChanges(added)
	sortRemoteChanges(updated)

	return concatRemote(removed, added, updated)
}

// LocalChanges computes the diff between a baseline and the latest
// observed local filesystem state, using content hash as the discriminator
// for "updated".
func LocalChanges(baseline []model.FileInfo, latest []model.LocalFileState) []model.LocalFileChange {
	prevByPath := indexFileInfo(baseline)
	latestByPath := indexLocalState(latest)

	var removed, added, updated []model.LocalFileChange

	for path, prev := range prevByPath {
		cur, ok := latestByPath[path]
		if !ok {
			removed = append(removed, model.LocalFileChange{Path: path, Change: model.ChangeRemoved})
			continue
		}
		if cur.Hash != prev.Hash {
			updated = append(updated, model.LocalFileChange{Path: path, Change: model.ChangeUpdated})
		}
	}
	for path := range latestByPath {
		if _, ok := prevByPath[path]; !ok {
			added = append(added, model.LocalFileChange{Path: path, Change: model.ChangeAdded})
		}
	}

	sortLocalChanges(removed)
	sortLocalChanges(added)
	sortLocalChanges(updated)

	return concatLocal(removed, added, updated)
}

func indexFileInfo(files []model.FileInfo) map[string]model.FileInfo {
	m := make(map[string]model.FileInfo, len(files))
	for _, f := range files {
		m[f.Path] = f
	}
	return m
}

func indexRemoteInfo(files []model.RemoteFileInfo) map[string]model.RemoteFileInfo {
	m := make(map[string]model.RemoteFileInfo, len(files))
	for _, f := range files {
		m[f.Path] = f
	}
	return m
}

func indexLocalState(files []model.LocalFileState) map[string]model.LocalFileState {
	m := make(map[string]model.LocalFileState, len(files))
	for _, f := range files {
		m[f.Path] = f
	}
	return m
}

func sortRemoteChanges(c []model.RemoteFileChange) {
	sort.Slice(c, func(i, j int) bool { return c[i].Path < c[j].Path })
}

func sortLocalChanges(c []model.LocalFileChange) {
	sort.Slice(c, func(i, j int) bool { return c[i].Path < c[j].Path })
}

func concatRemote(groups ...[]model.RemoteFileChange) []model.RemoteFileChange {
	var out []model.RemoteFileChange
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func concatLocal(groups ...[]model.LocalFileChange) []model.LocalFileChange {
	var out []model.LocalFileChange
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// RemotePaths returns the path set of a remote change list, for intersection
// tests (conflict detection in pkg/validate).
func RemotePaths(changes []model.RemoteFileChange) map[string]model.RemoteFileChange {
	m := make(map[string]model.RemoteFileChange, len(changes))
	for _, c := range changes {
		m[c.Path] = c
	}
	return m
}

// LocalPaths returns the path set of a local change list.
func LocalPaths(changes []model.LocalFileChange) map[string]model.LocalFileChange {
	m := make(map[string]model.LocalFileChange, len(changes))
	for _, c := range changes {
		m[c.Path] = c
	}
	return m
}
