// Package model defines the data model shared by every sync engine
// component: project identity, metadata, the local/remote file inventories,
// change records, conflicts, and sync state — spec.md §3.
package model

import (
	"time"

	"github.com/devkat/CodeExpertDesktop/pkg/fsutil"
)

// ProjectID is an opaque, branded identifier for a project.
type ProjectID string

// Permission is the remote-authoritative access level for a path.
// Invariant I3: local permissions are always derived from this.
type Permission string

const (
	PermissionRead      Permission = "r"
	PermissionReadWrite Permission = "rw"
)

// Writable reports whether content at this permission level may be
// modified, per invariant I3.
func (p Permission) Writable() bool { return p == PermissionReadWrite }

// ReadOnly reports whether local content at this permission level is
// written without the write bits.
func (p Permission) ReadOnly() bool { return p != PermissionReadWrite }

// NodeType distinguishes files from directories in any inventory.
// Invariant I5: only type=file entries participate in hash/content
// diffing; directories are reconciled by existence alone.
type NodeType string

const (
	NodeFile NodeType = "file"
	NodeDir  NodeType = "dir"
)

// Metadata describes a project's identity and placement, independent of
// whether it has ever been synced locally.
type Metadata struct {
	ProjectID     ProjectID  `json:"projectId"`
	Semester      string     `json:"semester"`
	CourseName    string     `json:"courseName"`
	ExerciseName  string     `json:"exerciseName"`
	TaskName      string     `json:"taskName"`
	Permissions   Permission `json:"permissions"`
	TaskOrder     int        `json:"taskOrder"`
	ExerciseOrder int        `json:"exerciseOrder"`
}

// RelativeDir derives the project's directory relative to the configured
// sync root: escape(semester)/escape(courseName)/escape(exerciseName)/escape(taskName).
func (m Metadata) RelativeDir() string {
	return fsutil.ToPosix(
		fsutil.Escape(m.Semester) + "/" +
			fsutil.Escape(m.CourseName) + "/" +
			fsutil.Escape(m.ExerciseName) + "/" +
			fsutil.Escape(m.TaskName),
	)
}

// FileInfo is a baseline entry: the exact state observed immediately after
// the last successful sync (invariant I2). Directories carry no hash.
type FileInfo struct {
	Path        string     `json:"path"`
	Type        NodeType   `json:"type"`
	Version     int        `json:"version"`
	Hash        string     `json:"hash,omitempty"`
	Permissions Permission `json:"permissions"`
}

// RemoteFileInfo is one entry of the authoritative remote inventory. It
// carries no content hash — the server tracks versions, not digests.
type RemoteFileInfo struct {
	Path        string     `json:"path"`
	Type        NodeType   `json:"type"`
	Version     int        `json:"version"`
	Permissions Permission `json:"permissions"`
}

// LocalFileState is the observed local filesystem state for one path: no
// version (the filesystem doesn't track one) and no permissions (the local
// FS doesn't track the server's permission grant).
type LocalFileState struct {
	Path string   `json:"path"`
	Type NodeType `json:"type"`
	Hash string   `json:"hash,omitempty"`
}

// ChangeKind is the four-way outcome of diffing a path between a baseline
// and an observed inventory.
type ChangeKind string

const (
	ChangeNone    ChangeKind = "noChange"
	ChangeAdded   ChangeKind = "added"
	ChangeUpdated ChangeKind = "updated"
	ChangeRemoved ChangeKind = "removed"
)

// RemoteFileChange is a diff record against the remote inventory, carrying
// the new version for added/updated entries.
type RemoteFileChange struct {
	Path    string
	Change  ChangeKind
	Version int
}

// LocalFileChange is a diff record against the local filesystem.
type LocalFileChange struct {
	Path   string
	Change ChangeKind
}

// Conflict is a path where both local and remote changed since baseline.
type Conflict struct {
	Path         string
	ChangeLocal  LocalFileChange
	ChangeRemote RemoteFileChange
}

// SyncStateKind tags the three variants of SyncState.
type SyncStateKind string

const (
	SyncStateSynced  SyncStateKind = "synced"
	SyncStateSyncing SyncStateKind = "syncing"
	SyncStateFailed  SyncStateKind = "failed"
)

// Changes summarises the pending local/remote diffs observed since
// baseline. Known=false is the "unknown" value that Project.Promote records
// after every successful sync; Local and Remote are meaningful only when
// Known is true.
type Changes struct {
	Known  bool
	Local  []LocalFileChange
	Remote []RemoteFileChange
}

// UnknownChanges is the initial Changes value used right after a fresh
// sync, before any subsequent diff has been computed.
func UnknownChanges() Changes { return Changes{Known: false} }

// SyncState is the tagged sync status of a Local project.
type SyncState struct {
	Kind      SyncStateKind
	Changes   Changes // meaningful when Kind == SyncStateSynced
	FailedErr string  // meaningful when Kind == SyncStateFailed; stored as
	                  // a string so SyncState stays trivially JSON-serialisable.
}

// Synced constructs a SyncState in the synced variant.
func Synced(c Changes) SyncState { return SyncState{Kind: SyncStateSynced, Changes: c} }

// Syncing constructs a SyncState in the syncing variant.
func Syncing() SyncState { return SyncState{Kind: SyncStateSyncing} }

// Failed constructs a SyncState in the failed variant.
func Failed(reason string) SyncState { return SyncState{Kind: SyncStateFailed, FailedErr: reason} }

// LocalState holds the fields only present once a project has a baseline
// (i.e. has synced successfully at least once).
type LocalState struct {
	BasePath  string     `json:"basePath"`
	Files     []FileInfo `json:"files"`
	SyncedAt  time.Time  `json:"syncedAt"`
	SyncState SyncState  `json:"syncState"`
}

// Project is the tagged Remote|Local variant from spec.md §3. Local is nil
// for a Remote project and populated once the project has a baseline.
type Project struct {
	Metadata Metadata    `json:"metadata"`
	Local    *LocalState `json:"local,omitempty"`
}

// NewRemote constructs a project known only to the server.
func NewRemote(meta Metadata) *Project {
	return &Project{Metadata: meta}
}

// IsLocal reports whether the project has a synced baseline.
func (p *Project) IsLocal() bool { return p.Local != nil }

// ProjectDirRelative derives the project's directory relative to the sync
// root: from Metadata for a Remote project, or from the persisted
// BasePath for a Local one (spec.md §4.7 phase 1).
func (p *Project) ProjectDirRelative() string {
	if p.Local != nil && p.Local.BasePath != "" {
		return p.Local.BasePath
	}
	return p.Metadata.RelativeDir()
}

// Baseline returns the project's baseline file list, or nil if it has
// never synced.
func (p *Project) Baseline() []FileInfo {
	if p.Local == nil {
		return nil
	}
	return p.Local.Files
}

// Promote returns a copy of p promoted (or updated) to Local with the
// given baseline, base path, and sync timestamp — the result of a
// successful sync run (spec.md §4.7 phase 7).
func (p *Project) Promote(files []FileInfo, basePath string, syncedAt time.Time) *Project {
	return &Project{
		Metadata: p.Metadata,
		Local: &LocalState{
			BasePath:  basePath,
			Files:     files,
			SyncedAt:  syncedAt,
			SyncState: Synced(UnknownChanges()),
		},
	}
}

// OnlyFiles returns the subset of files with Type == NodeFile, per
// invariant I5: only files participate in hash/content diffing.
func OnlyFiles(files []FileInfo) []FileInfo {
	out := make([]FileInfo, 0, len(files))
	for _, f := range files {
		if f.Type == NodeFile {
			out = append(out, f)
		}
	}
	return out
}

// OnlyRemoteFiles returns the subset of remote entries with Type == NodeFile.
func OnlyRemoteFiles(files []RemoteFileInfo) []RemoteFileInfo {
	out := make([]RemoteFileInfo, 0, len(files))
	for _, f := range files {
		if f.Type == NodeFile {
			out = append(out, f)
		}
	}
	return out
}

// OnlyDirs returns the subset of remote entries with Type == NodeDir.
func OnlyDirs(files []RemoteFileInfo) []RemoteFileInfo {
	out := make([]RemoteFileInfo, 0, len(files))
	for _, f := range files {
		if f.Type == NodeDir {
			out = append(out, f)
		}
	}
	return out
}

// OnlyLocalFiles returns the subset of local entries with Type == NodeFile.
func OnlyLocalFiles(files []LocalFileState) []LocalFileState {
	out := make([]LocalFileState, 0, len(files))
	for _, f := range files {
		if f.Type == NodeFile {
			out = append(out, f)
		}
	}
	return out
}

// Force selects which side's changes are discarded in a forced sync.
type Force string

const (
	ForcePush Force = "push" // discard remote's view: never pull
	ForcePull Force = "pull" // discard local's view: never push
)
