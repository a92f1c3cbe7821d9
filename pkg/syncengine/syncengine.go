// Package syncengine implements C7, the orchestrator that runs one sync:
// Setup, Inventory, Diff, Conflict gate, Plan, Apply, Commit. It composes
// every other component package and is the only one that mutates both the
// filesystem and the metadata store.
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devkat/CodeExpertDesktop/internal/logging"
	"github.com/devkat/CodeExpertDesktop/internal/metrics"
	"github.com/devkat/CodeExpertDesktop/pkg/apiclient"
	"github.com/devkat/CodeExpertDesktop/pkg/diff"
	"github.com/devkat/CodeExpertDesktop/pkg/fsutil"
	"github.com/devkat/CodeExpertDesktop/pkg/model"
	"github.com/devkat/CodeExpertDesktop/pkg/store"
	"github.com/devkat/CodeExpertDesktop/pkg/syncerr"
	"github.com/devkat/CodeExpertDesktop/pkg/validate"
)

// ErrAlreadySyncing is returned when Sync is called for a project whose
// persisted SyncState is already 'syncing' (spec.md §5: at most one sync
// per project may be in flight).
var ErrAlreadySyncing = errors.New("syncengine: project is already syncing")

// Config wires the engine's dependencies. ProjectDir is the configured
// sync root (spec.md's settings.projectDir); an empty ProjectDir is a
// ProjectDirMissing condition at the start of every run.
type Config struct {
	ProjectDir string
	Client     *apiclient.Client
	Store      *store.Store
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	TempDir    string // defaults to fsutil.TempDir() if empty
}

// Engine runs sync operations for a configured project root.
type Engine struct {
	cfg Config
}

// New builds an Engine. A nil Logger or Metrics is replaced with a no-op
// equivalent so callers in tests don't need to construct either.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(nil)
	}
	if cfg.TempDir == "" {
		cfg.TempDir = fsutil.TempDir()
	}
	return &Engine{cfg: cfg}
}

// Options configures one Sync call.
type Options struct {
	Force model.Force // "" (no force), model.ForcePush, or model.ForcePull
}

// Sync runs one full sync for project and returns the project's new
// persisted state (promoted to Local on first success). Per-project
// single-flight is enforced via the store: BeginSync claims a Syncing
// state for project.Metadata.ProjectID before run() starts, atomically
// rejecting a second overlapping call for the same project with
// ErrAlreadySyncing. On any failure the claim is released back to
// whatever the store held before this run — P6 — via EndSync; on success
// run()'s own Phase 7 commit already overwrites the claim with the final
// state.
func (e *Engine) Sync(ctx context.Context, project *model.Project, opts Options) (*model.Project, error) {
	start := time.Now()
	id := project.Metadata.ProjectID
	log := logging.WithRun(e.cfg.Logger, uuid.NewString(), string(id))

	previous, alreadySyncing, err := e.cfg.Store.BeginSync(id, project)
	if err != nil {
		return nil, fmt.Errorf("syncengine: claim sync slot: %w", err)
	}
	if alreadySyncing {
		return nil, ErrAlreadySyncing
	}

	result, runErr := e.run(ctx, project, opts, log)
	duration := time.Since(start)
	e.cfg.Metrics.SyncDuration.Observe(duration.Seconds())

	switch {
	case runErr == nil:
		e.cfg.Metrics.SyncsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
		log.Info("sync completed", zap.Duration("duration", duration))
	case errors.Is(runErr, &syncerr.Error{Kind: syncerr.ConflictingChanges}):
		e.cfg.Metrics.SyncsTotal.WithLabelValues(metrics.OutcomeConflict).Inc()
		e.cfg.Metrics.ConflictsTotal.Inc()
		log.Warn("sync found conflicting changes", zap.Duration("duration", duration))
	default:
		e.cfg.Metrics.SyncsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.Error("sync failed", zap.Error(runErr), zap.Duration("duration", duration))
	}

	if runErr != nil {
		if releaseErr := e.cfg.Store.EndSync(id, previous); releaseErr != nil {
			log.Error("failed to release sync claim", zap.Error(releaseErr))
		}
	}
	return result, runErr
}

func (e *Engine) run(ctx context.Context, project *model.Project, opts Options, log *zap.Logger) (*model.Project, error) {
	// Phase 1: Setup.
	if e.cfg.ProjectDir == "" {
		return nil, syncerr.DirMissing()
	}
	projectDirRelative := project.ProjectDirRelative()
	projectDir, err := fsutil.Join(e.cfg.ProjectDir, fsutil.FromPosix(projectDirRelative))
	if err != nil {
		return nil, syncerr.Wrap(syncerr.FileSystemCorrupted, err, "joining project directory")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 2: Inventory.
	remoteInfo, err := e.cfg.Client.ProjectInfo(ctx, project.Metadata.ProjectID)
	if err != nil {
		return nil, classifyNetworkErr(err)
	}
	remoteFiles := remoteInfo.Files

	var localStates []model.LocalFileState
	if project.IsLocal() {
		localStates, err = scanLocal(projectDir)
		if err != nil {
			return nil, syncerr.Wrap(syncerr.FileSystemCorrupted, err, "scanning project directory")
		}
	}
	baseline := project.Baseline()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 3: Diff.
	var remoteChanges []model.RemoteFileChange
	if opts.Force != model.ForcePush {
		remoteChanges = diff.RemoteChanges(model.OnlyFiles(baseline), model.OnlyRemoteFiles(remoteFiles))
	}
	var localChanges []model.LocalFileChange
	if project.IsLocal() && opts.Force != model.ForcePull {
		localChanges = diff.LocalChanges(model.OnlyFiles(baseline), model.OnlyLocalFiles(localStates))
	}

	// Phase 4: Conflict gate.
	if opts.Force == "" && len(remoteChanges) > 0 && len(localChanges) > 0 {
		if conflicts := validate.Conflicts(localChanges, remoteChanges); len(conflicts) > 0 {
			return nil, syncerr.Conflicting()
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 5: Plan.
	filesToUpload, err := validate.Gate(filterLocal(localChanges, model.ChangeAdded, model.ChangeUpdated, model.ChangeRemoved), remoteFiles)
	if err != nil {
		return nil, err
	}
	filesToDownload := filterRemoteFilesToDownload(remoteFiles, remoteChanges)
	filesToDelete := filterRemote(remoteChanges, model.ChangeRemoved)
	dirsToEnsure := dirsByAscendingDepth(model.OnlyDirs(remoteFiles))

	// Phase 6: Apply.
	remoteFiles, err = e.applyUpload(ctx, project.Metadata.ProjectID, projectDir, filesToUpload, remoteFiles, log)
	if err != nil {
		return nil, err
	}
	if err := e.applyEnsureDirs(ctx, projectDir, dirsToEnsure); err != nil {
		return nil, err
	}
	if err := e.applyDownload(ctx, project.Metadata.ProjectID, projectDir, filesToDownload); err != nil {
		return nil, err
	}
	if err := e.applyDeleteLocal(ctx, projectDir, filesToDelete); err != nil {
		return nil, err
	}
	if err := e.applyFinalizeDirPermissions(ctx, projectDir, dirsToEnsure); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 7: Commit.
	finalInfo, err := e.cfg.Client.ProjectInfo(ctx, project.Metadata.ProjectID)
	if err != nil {
		return nil, classifyNetworkErr(err)
	}
	newBaseline, err := hashBaseline(projectDir, model.OnlyRemoteFiles(finalInfo.Files))
	if err != nil {
		return nil, syncerr.Wrap(syncerr.FileSystemCorrupted, err, "hashing committed baseline")
	}
	dirBaseline := baselineForDirs(model.OnlyDirs(finalInfo.Files))
	newBaseline = append(newBaseline, dirBaseline...)

	promoted := project.Promote(newBaseline, projectDirRelative, time.Now())
	if err := e.cfg.Store.Upsert(promoted); err != nil {
		return nil, fmt.Errorf("syncengine: commit baseline: %w", err)
	}
	return promoted, nil
}

// classifyNetworkErr turns a C2 failure into the C8 taxonomy. KindNotReady
// means the signer was never initialised — a programming error, not an
// ordinary transient network failure — so it maps to syncerr.Ready()
// rather than NetworkError; folding it in there would surface a fatal
// misconfiguration to the user as "retry guidance" instead of aborting the
// process. err (not the unwrapped apiclient.Error) is kept as Wrapped so
// any retry.RetryableError marking set deeper in the chain survives.
func classifyNetworkErr(err error) error {
	ae, ok := apiclient.AsError(err)
	if ok && ae.Kind == apiclient.KindNotReady {
		return syncerr.Ready()
	}
	if ok {
		return &syncerr.Error{Kind: syncerr.NetworkError, Status: ae.Status, Reason: ae.Message, Wrapped: err}
	}
	return syncerr.Wrap(syncerr.NetworkError, err, err.Error())
}

func filterLocal(changes []model.LocalFileChange, kinds ...model.ChangeKind) []model.LocalFileChange {
	want := make(map[model.ChangeKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []model.LocalFileChange
	for _, c := range changes {
		if want[c.Change] {
			out = append(out, c)
		}
	}
	return out
}

func filterRemote(changes []model.RemoteFileChange, kinds ...model.ChangeKind) []model.RemoteFileChange {
	want := make(map[model.ChangeKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []model.RemoteFileChange
	for _, c := range changes {
		if want[c.Change] {
			out = append(out, c)
		}
	}
	return out
}

// filterRemoteFilesToDownload returns the full RemoteFileInfo (type=file
// only) for every added/updated path in remoteChanges.
func filterRemoteFilesToDownload(remoteFiles []model.RemoteFileInfo, remoteChanges []model.RemoteFileChange) []model.RemoteFileInfo {
	wanted := make(map[string]bool)
	for _, c := range remoteChanges {
		if c.Change == model.ChangeAdded || c.Change == model.ChangeUpdated {
			wanted[c.Path] = true
		}
	}
	var out []model.RemoteFileInfo
	for _, f := range model.OnlyRemoteFiles(remoteFiles) {
		if wanted[f.Path] {
			out = append(out, f)
		}
	}
	return out
}

func dirsByAscendingDepth(dirs []model.RemoteFileInfo) []model.RemoteFileInfo {
	out := append([]model.RemoteFileInfo(nil), dirs...)
	sort.SliceStable(out, func(i, j int) bool {
		return depthOf(out[i].Path) < depthOf(out[j].Path)
	})
	return out
}

func depthOf(path string) int {
	depth := 1
	for _, r := range path {
		if r == '/' {
			depth++
		}
	}
	return depth
}

func scanLocal(projectDir string) ([]model.LocalFileState, error) {
	if !fsutil.Exists(projectDir) {
		return nil, nil
	}
	nodes, err := fsutil.ReadDirTree(projectDir)
	if err != nil {
		return nil, err
	}

	states := make([]model.LocalFileState, 0, len(nodes))
	for _, n := range nodes {
		rel, err := fsutil.StripAncestor(projectDir, n.Path)
		if err != nil {
			return nil, err
		}
		rel = fsutil.ToPosix(rel)

		if n.Type == fsutil.NodeDir {
			states = append(states, model.LocalFileState{Path: rel, Type: model.NodeDir})
			continue
		}
		hash, err := fsutil.Hash(n.Path)
		if err != nil {
			return nil, err
		}
		states = append(states, model.LocalFileState{Path: rel, Type: model.NodeFile, Hash: hash})
	}
	return states, nil
}

func hashBaseline(projectDir string, remoteFiles []model.RemoteFileInfo) ([]model.FileInfo, error) {
	out := make([]model.FileInfo, 0, len(remoteFiles))
	for _, f := range remoteFiles {
		abs, err := fsutil.Join(projectDir, fsutil.FromPosix(f.Path))
		if err != nil {
			return nil, err
		}
		hash, err := fsutil.Hash(abs)
		if err != nil {
			return nil, fmt.Errorf("hash %s: %w", f.Path, err)
		}
		out = append(out, model.FileInfo{Path: f.Path, Type: model.NodeFile, Version: f.Version, Hash: hash, Permissions: f.Permissions})
	}
	return out, nil
}

func baselineForDirs(dirs []model.RemoteFileInfo) []model.FileInfo {
	out := make([]model.FileInfo, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, model.FileInfo{Path: d.Path, Type: model.NodeDir, Version: d.Version, Permissions: d.Permissions})
	}
	return out
}
