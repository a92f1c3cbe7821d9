package syncengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/devkat/CodeExpertDesktop/pkg/archive"
	"github.com/devkat/CodeExpertDesktop/pkg/fsutil"
	"github.com/devkat/CodeExpertDesktop/pkg/model"
)

// applyUpload materialises an archive for filesToUpload (if non-empty),
// uploads it alongside the set of paths to remove, and returns the
// server's updated inventory. If there is nothing to upload or remove, it
// returns remoteFiles unchanged without a network call.
func (e *Engine) applyUpload(ctx context.Context, id model.ProjectID, projectDir string, filesToUpload []model.LocalFileChange, remoteFiles []model.RemoteFileInfo, log *zap.Logger) ([]model.RemoteFileInfo, error) {
	removePaths := pathsOf(filterLocal(filesToUpload, model.ChangeRemoved))
	uploadPaths := pathsOf(filterLocal(filesToUpload, model.ChangeAdded, model.ChangeUpdated))

	if len(uploadPaths) == 0 && len(removePaths) == 0 {
		return remoteFiles, nil
	}

	var archivePath, tarHash string
	var archiveBytes int64
	if len(uploadPaths) > 0 {
		name := fmt.Sprintf("project_%s_%d.tar.br", id, time.Now().UnixNano())
		archivePath = filepath.Join(e.cfg.TempDir, name)
		defer fsutil.RemoveFile(archivePath)

		hash, err := archive.Build(archivePath, projectDir, uploadPaths)
		if err != nil {
			return nil, fmt.Errorf("syncengine: build upload archive: %w", err)
		}
		tarHash = hash
		if info, err := os.Stat(archivePath); err == nil {
			archiveBytes = info.Size()
		}
	}

	resp, err := e.cfg.Client.UploadFiles(ctx, id, archivePath, tarHash, removePaths)
	if err != nil {
		return nil, classifyNetworkErr(err)
	}

	e.cfg.Metrics.FilesUploaded.Add(float64(len(uploadPaths)))
	e.cfg.Metrics.BytesUploaded.Add(float64(archiveBytes))
	log.Info("uploaded archive", zap.Int("files", len(uploadPaths)), zap.Int("removed", len(removePaths)))

	return resp.Files, nil
}

// applyEnsureDirs creates every directory, always writable regardless of
// its final permission grant: a read-only directory still needs to accept
// the files applyDownload is about to write into it. Read-only directories
// get their final mode only once downloads have finished, in
// applyFinalizeDirPermissions.
func (e *Engine) applyEnsureDirs(ctx context.Context, projectDir string, dirs []model.RemoteFileInfo) error {
	for _, d := range dirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		abs, err := fsutil.Join(projectDir, fsutil.FromPosix(d.Path))
		if err != nil {
			return fmt.Errorf("syncengine: join dir path %s: %w", d.Path, err)
		}
		if err := fsutil.Mkdir(abs, false); err != nil {
			return fmt.Errorf("syncengine: ensure dir %s: %w", d.Path, err)
		}
	}
	return nil
}

// applyFinalizeDirPermissions sets each directory's final read-only mode,
// after every write beneath it (downloads, deletions) has completed.
func (e *Engine) applyFinalizeDirPermissions(ctx context.Context, projectDir string, dirs []model.RemoteFileInfo) error {
	for _, d := range dirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Permissions.ReadOnly() {
			continue
		}
		abs, err := fsutil.Join(projectDir, fsutil.FromPosix(d.Path))
		if err != nil {
			return fmt.Errorf("syncengine: join dir path %s: %w", d.Path, err)
		}
		if err := fsutil.Mkdir(abs, true); err != nil {
			return fmt.Errorf("syncengine: finalize dir permissions %s: %w", d.Path, err)
		}
	}
	return nil
}

func (e *Engine) applyDownload(ctx context.Context, id model.ProjectID, projectDir string, files []model.RemoteFileInfo) error {
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, err := e.cfg.Client.FetchFile(ctx, id, f.Path)
		if err != nil {
			return classifyNetworkErr(err)
		}
		abs, err := fsutil.Join(projectDir, fsutil.FromPosix(f.Path))
		if err != nil {
			return fmt.Errorf("syncengine: join download path %s: %w", f.Path, err)
		}
		if err := fsutil.WriteFile(abs, []byte(content), f.Permissions.ReadOnly()); err != nil {
			return fmt.Errorf("syncengine: write downloaded file %s: %w", f.Path, err)
		}
		e.cfg.Metrics.FilesDownloaded.Inc()
		e.cfg.Metrics.BytesDownloaded.Add(float64(len(content)))
	}
	return nil
}

func (e *Engine) applyDeleteLocal(ctx context.Context, projectDir string, files []model.RemoteFileChange) error {
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		abs, err := fsutil.Join(projectDir, fsutil.FromPosix(f.Path))
		if err != nil {
			return fmt.Errorf("syncengine: join delete path %s: %w", f.Path, err)
		}
		if err := fsutil.RemoveFile(abs); err != nil {
			return fmt.Errorf("syncengine: delete local file %s: %w", f.Path, err)
		}
	}
	return nil
}

func pathsOf(changes []model.LocalFileChange) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.Path)
	}
	return out
}
