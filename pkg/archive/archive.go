// Package archive builds the brotli-compressed tar archives used for C6
// uploads. Grounded directly on the original build_tar command: a brotli
// writer at quality 11 / window 20 wraps the output file, and the archive's
// content hash is computed over the uncompressed tar stream as it is
// written, by teeing every write to a sha256 hasher alongside the
// compressor.
package archive

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/devkat/CodeExpertDesktop/pkg/fsutil"
)

const (
	brotliQuality = 11
	brotliWindow  = 20
	brotliBufSize = 4096
)

// Build writes a brotli-compressed tar archive to outPath, containing each
// of relPaths read from rootDir, added in the given order. It returns the
// hex-encoded sha256 hash of the uncompressed tar stream.
func Build(outPath, rootDir string, relPaths []string) (contentHash string, err error) {
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("archive: create %s: %w", outPath, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("archive: close %s: %w", outPath, cerr)
		}
	}()

	bw := brotli.NewWriterOptions(out, brotli.WriterOptions{Quality: brotliQuality, LGWin: brotliWindow})
	defer func() {
		if cerr := bw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("archive: close brotli writer: %w", cerr)
		}
	}()

	hasher := sha256.New()
	tw := tar.NewWriter(io.MultiWriter(bw, hasher))

	for _, rel := range relPaths {
		abs := filepath.Join(rootDir, fsutil.FromPosix(rel))
		if err := appendFile(tw, abs, rel); err != nil {
			return "", err
		}
	}
	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("archive: close tar writer: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// normalizedModTime is the fixed mtime stamped onto every tar entry so the
// archive (and its content hash) depends only on file content and name, not
// on when it happened to be built.
var normalizedModTime = time.Unix(0, 0)

func appendFile(tw *tar.Writer, abs, name string) error {
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("archive: stat %s: %w", abs, err)
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("archive: header for %s: %w", abs, err)
	}
	hdr.Name = name
	hdr.ModTime = normalizedModTime
	hdr.AccessTime = time.Time{}
	hdr.ChangeTime = time.Time{}
	hdr.Uid = 0
	hdr.Gid = 0
	hdr.Uname = ""
	hdr.Gname = ""

	if info.IsDir() {
		return tw.WriteHeader(hdr)
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("archive: write header for %s: %w", name, err)
	}
	f, err := os.Open(abs)
	if err != nil {
		return fmt.Errorf("archive: open %s: %w", abs, err)
	}
	defer f.Close()
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("archive: copy %s: %w", abs, err)
	}
	return nil
}
