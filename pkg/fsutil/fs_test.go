package fsutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestHashStableAcrossReads(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(p, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	h1, err := Hash(p)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := Hash(p)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("hash not stable: %s != %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64 hex chars (sha256), got %d", len(h1))
	}
}

func TestHashDiffersOnContent(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.txt")
	p2 := filepath.Join(dir, "b.txt")
	os.WriteFile(p1, []byte("hello"), 0o644)
	os.WriteFile(p2, []byte("world"), 0o644)

	h1, _ := Hash(p1)
	h2, _ := Hash(p2)
	if h1 == h2 {
		t.Fatal("expected different hashes for different content")
	}
}

func TestWriteFileAtomicAndPermissions(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "file.txt")

	if err := WriteFile(target, []byte("content"), true); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "content" {
		t.Fatalf("got %q", data)
	}

	info, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o222 != 0 {
		t.Errorf("expected read-only file, got mode %v", info.Mode())
	}

	// No leftover temp files.
	entries, _ := os.ReadDir(filepath.Dir(target))
	for _, e := range entries {
		if e.Name() != "file.txt" {
			t.Errorf("unexpected leftover entry: %s", e.Name())
		}
	}
}

func TestReadDirTreeFiltersJunk(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(rel string) {
		full := filepath.Join(dir, rel)
		os.MkdirAll(filepath.Dir(full), 0o755)
		os.WriteFile(full, []byte("x"), 0o644)
	}
	mustWrite("a.txt")
	mustWrite(".hidden")
	mustWrite("lib/util.c")
	mustWrite("lib/.DS_Store")
	mustWrite(".git/HEAD")

	nodes, err := ReadDirTree(dir)
	if err != nil {
		t.Fatal(err)
	}

	var paths []string
	for _, n := range nodes {
		rel, _ := StripAncestor(dir, n.Path)
		paths = append(paths, rel)
	}
	sort.Strings(paths)

	want := []string{"a.txt", "lib", "lib/util.c"}
	if len(paths) != len(want) {
		t.Fatalf("got paths %v, want %v", paths, want)
	}
	for i, w := range want {
		if paths[i] != w {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], w)
		}
	}
}

func TestMkdirReadOnly(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "ro")
	if err := Mkdir(target, true); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Fatal("expected directory")
	}
}

func TestRemoveFileIgnoresNotFound(t *testing.T) {
	dir := t.TempDir()
	if err := RemoveFile(filepath.Join(dir, "missing.txt")); err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
}
