package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCopyTree_PreservesModesAndSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	src := filepath.Join(t.TempDir(), "corsika")
	if err := os.MkdirAll(filepath.Join(src, "run"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	exe := filepath.Join(src, "run", "corsika77100Linux_QGSII_urqmd")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "run", "EGSDAT6_.4"), []byte("data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Symlink("corsika77100Linux_QGSII_urqmd", filepath.Join(src, "run", "corsika")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "input", "corsika")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := (FSCopier{}).CopyTree(src, dst); err != nil {
		t.Fatalf("CopyTree: %v", err)
	}

	info, err := os.Stat(filepath.Join(dst, "run", "corsika77100Linux_QGSII_urqmd"))
	if err != nil {
		t.Fatalf("stat exe: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Fatalf("exe mode not preserved: %o", info.Mode().Perm())
	}
	link, err := os.Readlink(filepath.Join(dst, "run", "corsika"))
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if link != "corsika77100Linux_QGSII_urqmd" {
		t.Fatalf("unexpected link target: %q", link)
	}
	raw, err := os.ReadFile(filepath.Join(dst, "run", "EGSDAT6_.4"))
	if err != nil || string(raw) != "data" {
		t.Fatalf("data file not copied: %q %v", raw, err)
	}
}

func TestCopyTree_FollowsSymlinkedRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	dir := t.TempDir()
	install := filepath.Join(dir, "corsika-7.56")
	if err := os.MkdirAll(filepath.Join(install, "run"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(install, "run", "corsika"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Symlink("../corsika", filepath.Join(install, "run", "current")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	link := filepath.Join(dir, "corsika")
	if err := os.Symlink(install, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	dst := filepath.Join(dir, "copy")
	if err := CopyTree(link, dst); err != nil {
		t.Fatalf("CopyTree: %v", err)
	}
	info, err := os.Lstat(dst)
	if err != nil {
		t.Fatalf("lstat: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("destination is not a directory: %s", info.Mode())
	}
	raw, err := os.ReadFile(filepath.Join(dst, "run", "corsika"))
	if err != nil || string(raw) != "#!/bin/sh\n" {
		t.Fatalf("executable not copied: %q %v", raw, err)
	}
	inner, err := os.Lstat(filepath.Join(dst, "run", "current"))
	if err != nil {
		t.Fatalf("lstat inner link: %v", err)
	}
	if inner.Mode()&fs.ModeSymlink == 0 {
		t.Fatalf("inner symlink was not preserved: %s", inner.Mode())
	}
}

func TestCopyTree_RefusesExistingDestination(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	err := CopyTree(src, dst)
	if !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected fs.ErrExist, got %v", err)
	}
}

func TestCopyFile_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "steering.json")
	dst := filepath.Join(dir, "copy.json")
	if err := os.WriteFile(src, []byte(`{"nuclei":[]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	if err := CopyFile(src, dst); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected fs.ErrExist on second copy, got %v", err)
	}
}
