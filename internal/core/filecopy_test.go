package core

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	content := []byte("archival bytes")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "out", "Box_001", "copy.bin")
	var reported []int64
	err := CopyFile(context.Background(), src, dest, func(size int64) {
		reported = append(reported, size)
	})
	if err != nil {
		t.Fatalf("CopyFile() error = %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("copied content = %q, want %q", got, content)
	}
	if len(reported) != 1 || reported[0] != int64(len(content)) {
		t.Errorf("onProgress calls = %v, want [%d]", reported, len(content))
	}
}

func TestCopyFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFile(context.Background(), filepath.Join(dir, "missing"), filepath.Join(dir, "dest"), nil)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("CopyFile() error = %v, want fs.ErrNotExist", err)
	}
}

func TestCopyFile_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	dest := filepath.Join(dir, "dest")
	if err := CopyFile(ctx, filepath.Join(dir, "src"), dest, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("CopyFile() error = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("destination should not exist after a cancelled copy")
	}
}
