package core

// filecopy.go copies project files into export packages.
//
// Progress granularity is "file started": the source size is reported once
// before any byte is copied. Bytes are counted on the way through for the
// copy metrics.

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/carpenters/internal/metrics"
)

// countingReader wraps an io.Reader to track bytes read.
type countingReader struct {
	reader    io.Reader
	bytesRead int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.bytesRead += int64(n)
	return n, err
}

// CopyFile copies src to dest, creating dest's parent directories. The size
// of src is passed to onProgress before the copy begins. Errors from the
// filesystem are returned unchanged.
func CopyFile(ctx context.Context, src, dest string, onProgress func(size int64)) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(info.Size())
	}

	cr := &countingReader{}
	defer func() { metrics.RecordCopy(cr.bytesRead, err) }()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	cr.reader = in

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, cr); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
