package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// chunkSize controls how often local uploads emit progress.
const chunkSize = 256 * 1024

// Local is a filesystem-backed BlobStore rooted at a directory. It exists
// for development and tests; production deployments use GCS.
type Local struct {
	Root string
}

// NewLocal returns a Local store rooted at dir, creating it when missing.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Local{Root: dir}, nil
}

// BeginUpload writes data under the store root in chunks, emitting progress
// per chunk. The object path keeps its forward-slash hierarchy on disk.
func (l *Local) BeginUpload(ctx context.Context, path string, data []byte, contentType string) *Upload {
	up, s := newSettle()
	go func() {
		clean := strings.TrimLeft(filepath.ToSlash(path), "/")
		if clean == "" {
			s.fail(ErrEmptyPath)
			return
		}
		full := filepath.Join(l.Root, filepath.FromSlash(clean))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			s.fail(err)
			return
		}

		f, err := os.Create(full)
		if err != nil {
			s.fail(err)
			return
		}

		total := int64(len(data))
		var written int64
		for written < total {
			if err := ctx.Err(); err != nil {
				f.Close()
				os.Remove(full)
				s.fail(err)
				return
			}
			end := written + chunkSize
			if end > total {
				end = total
			}
			n, err := f.Write(data[written:end])
			written += int64(n)
			if err != nil {
				f.Close()
				os.Remove(full)
				s.fail(err)
				return
			}
			s.report(Progress{Transferred: written, Total: total})
		}
		if err := f.Close(); err != nil {
			s.fail(err)
			return
		}
		if total == 0 {
			s.report(Progress{Transferred: 0, Total: 0})
		}
		s.succeed(clean)
	}()
	return up
}
