// Package storage implements the blob storage collaborator used by the
// upload flow. An upload is asynchronous and progress-reporting: callers
// receive a handle exposing a progress stream, a failure channel, and a
// completion channel, and proceed to submission creation only after the
// completion event. Backends: Google Cloud Storage and a local filesystem
// store for development and tests.
package storage

import (
	"context"
	"errors"
)

// ErrEmptyPath is returned when an upload is started without an object path.
var ErrEmptyPath = errors.New("storage: empty object path")

// Progress reports how many bytes of an upload have been transferred.
type Progress struct {
	Transferred int64
	Total       int64
}

// Percent returns the transfer percentage, clamped to [0,100].
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	pct := int(p.Transferred * 100 / p.Total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Upload is the handle returned by BeginUpload. Exactly one of Done or Err
// fires once, after which Progress is closed. Consumers that only care about
// the outcome can use Await.
type Upload struct {
	// Progress streams transfer snapshots; closed when the upload settles.
	Progress <-chan Progress
	// Done delivers the final object path on success.
	Done <-chan string
	// Err delivers the transport failure, if any.
	Err <-chan error
}

// BlobStore starts asynchronous, progress-reporting uploads.
type BlobStore interface {
	// BeginUpload stores data at path with the given content type. The
	// returned handle settles exactly once. Cancelling ctx before
	// completion surfaces on the handle's Err channel.
	BeginUpload(ctx context.Context, path string, data []byte, contentType string) *Upload
}

// Await drains the upload handle until it settles and returns the stored
// object path. Progress events are forwarded to onProgress when non-nil.
func Await(ctx context.Context, up *Upload, onProgress func(Progress)) (string, error) {
	for {
		select {
		case p, ok := <-up.Progress:
			if ok && onProgress != nil {
				onProgress(p)
			}
		case path := <-up.Done:
			return path, nil
		case err := <-up.Err:
			return "", err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// settle is the producer-side counterpart of Upload used by backends.
type settle struct {
	progress chan Progress
	done     chan string
	err      chan error
}

func newSettle() (*Upload, *settle) {
	s := &settle{
		progress: make(chan Progress, 16),
		done:     make(chan string, 1),
		err:      make(chan error, 1),
	}
	return &Upload{Progress: s.progress, Done: s.done, Err: s.err}, s
}

func (s *settle) report(p Progress) {
	select {
	case s.progress <- p:
	default: // slow consumer, drop the snapshot
	}
}

func (s *settle) succeed(path string) {
	close(s.progress)
	s.done <- path
}

func (s *settle) fail(err error) {
	close(s.progress)
	s.err <- err
}
