package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS is a Google Cloud Storage backed BlobStore. Objects are written under
// a single bucket using the same path hierarchy the portal always used
// (partner_uploads/{businessId}/{submissionId}/{fileName}).
type GCS struct {
	client *gcs.Client
	bucket string
}

// NewGCS builds a GCS store for bucket using ambient credentials (or the
// provided client options, e.g. a credentials file in development).
func NewGCS(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage: bucket name is required")
	}
	opts = append(opts, option.WithScopes(gcs.ScopeReadWrite))
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: create gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (g *GCS) Close() error { return g.client.Close() }

// BeginUpload streams data to the object writer in chunks so the handle can
// report transfer progress. The GCS writer commits the object on Close; a
// context cancellation before that aborts the write.
func (g *GCS) BeginUpload(ctx context.Context, path string, data []byte, contentType string) *Upload {
	up, s := newSettle()
	go func() {
		if path == "" {
			s.fail(ErrEmptyPath)
			return
		}
		w := g.client.Bucket(g.bucket).Object(path).NewWriter(ctx)
		if contentType != "" {
			w.ContentType = contentType
		}
		w.ChunkSize = chunkSize

		total := int64(len(data))
		r := bytes.NewReader(data)
		buf := make([]byte, chunkSize)
		var written int64
		for {
			n, rerr := r.Read(buf)
			if n > 0 {
				if _, werr := w.Write(buf[:n]); werr != nil {
					_ = w.Close()
					s.fail(fmt.Errorf("storage: write to gcs: %w", werr))
					return
				}
				written += int64(n)
				s.report(Progress{Transferred: written, Total: total})
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				_ = w.Close()
				s.fail(rerr)
				return
			}
		}
		if err := w.Close(); err != nil {
			s.fail(fmt.Errorf("storage: commit gcs object: %w", err))
			return
		}
		s.succeed(path)
	}()
	return up
}
