package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLocal_UploadRoundTrip(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	data := bytes.Repeat([]byte("x"), 3*chunkSize/2) // forces two chunks
	up := store.BeginUpload(context.Background(), "partner_uploads/b1/s1/widget.glb", data, "model/gltf-binary")

	var snapshots []Progress
	path, err := Await(context.Background(), up, func(p Progress) {
		snapshots = append(snapshots, p)
	})
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if path != "partner_uploads/b1/s1/widget.glb" {
		t.Fatalf("unexpected stored path %q", path)
	}
	if len(snapshots) == 0 {
		t.Fatal("expected at least one progress snapshot")
	}
	last := snapshots[len(snapshots)-1]
	if last.Transferred != int64(len(data)) || last.Percent() != 100 {
		t.Fatalf("final progress = %+v", last)
	}

	got, err := os.ReadFile(filepath.Join(store.Root, "partner_uploads", "b1", "s1", "widget.glb"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("stored bytes differ from input")
	}
}

func TestLocal_EmptyPathFails(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	up := store.BeginUpload(context.Background(), "", []byte("x"), "")
	if _, err := Await(context.Background(), up, nil); !errors.Is(err, ErrEmptyPath) {
		t.Fatalf("expected ErrEmptyPath, got %v", err)
	}
}

func TestLocal_CancelledContextFails(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := bytes.Repeat([]byte("y"), 2*chunkSize)
	up := store.BeginUpload(ctx, "a/b.glb", data, "")
	if _, err := Await(context.Background(), up, nil); err == nil {
		t.Fatal("expected error for cancelled upload")
	}
	if _, err := os.Stat(filepath.Join(store.Root, "a", "b.glb")); !os.IsNotExist(err) {
		t.Fatal("partial object should have been removed")
	}
}

func TestLocal_ZeroByteObject(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	up := store.BeginUpload(context.Background(), "empty.glb", nil, "")
	path, err := Await(context.Background(), up, nil)
	if err != nil || path != "empty.glb" {
		t.Fatalf("zero-byte upload: path=%q err=%v", path, err)
	}
}

func TestProgress_Percent(t *testing.T) {
	cases := []struct {
		p    Progress
		want int
	}{
		{Progress{0, 0}, 0},
		{Progress{50, 200}, 25},
		{Progress{200, 200}, 100},
		{Progress{300, 200}, 100}, // clamped
		{Progress{10, -1}, 0},
	}
	for _, c := range cases {
		if got := c.p.Percent(); got != c.want {
			t.Errorf("Percent(%+v) = %d, want %d", c.p, got, c.want)
		}
	}
}

func TestAwait_ContextCancellation(t *testing.T) {
	// A handle that never settles.
	up := &Upload{
		Progress: make(chan Progress),
		Done:     make(chan string),
		Err:      make(chan error),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Await(ctx, up, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestLocal_PathTraversalStaysUnderRoot(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	up := store.BeginUpload(context.Background(), "/leading/slash.glb", []byte("z"), "")
	path, err := Await(context.Background(), up, nil)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if strings.HasPrefix(path, "/") {
		t.Fatalf("stored path should be root-relative, got %q", path)
	}
}
