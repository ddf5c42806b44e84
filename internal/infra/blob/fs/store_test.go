package fs

import (
	"bytes"
	"context"
	"io"
	"testing"

	"gardencore/internal/infra/blob/core"
)

func TestPutGetHeadRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	payload := []byte("users,plots\n1,2\n")
	info, err := store.Put(ctx, "exports/summary.csv", bytes.NewReader(payload), core.PutOptions{ContentType: "text/csv"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len(payload)) || info.ETag == "" {
		t.Fatalf("unexpected info: %+v", info)
	}

	head, err := store.Head(ctx, "exports/summary.csv")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.ContentType != "text/csv" || head.ETag != info.ETag {
		t.Fatalf("unexpected head: %+v", head)
	}

	_, rc, err := store.Get(ctx, "exports/summary.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("content mismatch: %q", data)
	}
}

func TestKeySanitization(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"", "  ", "/abs/path", "../escape", "a/../../b"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte("x")), core.PutOptions{}); err == nil {
			t.Fatalf("expected rejection for key %q", key)
		}
	}
}

func TestListAndDelete(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"exports/a.json", "exports/b.json", "audit/log.json"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte("{}")), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	infos, err := store.List(ctx, "exports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 exports, got %d", len(infos))
	}

	existed, err := store.Delete(ctx, "exports/a.json")
	if err != nil || !existed {
		t.Fatalf("delete: %v/%v", existed, err)
	}
	if existed, _ := store.Delete(ctx, "exports/a.json"); existed {
		t.Fatalf("expected second delete to be a no-op")
	}

	infos, err = store.List(ctx, "exports/")
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(infos) != 1 || infos[0].Key != "exports/b.json" {
		t.Fatalf("unexpected listing: %+v", infos)
	}
}
