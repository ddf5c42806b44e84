package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"gardencore/internal/infra/blob/core"
)

func TestPutGetRoundTrip(t *testing.T) {
	store := New()
	ctx := context.Background()

	info, err := store.Put(ctx, "exports/a.json", bytes.NewReader([]byte(`{"ok":true}`)), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"kind": "snapshot"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 11 || info.ContentType != "application/json" {
		t.Fatalf("unexpected info: %+v", info)
	}

	got, rc, err := store.Get(ctx, "exports/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Fatalf("unexpected content %q", data)
	}
	if got.Metadata["kind"] != "snapshot" {
		t.Fatalf("unexpected metadata: %+v", got.Metadata)
	}
}

func TestPutRejectsExistingKey(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("a")), core.PutOptions{}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("b")), core.PutOptions{}); err == nil {
		t.Fatalf("expected error on duplicate key")
	}
}

func TestListFiltersByPrefix(t *testing.T) {
	store := New()
	ctx := context.Background()

	for _, key := range []string{"exports/a", "exports/b", "other/c"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte("x")), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "exports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "exports/a" || infos[1].Key != "exports/b" {
		t.Fatalf("unexpected listing: %+v", infos)
	}
}

func TestDeleteReportsExistence(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("x")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	existed, err := store.Delete(ctx, "k")
	if err != nil || !existed {
		t.Fatalf("expected delete of existing key, got %v/%v", existed, err)
	}
	existed, err = store.Delete(ctx, "k")
	if err != nil || existed {
		t.Fatalf("expected no-op delete, got %v/%v", existed, err)
	}
}

func TestPresignUnsupported(t *testing.T) {
	store := New()
	if _, err := store.PresignURL(context.Background(), "k", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
