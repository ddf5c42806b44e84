package archive

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	blobmemory "gardencore/internal/infra/blob/memory"
	"gardencore/internal/infra/persistence/memory"
	"gardencore/pkg/domain"
)

func seedRegistry(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateUser(domain.User{Name: "Ada", Email: "ada@example.com", Phone: "1234567890"}); err != nil {
			return err
		}
		if _, err := tx.CreatePlot(domain.Plot{OwnerID: 1, Size: "4x8", Location: "north bed"}); err != nil {
			return err
		}
		if _, err := tx.CreateResource(domain.Resource{Name: "compost", Quantity: 3, Available: true}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func waitForJob(t *testing.T, worker *Worker, id string) Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := worker.Get(id)
		if !ok {
			t.Fatalf("job %s disappeared", id)
		}
		if job.Status == StatusSucceeded || job.Status == StatusFailed {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish in time", id)
	return Job{}
}

func TestArchiveProducesJSONAndCSVArtifacts(t *testing.T) {
	registry := seedRegistry(t)
	blobs := blobmemory.New()
	audit := &MemoryAuditLog{}
	worker := NewWorker(registry, blobs, audit)
	worker.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = worker.Stop(ctx)
	}()

	job, err := worker.Enqueue(context.Background(), Input{RequestedBy: "ada"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.Status != StatusQueued {
		t.Fatalf("expected queued job, got %s", job.Status)
	}

	done := waitForJob(t, worker, job.ID)
	if done.Status != StatusSucceeded {
		t.Fatalf("expected success, got %s (%s)", done.Status, done.Error)
	}
	if len(done.Artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(done.Artifacts))
	}
	if done.CompletedAt == nil {
		t.Fatalf("expected completion timestamp")
	}

	ctx := context.Background()
	var jsonKey, csvKey string
	for _, artifact := range done.Artifacts {
		switch artifact.Format {
		case FormatJSON:
			jsonKey = artifact.Key
		case FormatCSV:
			csvKey = artifact.Key
		}
	}

	_, rc, err := blobs.Get(ctx, jsonKey)
	if err != nil {
		t.Fatalf("get json artifact: %v", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read json artifact: %v", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode json artifact: %v", err)
	}
	if len(doc.Users) != 1 || len(doc.Plots) != 1 || len(doc.Resources) != 1 {
		t.Fatalf("unexpected snapshot contents: %+v", doc)
	}
	if doc.LastID != 3 {
		t.Fatalf("expected last id 3, got %d", doc.LastID)
	}

	_, rc, err = blobs.Get(ctx, csvKey)
	if err != nil {
		t.Fatalf("get csv artifact: %v", err)
	}
	csvData, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read csv artifact: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(csvData)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "kind,id,") {
		t.Fatalf("unexpected header %q", lines[0])
	}
}

func TestArchiveAuditTrailCoversTransitions(t *testing.T) {
	registry := seedRegistry(t)
	audit := &MemoryAuditLog{}
	worker := NewWorker(registry, blobmemory.New(), audit)
	worker.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = worker.Stop(ctx)
	}()

	job, err := worker.Enqueue(context.Background(), Input{Formats: []Format{FormatJSON}, RequestedBy: "ada"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitForJob(t, worker, job.ID)

	entries := audit.Entries()
	if len(entries) < 3 {
		t.Fatalf("expected at least 3 audit entries, got %d", len(entries))
	}
	want := []Status{StatusQueued, StatusRunning, StatusSucceeded}
	for i, status := range want {
		if entries[i].Status != status {
			t.Fatalf("entry %d: expected %s, got %s", i, status, entries[i].Status)
		}
		if entries[i].Actor != "ada" {
			t.Fatalf("entry %d: expected actor ada, got %s", i, entries[i].Actor)
		}
	}
}

func TestEnqueueRejectsUnknownFormat(t *testing.T) {
	worker := NewWorker(seedRegistry(t), blobmemory.New(), nil)
	if _, err := worker.Enqueue(context.Background(), Input{Formats: []Format{"xml"}}); err == nil {
		t.Fatalf("expected rejection of unknown format")
	}
}

func TestGetUnknownJob(t *testing.T) {
	worker := NewWorker(seedRegistry(t), blobmemory.New(), nil)
	if _, ok := worker.Get("missing"); ok {
		t.Fatalf("expected missing job lookup to fail")
	}
}
