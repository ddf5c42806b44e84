// Package archive exports point-in-time registry snapshots as JSON and CSV
// artifacts stored in a blob backend.
package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"gardencore/internal/infra/blob"
	"gardencore/pkg/domain"

	"github.com/google/uuid"
)

// Format identifies an artifact encoding.
type Format string

const (
	// FormatJSON encodes the full snapshot as one JSON document.
	FormatJSON Format = "json"
	// FormatCSV encodes one row per record across all kinds.
	FormatCSV Format = "csv"
)

// Status describes the lifecycle stage of an archive job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Artifact captures a stored archive artifact.
type Artifact struct {
	Key         string    `json:"key"`
	Format      Format    `json:"format"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Job tracks an archive request and its resulting artifacts.
type Job struct {
	ID          string     `json:"id"`
	Formats     []Format   `json:"formats"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Artifacts   []Artifact `json:"artifacts,omitempty"`
	RequestedBy string     `json:"requested_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (j Job) copy() Job {
	dup := j
	dup.Formats = append([]Format(nil), j.Formats...)
	if len(j.Artifacts) > 0 {
		dup.Artifacts = append([]Artifact(nil), j.Artifacts...)
	}
	return dup
}

// Input is an enqueue request.
type Input struct {
	Formats     []Format
	RequestedBy string
}

// SnapshotSource supplies the committed registry state an archive captures.
// domain.PersistentStore satisfies it.
type SnapshotSource interface {
	ListUsers() []domain.User
	ListPlots() []domain.Plot
	ListActivities() []domain.Activity
	ListResources() []domain.Resource
	ListEvents() []domain.Event
	LastID() uint64
}

// Entry captures audit trail metadata for archive jobs.
type Entry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Actor      string    `json:"actor"`
	Status     Status    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AuditLogger records archive audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry Entry)
}

// SlogAuditLogger emits audit entries through a structured logger.
type SlogAuditLogger struct {
	Logger *slog.Logger
}

// Record implements AuditLogger.
func (l SlogAuditLogger) Record(_ context.Context, entry Entry) {
	if l.Logger == nil {
		return
	}
	l.Logger.Info("archive audit",
		"id", entry.ID,
		"action", entry.Action,
		"actor", entry.Actor,
		"status", string(entry.Status),
		"detail", entry.Detail,
	)
}

// MemoryAuditLog captures audit entries in memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []Entry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry Entry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a copy of recorded audit entries.
func (l *MemoryAuditLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

type task struct {
	id      string
	formats []Format
}

// Worker executes archive jobs asynchronously.
type Worker struct {
	source SnapshotSource
	store  blob.Store
	audit  AuditLogger

	queue chan task
	mu    sync.RWMutex
	jobs  map[string]*Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker constructs an archive worker.
func NewWorker(source SnapshotSource, store blob.Store, audit AuditLogger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		source: source,
		store:  store,
		audit:  audit,
		queue:  make(chan task, 32),
		jobs:   make(map[string]*Job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing archive jobs.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case t := <-w.queue:
			w.process(t)
		}
	}
}

// Enqueue schedules an archive job and returns the queued record.
func (w *Worker) Enqueue(ctx context.Context, input Input) (Job, error) {
	if w.source == nil {
		return Job{}, fmt.Errorf("archive source not configured")
	}

	formats := input.Formats
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}
	seen := make(map[Format]struct{}, len(formats))
	uniq := make([]Format, 0, len(formats))
	for _, format := range formats {
		switch format {
		case FormatJSON, FormatCSV:
		default:
			return Job{}, fmt.Errorf("unsupported archive format %s", format)
		}
		if _, dup := seen[format]; dup {
			continue
		}
		seen[format] = struct{}{}
		uniq = append(uniq, format)
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	job := Job{
		ID:          id,
		Formats:     uniq,
		Status:      StatusQueued,
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &job
	queued := job.copy()
	w.mu.Unlock()

	w.record(ctx, id, StatusQueued, "")

	select {
	case w.queue <- task{id: id, formats: uniq}:
	default:
		w.fail(id, "archive queue full")
		return Job{}, fmt.Errorf("archive queue full")
	}
	return queued, nil
}

// Get returns a snapshot of the job record.
func (w *Worker) Get(id string) (Job, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	job, ok := w.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.copy(), true
}

// List returns snapshots of all job records.
func (w *Worker) List() []Job {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Job, 0, len(w.jobs))
	for _, job := range w.jobs {
		out = append(out, job.copy())
	}
	return out
}

func (w *Worker) process(t task) {
	w.setStatus(t.id, StatusRunning, "")
	w.record(w.ctx, t.id, StatusRunning, "")

	doc := captureSnapshot(w.source)
	artifacts := make([]Artifact, 0, len(t.formats))
	for _, format := range t.formats {
		payload, contentType, err := materialize(format, doc)
		if err != nil {
			w.fail(t.id, err.Error())
			return
		}
		artifact := Artifact{
			Key:         fmt.Sprintf("archives/%s/registry.%s", t.id, format),
			Format:      format,
			ContentType: contentType,
			SizeBytes:   int64(len(payload)),
			CreatedAt:   time.Now().UTC(),
		}
		if w.store != nil {
			info, err := w.store.Put(w.ctx, artifact.Key, bytes.NewReader(payload), blob.PutOptions{
				ContentType: contentType,
				Metadata:    map[string]string{"job": t.id, "format": string(format)},
			})
			if err != nil {
				w.fail(t.id, fmt.Sprintf("store artifact: %v", err))
				return
			}
			artifact.URL = info.URL
			if info.Size > 0 {
				artifact.SizeBytes = info.Size
			}
		}
		artifacts = append(artifacts, artifact)
	}
	w.complete(t.id, artifacts)
}

func (w *Worker) setStatus(id string, status Status, message string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if job, ok := w.jobs[id]; ok {
		job.Status = status
		job.Error = message
		job.UpdatedAt = now
	}
	w.mu.Unlock()
}

func (w *Worker) complete(id string, artifacts []Artifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	if job, ok := w.jobs[id]; ok {
		job.Status = StatusSucceeded
		job.Error = ""
		job.Artifacts = artifacts
		job.UpdatedAt = now
		job.CompletedAt = &now
	}
	w.mu.Unlock()
	w.record(w.ctx, id, StatusSucceeded, "")
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if job, ok := w.jobs[id]; ok {
		job.Status = StatusFailed
		job.Error = reason
		job.UpdatedAt = now
		job.CompletedAt = &now
	}
	w.mu.Unlock()
	w.record(w.ctx, id, StatusFailed, reason)
}

func (w *Worker) record(ctx context.Context, id string, status Status, detail string) {
	if w.audit == nil {
		return
	}
	var actor string
	w.mu.RLock()
	if job, ok := w.jobs[id]; ok {
		actor = job.RequestedBy
	}
	w.mu.RUnlock()
	w.audit.Record(ctx, Entry{
		ID:         uuid.NewString(),
		Action:     "registry_archive",
		Actor:      actor,
		Status:     status,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	})
}

// document is the JSON artifact layout.
type document struct {
	ExportedAt time.Time         `json:"exported_at"`
	LastID     uint64            `json:"last_id"`
	Users      []domain.User     `json:"users"`
	Plots      []domain.Plot     `json:"plots"`
	Activities []domain.Activity `json:"activities"`
	Resources  []domain.Resource `json:"resources"`
	Events     []domain.Event    `json:"events"`
}

func captureSnapshot(source SnapshotSource) document {
	return document{
		ExportedAt: time.Now().UTC(),
		LastID:     source.LastID(),
		Users:      source.ListUsers(),
		Plots:      source.ListPlots(),
		Activities: source.ListActivities(),
		Resources:  source.ListResources(),
		Events:     source.ListEvents(),
	}
}

func materialize(format Format, doc document) ([]byte, string, error) {
	switch format {
	case FormatJSON:
		payload, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("marshal json: %w", err)
		}
		return payload, "application/json", nil
	case FormatCSV:
		payload, err := buildCSV(doc)
		if err != nil {
			return nil, "", err
		}
		return payload, "text/csv", nil
	default:
		return nil, "", fmt.Errorf("unsupported archive format %s", format)
	}
}

// buildCSV flattens all five kinds into one table: kind, id, timestamps, and
// a human summary column.
func buildCSV(doc document) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write([]string{"kind", "id", "created_at", "updated_at", "summary"}); err != nil {
		return nil, err
	}
	row := func(kind string, id uint64, created, updated time.Time, summary string) error {
		return writer.Write([]string{
			kind,
			strconv.FormatUint(id, 10),
			created.UTC().Format(time.RFC3339),
			updated.UTC().Format(time.RFC3339),
			summary,
		})
	}
	for _, u := range doc.Users {
		if err := row("user", u.ID, u.CreatedAt, u.UpdatedAt, u.Name); err != nil {
			return nil, err
		}
	}
	for _, p := range doc.Plots {
		if err := row("plot", p.ID, p.CreatedAt, p.UpdatedAt, p.Location); err != nil {
			return nil, err
		}
	}
	for _, a := range doc.Activities {
		if err := row("activity", a.ID, a.CreatedAt, a.UpdatedAt, a.Description); err != nil {
			return nil, err
		}
	}
	for _, r := range doc.Resources {
		if err := row("resource", r.ID, r.CreatedAt, r.UpdatedAt, r.Name); err != nil {
			return nil, err
		}
	}
	for _, e := range doc.Events {
		if err := row("event", e.ID, e.CreatedAt, e.UpdatedAt, e.Title); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
