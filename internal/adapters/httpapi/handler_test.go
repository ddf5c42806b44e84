package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gardencore/internal/adapters/archive"
	"gardencore/internal/core"
	blobmemory "gardencore/internal/infra/blob/memory"
	"gardencore/pkg/domain"
)

func newTestHandler(t *testing.T) (*Handler, *core.Service) {
	t.Helper()
	service := core.NewInMemoryService(core.NewDefaultRulesEngine())
	return NewHandler(service), service
}

func registerAdmin(t *testing.T, service *core.Service) domain.User {
	t.Helper()
	admin, _, err := service.RegisterUser(context.Background(), domain.Caller{Principal: "seed"}, domain.UserPayload{
		Name:  "Root",
		Email: "root@example.com",
		Phone: "0000000000",
		Role:  domain.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	return admin
}

func doRequest(h *Handler, method, path string, body any, caller *domain.User) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if caller != nil {
		req.Header.Set("X-Caller-ID", fmt.Sprintf("%d", caller.ID))
		req.Header.Set("X-Caller-Principal", caller.Owner)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestUserLifecycleOverHTTP(t *testing.T) {
	h, service := newTestHandler(t)
	admin := registerAdmin(t, service)

	rec := doRequest(h, http.MethodPost, "/api/v1/users", domain.UserPayload{
		Name:  "Ada",
		Email: "ada@example.com",
		Phone: "1234567890",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Record domain.User `json:"record"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Record.ID != 2 || created.Record.Role != domain.RoleUser {
		t.Fatalf("unexpected created record: %+v", created.Record)
	}

	rec = doRequest(h, http.MethodGet, "/api/v1/users/2", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	rec = doRequest(h, http.MethodPut, "/api/v1/users/2", domain.UserPayload{
		Name:  "Ada L",
		Email: "ada@example.com",
		Phone: "1234567890",
	}, &admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(h, http.MethodDelete, "/api/v1/users/2", nil, &admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(h, http.MethodGet, "/api/v1/users/2", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted: expected 404, got %d", rec.Code)
	}
}

func TestErrorKindsMapToStatusCodes(t *testing.T) {
	h, service := newTestHandler(t)
	admin := registerAdmin(t, service)

	// invalid payload -> 400
	rec := doRequest(h, http.MethodPost, "/api/v1/users", domain.UserPayload{Name: "x"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload, got %d", rec.Code)
	}

	// missing record -> 404
	rec = doRequest(h, http.MethodGet, "/api/v1/plots/99", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing plot, got %d", rec.Code)
	}

	// anonymous mutation -> 403
	rec = doRequest(h, http.MethodDelete, "/api/v1/users/1", nil, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for anonymous delete, got %d", rec.Code)
	}

	// rule rejection -> 400
	rec = doRequest(h, http.MethodPost, "/api/v1/plots", domain.PlotPayload{
		OwnerID: 42, Size: "2x2", Location: "south",
	}, &admin)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown plot owner, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "not a registered user") {
		t.Fatalf("expected rule detail in body, got %s", rec.Body.String())
	}
}

func TestEmptyCollectionsReportNotFound(t *testing.T) {
	h, _ := newTestHandler(t)
	for _, kind := range []string{"users", "plots", "activities", "resources", "events"} {
		rec := doRequest(h, http.MethodGet, "/api/v1/"+kind, nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404 for empty collection, got %d", kind, rec.Code)
		}
	}
}

func TestMalformedIdentifierRejected(t *testing.T) {
	h, _ := newTestHandler(t)
	for _, path := range []string{"/api/v1/users/abc", "/api/v1/users/0", "/api/v1/users/-3"} {
		rec := doRequest(h, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, rec.Code)
		}
	}
}

func TestUnknownRoutesAndMethods(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodGet, "/api/v1/gnomes", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown kind, got %d", rec.Code)
	}
	rec = doRequest(h, http.MethodPatch, "/api/v1/users/1", nil, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for PATCH, got %d", rec.Code)
	}
	rec = doRequest(h, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 outside api prefix, got %d", rec.Code)
	}
}

func TestArchiveEndpoints(t *testing.T) {
	h, service := newTestHandler(t)
	admin := registerAdmin(t, service)

	worker := archive.NewWorker(service.Store(), blobmemory.New(), nil)
	worker.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = worker.Stop(ctx)
	}()
	h.Archives = worker

	rec := doRequest(h, http.MethodPost, "/api/v1/archives", archiveRequest{Formats: []string{"json"}}, &admin)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("enqueue: expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Archive archive.Job `json:"archive"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode enqueue response: %v", err)
	}
	if resp.Archive.ID == "" || resp.Archive.Status != archive.StatusQueued {
		t.Fatalf("unexpected job: %+v", resp.Archive)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = doRequest(h, http.MethodGet, "/api/v1/archives/"+resp.Archive.ID, nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status: expected 200, got %d", rec.Code)
		}
		var status struct {
			Archive archive.Job `json:"archive"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("decode status response: %v", err)
		}
		if status.Archive.Status == archive.StatusSucceeded {
			if len(status.Archive.Artifacts) != 1 {
				t.Fatalf("expected 1 artifact, got %d", len(status.Archive.Artifacts))
			}
			break
		}
		if status.Archive.Status == archive.StatusFailed {
			t.Fatalf("archive failed: %s", status.Archive.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("archive did not finish in time")
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec = doRequest(h, http.MethodGet, "/api/v1/archives/missing", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown archive, got %d", rec.Code)
	}
}
