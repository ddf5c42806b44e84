// Package httpapi exposes the registry service over a JSON HTTP surface.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"gardencore/internal/adapters/archive"
	"gardencore/internal/core"
	"gardencore/pkg/domain"
)

// Archiver schedules and reports archive jobs.
type Archiver interface {
	Enqueue(ctx context.Context, input archive.Input) (archive.Job, error)
	Get(id string) (archive.Job, bool)
	List() []archive.Job
}

// Handler routes registry and archive requests.
type Handler struct {
	Service  *core.Service
	Archives Archiver
}

// NewHandler constructs a registry HTTP handler.
func NewHandler(service *core.Service) *Handler {
	return &Handler{Service: service}
}

const apiPrefix = "/api/v1/"

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "registry service not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	if !strings.HasPrefix(path, apiPrefix) {
		http.NotFound(w, r)
		return
	}
	segments := strings.Split(strings.TrimPrefix(path, apiPrefix), "/")

	if segments[0] == "archives" {
		if h.Archives == nil {
			http.NotFound(w, r)
			return
		}
		h.handleArchives(w, r, segments[1:])
		return
	}

	switch len(segments) {
	case 1:
		h.handleCollection(w, r, segments[0])
	case 2:
		id, err := strconv.ParseUint(segments[1], 10, 64)
		if err != nil || id == 0 {
			writeError(w, http.StatusBadRequest, "record id must be a positive integer")
			return
		}
		h.handleRecord(w, r, segments[0], id)
	default:
		http.NotFound(w, r)
	}
}

// callerFrom extracts caller identity from request headers. Both headers are
// optional; mutations without them run as anonymous and are rejected by the
// role gate.
func callerFrom(r *http.Request) domain.Caller {
	caller := domain.Caller{Principal: strings.TrimSpace(r.Header.Get("X-Caller-Principal"))}
	if raw := strings.TrimSpace(r.Header.Get("X-Caller-ID")); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			caller.ID = id
		}
	}
	return caller
}

func (h *Handler) handleCollection(w http.ResponseWriter, r *http.Request, kind string) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r, kind)
	case http.MethodPost:
		h.create(w, r, kind)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request, kind string, id uint64) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, kind, id)
	case http.MethodPut:
		h.update(w, r, kind, id)
	case http.MethodDelete:
		h.remove(w, r, kind, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, kind string) {
	ctx := r.Context()
	var (
		payload any
		err     error
	)
	switch kind {
	case "users":
		payload, err = h.Service.ListUsers(ctx)
	case "plots":
		payload, err = h.Service.ListPlots(ctx)
	case "activities":
		payload, err = h.Service.ListActivities(ctx)
	case "resources":
		payload, err = h.Service.ListResources(ctx)
	case "events":
		payload, err = h.Service.ListEvents(ctx)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": payload})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, kind string, id uint64) {
	ctx := r.Context()
	var (
		payload any
		err     error
	)
	switch kind {
	case "users":
		payload, err = h.Service.GetUser(ctx, id)
	case "plots":
		payload, err = h.Service.GetPlot(ctx, id)
	case "activities":
		payload, err = h.Service.GetActivity(ctx, id)
	case "resources":
		payload, err = h.Service.GetResource(ctx, id)
	case "events":
		payload, err = h.Service.GetEvent(ctx, id)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"record": payload})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, kind string) {
	ctx := r.Context()
	caller := callerFrom(r)
	var (
		record any
		err    error
	)
	switch kind {
	case "users":
		var payload domain.UserPayload
		if !decodeBody(w, r, &payload) {
			return
		}
		record, _, err = h.Service.RegisterUser(ctx, caller, payload)
	case "plots":
		var payload domain.PlotPayload
		if !decodeBody(w, r, &payload) {
			return
		}
		record, _, err = h.Service.CreatePlot(ctx, caller, payload)
	case "activities":
		var payload domain.ActivityPayload
		if !decodeBody(w, r, &payload) {
			return
		}
		record, _, err = h.Service.CreateActivity(ctx, caller, payload)
	case "resources":
		var payload domain.ResourcePayload
		if !decodeBody(w, r, &payload) {
			return
		}
		record, _, err = h.Service.CreateResource(ctx, caller, payload)
	case "events":
		var payload domain.EventPayload
		if !decodeBody(w, r, &payload) {
			return
		}
		record, _, err = h.Service.CreateEvent(ctx, caller, payload)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"record": record})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, kind string, id uint64) {
	ctx := r.Context()
	caller := callerFrom(r)
	var (
		record any
		err    error
	)
	switch kind {
	case "users":
		var payload domain.UserPayload
		if !decodeBody(w, r, &payload) {
			return
		}
		record, _, err = h.Service.UpdateUser(ctx, caller, id, payload)
	case "plots":
		var payload domain.PlotPayload
		if !decodeBody(w, r, &payload) {
			return
		}
		record, _, err = h.Service.UpdatePlot(ctx, caller, id, payload)
	case "activities":
		var payload domain.ActivityPayload
		if !decodeBody(w, r, &payload) {
			return
		}
		record, _, err = h.Service.UpdateActivity(ctx, caller, id, payload)
	case "resources":
		var payload domain.ResourcePayload
		if !decodeBody(w, r, &payload) {
			return
		}
		record, _, err = h.Service.UpdateResource(ctx, caller, id, payload)
	case "events":
		var payload domain.EventPayload
		if !decodeBody(w, r, &payload) {
			return
		}
		record, _, err = h.Service.UpdateEvent(ctx, caller, id, payload)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"record": record})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request, kind string, id uint64) {
	ctx := r.Context()
	caller := callerFrom(r)
	var (
		record any
		err    error
	)
	switch kind {
	case "users":
		record, _, err = h.Service.DeleteUser(ctx, caller, id)
	case "plots":
		record, _, err = h.Service.DeletePlot(ctx, caller, id)
	case "activities":
		record, _, err = h.Service.DeleteActivity(ctx, caller, id)
	case "resources":
		record, _, err = h.Service.DeleteResource(ctx, caller, id)
	case "events":
		record, _, err = h.Service.DeleteEvent(ctx, caller, id)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"record": record})
}

type archiveRequest struct {
	Formats []string `json:"formats"`
}

func (h *Handler) handleArchives(w http.ResponseWriter, r *http.Request, segments []string) {
	switch len(segments) {
	case 0:
		switch r.Method {
		case http.MethodPost:
			var req archiveRequest
			if !decodeBody(w, r, &req) {
				return
			}
			formats := make([]archive.Format, 0, len(req.Formats))
			for _, f := range req.Formats {
				formats = append(formats, archive.Format(strings.ToLower(strings.TrimSpace(f))))
			}
			job, err := h.Archives.Enqueue(r.Context(), archive.Input{
				Formats:     formats,
				RequestedBy: callerFrom(r).Principal,
			})
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]any{"archive": job})
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"archives": h.Archives.List()})
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case 1:
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		job, ok := h.Archives.Get(segments[0])
		if !ok {
			writeError(w, http.StatusNotFound, "archive not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"archive": job})
	default:
		http.NotFound(w, r)
	}
}

// decodeBody decodes a JSON body into dst. An empty body leaves dst zeroed so
// validation reports the missing fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && err.Error() != "EOF" {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch domain.KindOf(err) {
	case domain.KindInvalidPayload:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindUnauthorized:
		status = http.StatusForbidden
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
