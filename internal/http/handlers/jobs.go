package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aagnone3/software-multi-tool-sub002/internal/domain"
	"github.com/aagnone3/software-multi-tool-sub002/internal/queue"
)

type subjectPayload struct {
	Kind string    `json:"kind"` // "user" | "org"
	ID   uuid.UUID `json:"id"`
}

func (p subjectPayload) subject() domain.Subject {
	return domain.Subject{Kind: domain.SubjectKind(p.Kind), ID: p.ID}
}

type jobView struct {
	ID           uuid.UUID       `json:"id"`
	ToolSlug     string          `json:"tool_slug"`
	Owner        subjectPayload  `json:"owner"`
	Status       string          `json:"status"`
	Priority     int             `json:"priority"`
	Input        json.RawMessage `json:"input,omitempty"`
	Output       json.RawMessage `json:"output,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Attempts     int             `json:"attempts"`
	MaxAttempts  int             `json:"max_attempts"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	ExpiresAt    time.Time       `json:"expires_at"`
	CreatedAt    time.Time       `json:"created_at"`
}

func viewJob(j *domain.Job) jobView {
	return jobView{
		ID:           j.ID,
		ToolSlug:     j.ToolSlug,
		Owner:        subjectPayload{Kind: string(j.Owner.Kind), ID: j.Owner.ID},
		Status:       string(j.Status),
		Priority:     j.Priority,
		Input:        j.Input,
		Output:       j.Output,
		ErrorMessage: j.ErrorMessage,
		Attempts:     j.Attempts,
		MaxAttempts:  j.MaxAttempts,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
		ExpiresAt:    j.ExpiresAt,
		CreatedAt:    j.CreatedAt,
	}
}

type submitJobReq struct {
	ToolSlug    string          `json:"tool_slug"`
	Owner       subjectPayload  `json:"owner"`
	Input       json.RawMessage `json:"input"`
	Priority    int             `json:"priority"`
	MaxAttempts int             `json:"max_attempts"`
	ExpiresAt   *time.Time      `json:"expires_at"`
}

func (a *App) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.badRequest(w, "invalid json body")
		return
	}
	params := queue.SubmitParams{
		ToolSlug:    req.ToolSlug,
		Owner:       req.Owner.subject(),
		Input:       req.Input,
		Priority:    req.Priority,
		MaxAttempts: req.MaxAttempts,
	}
	if req.ExpiresAt != nil {
		params.ExpiresAt = *req.ExpiresAt
	}
	job, err := a.Queue.Submit(r.Context(), params)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusCreated, viewJob(job))
}

func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.badRequest(w, "invalid job id")
		return
	}
	job, err := a.Queue.GetByID(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, viewJob(job))
}

func (a *App) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.badRequest(w, "invalid job id")
		return
	}
	if err := a.Queue.Cancel(r.Context(), id); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"id": id, "status": domain.JobStatusCancelled})
}

type requeueJobReq struct {
	ProcessAfter *time.Time `json:"process_after"`
}

func (a *App) RequeueJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.badRequest(w, "invalid job id")
		return
	}
	var req requeueJobReq
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.badRequest(w, "invalid json body")
			return
		}
	}
	if err := a.Queue.Requeue(r.Context(), id, req.ProcessAfter); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"id": id, "status": domain.JobStatusPending})
}

func (a *App) JobStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Queue.Stats(r.Context(), r.URL.Query().Get("tool_slug"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"pending":    stats.Pending,
		"processing": stats.Processing,
		"completed":  stats.Completed,
		"failed":     stats.Failed,
		"cancelled":  stats.Cancelled,
		"total":      stats.Total(),
	})
}

type cachedJobReq struct {
	ToolSlug    string          `json:"tool_slug"`
	Input       json.RawMessage `json:"input"`
	MaxAgeHours int             `json:"max_age_hours"`
}

// CachedJob looks up a reusable completed job for an identical request. A
// POST because the input payload does not fit a query string.
func (a *App) CachedJob(w http.ResponseWriter, r *http.Request) {
	var req cachedJobReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.badRequest(w, "invalid json body")
		return
	}
	maxAge := a.CacheMaxAge
	if req.MaxAgeHours > 0 {
		maxAge = time.Duration(req.MaxAgeHours) * time.Hour
	}
	job, err := a.Queue.FindCached(r.Context(), req.ToolSlug, req.Input, maxAge)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, viewJob(job))
}
