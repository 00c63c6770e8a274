package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/diagnosis/luxbus/pkg/logger"
	"github.com/diagnosis/luxbus/pkg/queue"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	maxPage         = 100000
)

type jobsPage struct {
	Status   queue.Status `json:"status"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
	Jobs     []*queue.Job `json:"jobs"`
}

func (h *Handlers) ListQueues(w http.ResponseWriter, r *http.Request) {
	names := h.queueNames
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (h *Handlers) inspector(w http.ResponseWriter, r *http.Request) (*queue.Inspector, bool) {
	in, ok := h.queues[chi.URLParam(r, "name")]
	if !ok {
		writeError(w, http.StatusNotFound, "queue not found", "queue_not_found")
	}
	return in, ok
}

func (h *Handlers) QueueCounts(w http.ResponseWriter, r *http.Request) {
	in, ok := h.inspector(w, r)
	if !ok {
		return
	}
	counts, err := in.Counts(r.Context())
	if err != nil {
		writeQueueError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// ListJobs pages through one status. Unknown statuses list waiting jobs.
// Pages start at 1.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	in, ok := h.inspector(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	status, ok := queue.ParseStatus(q.Get("status"))
	if !ok {
		status = queue.StatusWaiting
	}
	page := min(max(atoiDefault(q.Get("page"), 1), 1), maxPage)
	pageSize := min(max(atoiDefault(q.Get("pageSize"), defaultPageSize), 1), maxPageSize)

	start := int64(page-1) * int64(pageSize)
	jobs, err := in.Jobs(r.Context(), status, start, start+int64(pageSize)-1)
	if err != nil {
		writeQueueError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobsPage{Status: status, Page: page, PageSize: pageSize, Jobs: jobs})
}

func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	in, ok := h.inspector(w, r)
	if !ok {
		return
	}
	job, err := in.Job(r.Context(), chi.URLParam(r, "jobId"))
	if err != nil {
		writeQueueError(w, r, err)
		return
	}
	if job == nil {
		writeQueueError(w, r, queue.ErrJobNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handlers) RetryJob(w http.ResponseWriter, r *http.Request) {
	in, ok := h.inspector(w, r)
	if !ok {
		return
	}
	if err := in.Retry(r.Context(), chi.URLParam(r, "jobId")); err != nil {
		writeQueueError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handlers) RemoveJob(w http.ResponseWriter, r *http.Request) {
	in, ok := h.inspector(w, r)
	if !ok {
		return
	}
	if err := in.Remove(r.Context(), chi.URLParam(r, "jobId")); err != nil {
		writeQueueError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeQueueError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, queue.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found", "job_not_found")
	case errors.Is(err, queue.ErrJobNotFailed):
		writeError(w, http.StatusConflict, err.Error(), "job_not_failed")
	case errors.Is(err, queue.ErrJobLocked):
		writeError(w, http.StatusConflict, err.Error(), "job_locked")
	default:
		logger.ErrorContext(r.Context(), "Queue request failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "queue unavailable", "queue_unavailable")
	}
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
