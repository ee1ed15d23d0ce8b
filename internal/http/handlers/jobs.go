package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
)

type jobView struct {
	JobID     string           `json:"jobId"`
	BriefID   *string          `json:"briefId"`
	Status    domain.JobStatus `json:"status"`
	Result    any              `json:"result"`
	Error     *string          `json:"error"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func newJobView(job domain.Job) jobView {
	view := jobView{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	if job.BriefID != "" {
		briefID := job.BriefID
		view.BriefID = &briefID
	}
	if len(job.Result) > 0 {
		view.Result = jsonRawOrFallback(job.Result)
	}
	if strings.TrimSpace(job.ErrorMessage) != "" {
		message := job.ErrorMessage
		view.Error = &message
	}
	return view
}

func jobIDParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "jobId"))
}

func (api *API) JobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := api.jobs.GetJob(r.Context(), jobIDParam(r))
	if err != nil {
		api.writeServiceError(w, r, err, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, newJobView(*job))
}

func (api *API) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.JobFilter{
		Status:  domain.JobStatus(strings.TrimSpace(query.Get("status"))),
		BriefID: strings.TrimSpace(query.Get("briefId")),
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	jobs, err := api.jobs.ListJobs(r.Context(), filter)
	if err != nil {
		api.writeServiceError(w, r, err, "job not found")
		return
	}

	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, newJobView(job))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  views,
		"count": len(views),
	})
}
