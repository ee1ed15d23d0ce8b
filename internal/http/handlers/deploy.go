package handlers

import (
	"net/http"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
	"github.com/progreswwa/ekipa-strategow-back/internal/policy"
	"github.com/progreswwa/ekipa-strategow-back/internal/service"
)

type deployRequest struct {
	BriefID      string             `json:"briefId,omitempty"`
	Brief        *policy.BriefInput `json:"brief,omitempty"`
	AutoGenerate *bool              `json:"autoGenerate,omitempty"`
	WebsiteCode  *domain.Website    `json:"websiteCode,omitempty"`
}

func (api *API) Deploy(w http.ResponseWriter, r *http.Request) {
	var request deployRequest
	if err := decodeJSON(r, &request); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	job, err := api.deployments.StartDeployment(r.Context(), service.DeployInput{
		BriefID:      request.BriefID,
		Brief:        request.Brief,
		AutoGenerate: request.AutoGenerate,
		Website:      request.WebsiteCode,
	})
	if err != nil {
		api.writeServiceError(w, r, err, "brief not found")
		return
	}

	statusURL := "/api/status/" + job.ID
	writeJSON(w, http.StatusAccepted, map[string]any{
		"jobId":     job.ID,
		"status":    job.Status,
		"statusUrl": statusURL,
		"message":   "Deployment started. Check status at " + statusURL,
	})
}

func (api *API) DeploymentStatus(w http.ResponseWriter, r *http.Request) {
	jobID := jobIDParam(r)
	deploy, err := api.deployments.DeploymentStatus(r.Context(), jobID)
	if err != nil {
		api.writeServiceError(w, r, err, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobId":      jobID,
		"deployment": deploy,
	})
}
