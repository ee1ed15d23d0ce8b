package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/progreswwa/ekipa-strategow-back/internal/policy"
)

func (api *API) SubmitBrief(w http.ResponseWriter, r *http.Request) {
	var input policy.BriefInput
	if err := decodeJSON(r, &input); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	brief, err := api.briefs.SubmitBrief(r.Context(), input)
	if err != nil {
		api.writeServiceError(w, r, err, "brief not found")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"briefId": brief.ID,
		"brief":   brief,
		"message": "Brief submitted successfully",
	})
}

func (api *API) GetBrief(w http.ResponseWriter, r *http.Request) {
	brief, err := api.briefs.GetBrief(r.Context(), chi.URLParam(r, "briefId"))
	if err != nil {
		api.writeServiceError(w, r, err, "brief not found")
		return
	}
	writeJSON(w, http.StatusOK, brief)
}
