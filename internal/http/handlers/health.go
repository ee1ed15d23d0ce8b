package handlers

import (
	"net/http"
	"time"
)

func (api *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"timestamp":     api.now().Format(time.RFC3339),
		"uptimeSeconds": int64(time.Since(api.startedAt).Seconds()),
	})
}
