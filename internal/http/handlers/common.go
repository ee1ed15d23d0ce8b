package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
	"github.com/progreswwa/ekipa-strategow-back/internal/http/middleware"
	"github.com/progreswwa/ekipa-strategow-back/internal/policy"
	"github.com/progreswwa/ekipa-strategow-back/internal/service"
)

var (
	errInvalidPayload  = errors.New("invalid payload")
	errPayloadTooLarge = errors.New("payload too large")
)

type API struct {
	briefs      *service.BriefsService
	deployments *service.DeploymentService
	jobs        *service.JobsService
	logger      zerolog.Logger
	startedAt   time.Time
	now         func() time.Time
}

type APIDependencies struct {
	Briefs      *service.BriefsService
	Deployments *service.DeploymentService
	Jobs        *service.JobsService
	Logger      zerolog.Logger
}

func NewAPI(deps APIDependencies) *API {
	return &API{
		briefs:      deps.Briefs,
		deployments: deps.Deployments,
		jobs:        deps.Jobs,
		logger:      deps.Logger,
		startedAt:   time.Now(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string, details ...string) {
	middleware.WriteError(w, r, statusCode, code, message, details...)
}

func decodeJSON(r *http.Request, value any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errPayloadTooLarge
		}
		return errInvalidPayload
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return errInvalidPayload
	}
	return nil
}

func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errPayloadTooLarge) {
		writeError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
		return
	}
	writeError(w, r, http.StatusBadRequest, "invalid_request", "request body must be a single valid JSON object")
}

// writeServiceError maps service and domain errors onto the HTTP envelope.
func (api *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFoundMessage string) {
	var violations *policy.BriefViolationError
	switch {
	case errors.As(err, &violations):
		writeError(w, r, http.StatusBadRequest, "validation_error", "Validation failed", violations.Messages()...)
	case errors.Is(err, domain.ErrInvalidRequest):
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", notFoundMessage)
	case errors.Is(err, service.ErrJobNotCompleted):
		writeError(w, r, http.StatusConflict, "job_not_completed", "deployment is only available for completed jobs")
	case errors.Is(err, domain.ErrPublish):
		api.logger.Warn().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("publisher request failed")
		writeError(w, r, http.StatusBadGateway, "publisher_error", "failed to reach the hosting provider")
	case errors.Is(err, domain.ErrScheduling):
		api.logger.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("deployment could not be scheduled")
		writeError(w, r, http.StatusInternalServerError, "scheduling_error", "failed to schedule deployment")
	default:
		api.logger.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("request failed")
		writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func jsonRawOrFallback(value []byte) any {
	var decoded any
	if err := json.Unmarshal(value, &decoded); err == nil {
		return decoded
	}
	return string(value)
}
