// src/handlers/export_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/xdubnickas/trading212-tracker/src/database"
	"github.com/xdubnickas/trading212-tracker/src/logger"
	"github.com/xdubnickas/trading212-tracker/src/model"
	"github.com/xdubnickas/trading212-tracker/src/services"
	"github.com/xdubnickas/trading212-tracker/src/t212"
	"github.com/xdubnickas/trading212-tracker/src/utils"
)

type ExportHandler struct {
	exportService *services.ExportService
	client        t212.Client
}

func NewExportHandler(exportService *services.ExportService, client t212.Client) *ExportHandler {
	return &ExportHandler{exportService: exportService, client: client}
}

type syncExportsRequest struct {
	StartYear int `json:"startYear"`
}

// HandleSyncExports walks the account's export history and requests yearly
// exports for every uncovered calendar year, then records the run.
func (h *ExportHandler) HandleSyncExports(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	credential, ok := GetCredentialFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "API key required", http.StatusUnauthorized)
		return
	}

	var req syncExportsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.StartYear < 2016 || req.StartYear > time.Now().UTC().Year() {
		utils.SendJSONError(w, "startYear out of range", http.StatusBadRequest)
		return
	}

	result, err := h.exportService.EnsureCoverage(r.Context(), credential, req.StartYear)
	if err != nil {
		var authErr *t212.AuthError
		switch {
		case errors.Is(err, services.ErrRunInProgress):
			utils.SendJSONError(w, "An export run is already in progress for this account", http.StatusConflict)
		case errors.As(err, &authErr):
			utils.SendJSONError(w, "Trading 212 rejected the API key", http.StatusUnauthorized)
		default:
			ctxLogger.Error("HandleSyncExports: coverage run failed", "startYear", req.StartYear, "error", err)
			utils.SendJSONError(w, "Export synchronization failed", http.StatusBadGateway)
		}
		return
	}

	h.recordRun(credential, req.StartYear, result)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// recordRun persists the run outcome for later inspection. Persistence is
// advisory only, a failed insert never fails the sync itself.
func (h *ExportHandler) recordRun(credential string, startYear int, result *services.CoverageResult) {
	if database.DB == nil {
		return
	}

	run := model.ExportRun{
		CredentialHash: utils.HashCredential(credential),
		StartYear:      startYear,
		FinalDelayMs:   result.FinalDelay.Milliseconds(),
	}
	for _, outcome := range result.Years {
		year := model.ExportRunYear{
			Year:     outcome.Year,
			Status:   outcome.Status,
			ReportID: outcome.ReportID,
			Outdated: outcome.Outdated,
			Error:    outcome.Error,
		}
		if !outcome.TimeFrom.IsZero() {
			timeFrom := outcome.TimeFrom
			year.TimeFrom = &timeFrom
		}
		if !outcome.TimeTo.IsZero() {
			timeTo := outcome.TimeTo
			year.TimeTo = &timeTo
		}
		run.Years = append(run.Years, year)
	}
	if _, err := model.InsertExportRun(database.DB, run); err != nil {
		logger.L.Error("recordRun: persisting export run failed", "error", err)
	}
}

// HandleListExports returns the raw export descriptors for the account.
func (h *ExportHandler) HandleListExports(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	credential, ok := GetCredentialFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "API key required", http.StatusUnauthorized)
		return
	}

	exports, err := h.client.ListExports(r.Context(), credential)
	if err != nil {
		var rateErr *t212.RateLimitError
		var authErr *t212.AuthError
		switch {
		case errors.As(err, &rateErr):
			w.Header().Set("Retry-After", "60")
			utils.SendJSONError(w, "Trading 212 rate limit reached", http.StatusTooManyRequests)
		case errors.As(err, &authErr):
			utils.SendJSONError(w, "Trading 212 rejected the API key", http.StatusUnauthorized)
		default:
			ctxLogger.Error("HandleListExports: listing failed", "error", err)
			utils.SendJSONError(w, "Could not list exports", http.StatusBadGateway)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(exports)
}

// HandleGetExportRuns returns the recorded run history for the account.
func (h *ExportHandler) HandleGetExportRuns(w http.ResponseWriter, r *http.Request) {
	credential, ok := GetCredentialFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "API key required", http.StatusUnauthorized)
		return
	}
	if database.DB == nil {
		utils.SendJSONError(w, "Run history is not enabled", http.StatusNotFound)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = utils.MinInt(parsed, 100)
		}
	}

	runs, err := model.ListExportRuns(database.DB, utils.HashCredential(credential), limit)
	if err != nil {
		logger.FromContext(r.Context()).Error("HandleGetExportRuns: query failed", "error", err)
		utils.SendJSONError(w, "Could not load run history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}
