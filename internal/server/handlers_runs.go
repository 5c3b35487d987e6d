package server

import (
	"errors"
	"net/http"

	"github.com/matthewgwang/utra-da/internal/coach"
	"github.com/matthewgwang/utra-da/internal/model"
	"github.com/matthewgwang/utra-da/internal/storage"
)

// HandleIngest handles POST /ingest: detect format, normalize logs, persist.
// Events, segments and metadata pass through unchanged.
func (h *Handlers) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req model.IngestRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if req.Logs == nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "logs field is required")
		return
	}

	normalized, format := h.normalizer.NormalizeRun(req.Logs)

	run, err := h.db.CreateRun(r.Context(), model.Run{
		RobotID:   req.RobotID,
		RunNumber: req.RunNumber,
		Format:    format,
		Logs:      normalized,
		Events:    req.Events,
		Segments:  req.Segments,
		Metadata:  req.Metadata,
	})
	if err != nil {
		h.writeInternalError(w, r, "failed to store run", err)
		return
	}

	h.logger.Info("run ingested",
		"run_id", run.ID,
		"robot_id", run.RobotID,
		"format", run.Format,
		"log_count", len(run.Logs),
	)

	writeJSON(w, r, http.StatusCreated, model.IngestResponse{
		RunID:    run.ID,
		Format:   run.Format,
		LogCount: len(run.Logs),
	})
}

// HandleListRuns handles GET /runs.
func (h *Handlers) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50)
	offset := queryOffset(r)

	runs, total, err := h.db.ListRuns(r.Context(), limit, offset)
	if err != nil {
		h.writeInternalError(w, r, "failed to list runs", err)
		return
	}

	writeListJSON(w, r, runs, total, limit, offset)
}

// HandleGetRun handles GET /runs/{run_id}.
func (h *Handlers) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := parseRunID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	run, err := h.db.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "run not found: "+id.String())
			return
		}
		h.writeInternalError(w, r, "failed to get run", err)
		return
	}

	writeJSON(w, r, http.StatusOK, run)
}

// HandleAnalyzeRun handles POST /runs/{run_id}/analyze: compute the analysis,
// get coaching feedback (external model or mock) and persist the result onto
// the run. External-model transport failures are reported distinctly so
// callers can tell "bad input" from "AI backend unreachable".
func (h *Handlers) HandleAnalyzeRun(w http.ResponseWriter, r *http.Request) {
	id, err := parseRunID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	run, err := h.db.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "run not found: "+id.String())
			return
		}
		h.writeInternalError(w, r, "failed to get run", err)
		return
	}

	analysis, err := h.coachSvc.Analyze(r.Context(), &run)
	if err != nil {
		if errors.Is(err, coach.ErrExternal) {
			h.logger.Warn("coaching model call failed", "run_id", id, "error", err)
			writeError(w, r, http.StatusBadGateway, model.ErrCodeExternalService,
				"coaching model unavailable: "+err.Error())
			return
		}
		h.writeInternalError(w, r, "failed to analyze run", err)
		return
	}

	analyzedAt, err := h.db.SaveAnalysis(r.Context(), id, analysis)
	if err != nil {
		h.writeInternalError(w, r, "failed to save analysis", err)
		return
	}

	run.Analysis = &analysis
	run.Analyzed = true
	run.AnalyzedAt = &analyzedAt

	h.logger.Info("run analyzed",
		"run_id", id,
		"format", run.Format,
		"issues", len(analysis.Issues),
	)

	writeJSON(w, r, http.StatusOK, run)
}

// HandleRunPath handles GET /runs/{run_id}/path. Path segments are always
// recomputed, never persisted.
func (h *Handlers) HandleRunPath(w http.ResponseWriter, r *http.Request) {
	id, err := parseRunID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	run, err := h.db.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "run not found: "+id.String())
			return
		}
		h.writeInternalError(w, r, "failed to get run", err)
		return
	}

	writeJSON(w, r, http.StatusOK, h.pathGen.Segments(&run))
}

// HandleClearRuns handles DELETE /runs/clear.
func (h *Handlers) HandleClearRuns(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.db.ClearRuns(r.Context())
	if err != nil {
		h.writeInternalError(w, r, "failed to clear runs", err)
		return
	}

	h.logger.Info("runs cleared", "deleted_count", deleted)
	writeJSON(w, r, http.StatusOK, model.ClearRunsResponse{DeletedCount: deleted})
}

// HandleIngestTelemetry handles POST /telemetry.
func (h *Handlers) HandleIngestTelemetry(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := decodeJSON(w, r, &payload, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	reading, err := h.db.InsertTelemetry(r.Context(), payload)
	if err != nil {
		h.writeInternalError(w, r, "failed to store telemetry", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, reading)
}

// HandleLatestTelemetry handles GET /telemetry/latest.
func (h *Handlers) HandleLatestTelemetry(w http.ResponseWriter, r *http.Request) {
	reading, err := h.db.LatestTelemetry(r.Context())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "no telemetry readings")
			return
		}
		h.writeInternalError(w, r, "failed to get telemetry", err)
		return
	}

	writeJSON(w, r, http.StatusOK, reading)
}
