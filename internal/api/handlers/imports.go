package handlers

import (
	"net/http"
	"strconv"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/importer"
	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ImportHandler serves statement scans and import commits.
type ImportHandler struct {
	importer  *importer.Importer
	publisher jobs.Publisher // nil when scanning is disabled
	store     jobs.JobStore
	log       zerolog.Logger
}

func NewImportHandler(imp *importer.Importer, publisher jobs.Publisher, store jobs.JobStore, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{importer: imp, publisher: publisher, store: store, log: log}
}

// Scan handles POST /api/import/scan. The statement is sent inline as
// base64 data or referenced by a gs:// URI; the result is a job to poll.
func (h *ImportHandler) Scan(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Statement scanning is not configured")
		return
	}

	var req struct {
		AccountID string `json:"accountId"`
		SourceURI string `json:"sourceUri"`
		MIMEType  string `json:"mimeType"`
		Data      []byte `json:"data"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.AccountID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "accountId is required")
		return
	}
	if len(req.Data) == 0 && req.SourceURI == "" {
		middleware.WriteError(w, http.StatusBadRequest, "data or sourceUri is required")
		return
	}
	if req.MIMEType == "" {
		req.MIMEType = "application/pdf"
	}

	job := &jobs.ScanJob{
		AccountID: req.AccountID,
		SourceURI: req.SourceURI,
		MIMEType:  req.MIMEType,
		Data:      req.Data,
	}
	if err := h.publisher.PublishScan(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue scan")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue scan")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("account_id", req.AccountID).Msg("Scan enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(jobs.JobStatusPending),
	})
}

// Commit handles POST /api/import/commit
func (h *ImportHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string              `json:"accountId"`
		Lines     []domain.ImportLine `json:"lines"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.AccountID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "accountId is required")
		return
	}

	created, err := h.importer.Commit(r.Context(), req.AccountID, req.Lines)
	if err != nil {
		writeFailure(w, r, "Import failed", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"transactions": created,
		"count":        len(created),
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *ImportHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.log.Warn().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *ImportHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		AccountID: query.Get("account_id"),
		Status:    jobs.JobStatus(query.Get("status")),
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(query.Get("offset")); err == nil {
		filter.Offset = offset
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	list(w, "jobs", jobsList)
}
