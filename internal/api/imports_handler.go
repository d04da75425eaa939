package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"fraternitybase/registry/internal/common"
	"fraternitybase/registry/internal/constants"
	"fraternitybase/registry/internal/logging"
	"fraternitybase/registry/internal/models/dtos"
	"fraternitybase/registry/internal/roster"
)

const (
	maxRosterBytes   = 20 << 20
	importLockTTL    = 30 * time.Minute
	defaultListLimit = 20
	maxListLimit     = 100
)

// ImportRosterHandler handles POST /api/v1/imports?chapter=<name>&file=<name>
// The request body is the roster CSV.
func (h *Handlers) ImportRosterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		chapter := strings.TrimSpace(r.URL.Query().Get("chapter"))
		if chapter == "" {
			common.RespondError(w, initTime, nil, "chapter query parameter is required", http.StatusBadRequest)
			return
		}
		fileName := strings.TrimSpace(r.URL.Query().Get("file"))
		if fileName == "" {
			fileName = "upload.csv"
		}

		src, err := roster.Load(fileName, http.MaxBytesReader(w, r.Body, maxRosterBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				common.RespondError(w, initTime, err, "roster file is too large", http.StatusRequestEntityTooLarge)
				return
			}
			common.RespondError(w, initTime, err, "could not read roster file", http.StatusBadRequest)
			return
		}

		importer := h.deps.Services.Importer
		key := common.ImportLockKey(importer.Organization(), chapter)
		release, err := h.deps.Services.RunLock.Acquire(r.Context(), key, importLockTTL)
		if err != nil {
			if errors.Is(err, constants.ErrRunInProgress) {
				common.RespondError(w, initTime, err, "an import for this chapter is already running", http.StatusConflict)
				return
			}
			common.RespondError(w, initTime, err, "could not acquire import lock", http.StatusServiceUnavailable)
			return
		}
		defer release()

		// A client disconnect must not strand the batch mid-run.
		ctx := context.WithoutCancel(r.Context())

		result, err := importer.ImportFromSource(ctx, src, chapter)
		if err != nil {
			code := statusFor(err)
			msg := "roster import failed"
			if code < http.StatusInternalServerError {
				msg = err.Error()
			}
			logging.Error("Roster import failed", "file", fileName, "status_code", code, "error", err)
			common.RespondError(w, initTime, err, msg, code)
			return
		}

		common.RespondSuccess(w, initTime, "Roster imported", result, http.StatusCreated)
	}
}

// GetImportHandler handles GET /api/v1/imports/{id}
func (h *Handlers) GetImportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		id := chi.URLParam(r, "id")
		batch, err := h.deps.Repo.Batches.FindByID(r.Context(), id)
		if err != nil {
			common.RespondError(w, initTime, err, "failed to load import batch", http.StatusInternalServerError)
			return
		}
		if batch == nil {
			common.RespondError(w, initTime, nil, "import batch not found", http.StatusNotFound)
			return
		}

		resp := dtos.NewImportBatchResponse(batch)
		chapter, err := h.deps.Repo.Chapters.FindByID(r.Context(), batch.ChapterID)
		if err != nil {
			common.RespondError(w, initTime, err, "failed to load chapter", http.StatusInternalServerError)
			return
		}
		if chapter != nil {
			resp.Chapter = chapter.Name
		}

		common.RespondSuccess(w, initTime, "Import batch", resp)
	}
}

// ListImportsHandler handles GET /api/v1/imports?chapter=<name>&limit=<n>
func (h *Handlers) ListImportsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		chapterName := strings.TrimSpace(r.URL.Query().Get("chapter"))
		if chapterName == "" {
			common.RespondError(w, initTime, nil, "chapter query parameter is required", http.StatusBadRequest)
			return
		}

		limit := defaultListLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				common.RespondError(w, initTime, nil, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = min(n, maxListLimit)
		}

		chapter, err := h.deps.Repo.Chapters.FindByName(r.Context(), h.deps.Services.Importer.Organization(), chapterName)
		if err != nil {
			common.RespondError(w, initTime, err, "failed to load chapter", http.StatusInternalServerError)
			return
		}
		if chapter == nil {
			common.RespondError(w, initTime, nil, "chapter not found", http.StatusNotFound)
			return
		}

		batches, err := h.deps.Repo.Batches.ListByChapter(r.Context(), chapter.ID, limit)
		if err != nil {
			common.RespondError(w, initTime, err, "failed to list import batches", http.StatusInternalServerError)
			return
		}

		resp := make([]dtos.ImportBatchResponse, 0, len(batches))
		for i := range batches {
			resp = append(resp, dtos.NewImportBatchResponse(&batches[i]))
		}

		common.RespondSuccess(w, initTime, "Import batches", resp)
	}
}
