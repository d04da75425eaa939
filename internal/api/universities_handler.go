package api

import (
	"encoding/json"
	"net/http"
	"time"

	"fraternitybase/registry/internal/common"
	"fraternitybase/registry/internal/models/dtos"
)

const maxUniversityBytes = 10 << 20

// LoadUniversitiesHandler handles POST /api/v1/universities
// The body is a JSON array of {name, state, city, lat, lng}.
func (h *Handlers) LoadUniversitiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		loader := h.deps.Services.Universities

		count, err := loader.LoadFromJSON(r.Context(), http.MaxBytesReader(w, r.Body, maxUniversityBytes))
		if err != nil {
			common.RespondError(w, initTime, err, "failed to load universities", statusFor(err))
			return
		}

		stats, err := loader.GetStats(r.Context())
		if err != nil {
			common.RespondError(w, initTime, err, "failed to get stats", http.StatusInternalServerError)
			return
		}

		response := map[string]interface{}{
			"loaded": count,
			"stats":  stats,
		}

		common.RespondSuccess(w, initTime, "Universities loaded", response)
	}
}

// LinkChapterHandler handles POST /api/v1/chapters/link
func (h *Handlers) LinkChapterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.LinkChapterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.RespondError(w, initTime, err, "invalid request body", http.StatusBadRequest)
			return
		}

		org := h.deps.Services.Importer.Organization()
		if err := h.deps.Services.Universities.LinkChapter(r.Context(), org, req.Chapter, req.University); err != nil {
			msg := "failed to link chapter"
			if code := statusFor(err); code < http.StatusInternalServerError {
				msg = err.Error()
			}
			common.RespondError(w, initTime, err, msg, statusFor(err))
			return
		}
		h.deps.Services.ChapterStats.Invalidate(req.Chapter)

		common.RespondSuccess(w, initTime, "Chapter linked", req)
	}
}
