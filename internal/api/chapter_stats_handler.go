package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fraternitybase/registry/internal/common"
)

// ChapterStatsHandler handles GET /api/v1/chapters/{name}/stats
func (h *Handlers) ChapterStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		stats, err := h.deps.Services.ChapterStats.ChapterStats(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			msg := "failed to load chapter stats"
			if code := statusFor(err); code < http.StatusInternalServerError {
				msg = err.Error()
			}
			common.RespondError(w, initTime, err, msg, statusFor(err))
			return
		}

		common.RespondSuccess(w, initTime, "Chapter stats", stats)
	}
}
