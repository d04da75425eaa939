package api

import (
	"net/http"
	"strconv"
	"time"

	"fraternitybase/registry/internal/common"
	"fraternitybase/registry/internal/logging"
	"fraternitybase/registry/internal/services"
)

// ExportHandler handles GET /api/v1/export
// The body is the bare travel map document, the same one the CLI writes.
func (h *Handlers) ExportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		view, stats, err := h.deps.Services.Exporter.ExportDerivedView(r.Context())
		if err != nil {
			common.RespondError(w, initTime, err, "export failed", statusFor(err))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Export-Total", strconv.Itoa(stats.Total))
		w.Header().Set("X-Export-Skipped", strconv.Itoa(stats.Skipped))
		w.Header().Set("X-Export-Decrypt-Failures", strconv.Itoa(stats.DecryptFailures))
		w.WriteHeader(http.StatusOK)

		if err := services.WriteJSON(w, view); err != nil {
			logging.Error("Failed to write export", "error", err)
		}
	}
}
