package handlers

import (
	"net/http"
	"strings"
)

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch strings.TrimPrefix(r.URL.Path, "/api/generate/") {
	case "albedo":
		// the albedo is needed before anything else can run, so the request waits for it
		if err := h.studio.GenerateAlbedo(r.Context()); err != nil {
			h.writeFailure(w, err)
			return
		}
		h.writeJSON(w, newProjectView(h.studio.Snapshot()))
	case "maps":
		if _, err := h.studio.GenerateMaps(h.baseCtx); err != nil {
			h.writeFailure(w, err)
			return
		}
		h.writeJSONStatus(w, http.StatusAccepted, newProjectView(h.studio.Snapshot()))
	default:
		h.writeError(w, "Unknown generation target", http.StatusNotFound)
	}
}
