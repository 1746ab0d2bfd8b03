package handlers

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/nbox/texturelab/internal/models"
)

// historyView is a history entry without image bytes
type historyView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
	Maps      []mapView `json:"maps"`
}

func newHistoryView(e models.HistoryEntry) historyView {
	views := mapViews(e.Maps)
	for i := range views {
		// entry images are not served through the live map routes
		views[i].ImageURL = ""
	}
	return historyView{
		ID:        e.ID,
		Name:      e.Name,
		Timestamp: e.Timestamp,
		Maps:      views,
	}
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		entries := h.history.List()
		list := make([]historyView, 0, len(entries))
		for _, e := range entries {
			list = append(list, newHistoryView(e))
		}
		h.writeJSON(w, list)
	case "DELETE":
		if err := h.history.Clear(); err != nil {
			h.writeError(w, "Failed to clear history: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleHistoryDetail(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/history/")

	if path == "export.parquet" {
		h.handleHistoryExport(w, r)
		return
	}

	id, action, _ := strings.Cut(path, "/")
	switch action {
	case "":
		if r.Method != "GET" {
			h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		entry, ok := h.history.Get(id)
		if !ok {
			h.writeError(w, "History entry not found", http.StatusNotFound)
			return
		}
		h.writeJSON(w, newHistoryView(entry))
	case "load":
		if r.Method != "POST" {
			h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := h.studio.LoadHistory(id); err != nil {
			h.writeFailure(w, err)
			return
		}
		h.writeJSON(w, newProjectView(h.studio.Snapshot()))
	default:
		h.writeError(w, "Unknown history action", http.StatusNotFound)
	}
}

// handleHistoryExport streams one row per map outcome as a parquet file
func (h *Handler) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var buf bytes.Buffer
	if _, err := h.history.ExportParquet(&buf); err != nil {
		h.writeError(w, "Failed to export history: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.apache.parquet")
	w.Header().Set("Content-Disposition", `attachment; filename="texturelab_history.parquet"`)
	_, _ = w.Write(buf.Bytes())
}
