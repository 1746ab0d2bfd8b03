package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nbox/texturelab/internal/models"
	"github.com/nbox/texturelab/internal/studio"
)

// mapUpdate is the body of PUT /api/maps/{id}
type mapUpdate struct {
	Selected    *bool          `json:"selected"`
	Adjustments map[string]int `json:"adjustments"`
	Reset       string         `json:"reset"`
}

func (h *Handler) HandleMap(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/maps/")
	idPart, action, _ := strings.Cut(path, "/")

	id := models.MapID(idPart)
	if !id.Valid() {
		h.writeError(w, "Unknown map: "+idPart, http.StatusNotFound)
		return
	}

	switch action {
	case "":
		h.handleMapDetail(w, r, id)
	case "image":
		if r.Method != "GET" {
			h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.handleMapImage(w, r, id)
	case "retry":
		if r.Method != "POST" {
			h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if _, err := h.studio.RetryMap(h.baseCtx, id); err != nil {
			h.writeFailure(w, err)
			return
		}
		h.writeJSONStatus(w, http.StatusAccepted, newProjectView(h.studio.Snapshot()))
	case "activate":
		if r.Method != "POST" {
			h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := h.studio.SetActive(id); err != nil {
			h.writeFailure(w, err)
			return
		}
		h.writeJSON(w, newProjectView(h.studio.Snapshot()))
	default:
		h.writeError(w, "Unknown map action", http.StatusNotFound)
	}
}

func (h *Handler) handleMapDetail(w http.ResponseWriter, r *http.Request, id models.MapID) {
	switch r.Method {
	case "GET":
		m, err := h.studio.Map(id)
		if err != nil {
			h.writeFailure(w, err)
			return
		}
		h.writeJSON(w, newMapView(m))
	case "PUT":
		var update mapUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if update.Reset == "" {
			update.Reset = r.URL.Query().Get("reset")
		}
		if err := h.applyMapUpdate(id, update); err != nil {
			h.writeFailure(w, err)
			return
		}
		m, err := h.studio.Map(id)
		if err != nil {
			h.writeFailure(w, err)
			return
		}
		h.writeJSON(w, newMapView(m))
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) applyMapUpdate(id models.MapID, u mapUpdate) error {
	if u.Selected != nil {
		if err := h.studio.SetSelected(id, *u.Selected); err != nil {
			return err
		}
	}

	switch u.Reset {
	case "":
	case "color":
		if _, err := h.studio.ResetColor(id); err != nil {
			return err
		}
	case "offset":
		if _, err := h.studio.ResetOffset(id); err != nil {
			return err
		}
	default:
		return studio.ErrInvalidValue
	}

	for key, value := range u.Adjustments {
		if _, err := h.studio.SetAdjustment(id, key, value); err != nil {
			return err
		}
	}
	return nil
}
