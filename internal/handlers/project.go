package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nbox/texturelab/internal/generation"
	"github.com/nbox/texturelab/internal/geometry"
	"github.com/nbox/texturelab/internal/models"
	"github.com/nbox/texturelab/internal/studio"
)

// projectView is the project snapshot the browser renders
type projectView struct {
	Name        string              `json:"name"`
	Mode        models.Mode         `json:"mode"`
	Model       models.Model        `json:"model"`
	Resolution  models.Resolution   `json:"resolution"`
	Material    models.Material     `json:"material"`
	HasSource   bool                `json:"has_source"`
	SourceMIME  string              `json:"source_mime,omitempty"`
	SourceSize  geometry.Size       `json:"source_size"`
	Maps        []mapView           `json:"maps"`
	ActiveMapID models.MapID        `json:"active_map_id"`
	Generating  bool                `json:"generating"`
	Progress    generation.Progress `json:"progress"`
	CropOpen    bool                `json:"crop_open"`
	Materials   []models.Material   `json:"materials"`
}

func newProjectView(p studio.Project) projectView {
	return projectView{
		Name:        p.Name,
		Mode:        p.Mode,
		Model:       p.Model,
		Resolution:  p.Resolution,
		Material:    p.Material,
		HasSource:   p.HasSource(),
		SourceMIME:  p.SourceMIME,
		SourceSize:  p.SourceSize,
		Maps:        mapViews(p.Maps),
		ActiveMapID: p.ActiveMapID,
		Generating:  p.Generating,
		Progress:    p.Progress,
		CropOpen:    p.CropOpen,
		Materials:   models.Materials,
	}
}

// projectUpdate carries the settings a PUT may change. Absent fields are left alone.
type projectUpdate struct {
	Name       *string `json:"name"`
	Mode       *string `json:"mode"`
	Model      *string `json:"model"`
	Resolution *string `json:"resolution"`
	Material   *string `json:"material"`
}

func (h *Handler) HandleProject(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.writeJSON(w, newProjectView(h.studio.Snapshot()))
	case "PUT":
		var update projectUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.applyProjectUpdate(update); err != nil {
			h.writeFailure(w, err)
			return
		}
		h.writeJSON(w, newProjectView(h.studio.Snapshot()))
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) applyProjectUpdate(u projectUpdate) error {
	if u.Name != nil {
		if err := h.studio.SetName(*u.Name); err != nil {
			return err
		}
	}
	if u.Mode != nil {
		if err := h.studio.SetMode(models.Mode(*u.Mode)); err != nil {
			return err
		}
	}
	if u.Model != nil {
		if err := h.studio.SetModel(*u.Model); err != nil {
			return err
		}
	}
	if u.Resolution != nil {
		if err := h.studio.SetResolution(models.Resolution(*u.Resolution)); err != nil {
			return err
		}
	}
	if u.Material != nil {
		if err := h.studio.SetMaterial(models.Material(*u.Material)); err != nil {
			return err
		}
	}
	return nil
}
