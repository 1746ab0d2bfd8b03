package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/nbox/texturelab/internal/crop"
	"github.com/nbox/texturelab/internal/geometry"
)

func (h *Handler) HandleCrop(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	container := geometry.Size{
		W: queryFloat(r, "cw", 0),
		H: queryFloat(r, "ch", 0),
	}
	h.writeJSON(w, h.studio.Crop(container))
}

func (h *Handler) HandleCropAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	action := strings.TrimPrefix(r.URL.Path, "/api/crop/")
	switch action {
	case "begin":
		var request struct {
			Interaction crop.Interaction `json:"interaction"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if request.Interaction != crop.Move && request.Interaction != crop.Resize {
			h.writeError(w, "interaction must be 'move' or 'resize'", http.StatusBadRequest)
			return
		}
		if err := h.studio.CropBegin(request.Interaction); err != nil {
			h.writeFailure(w, err)
			return
		}
		h.writeJSON(w, h.studio.Crop(geometry.Size{}))
	case "drag":
		var request struct {
			ContainerW float64 `json:"cw"`
			ContainerH float64 `json:"ch"`
			DX         float64 `json:"dx"`
			DY         float64 `json:"dy"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		container := geometry.Size{W: request.ContainerW, H: request.ContainerH}
		if _, err := h.studio.CropDrag(container, request.DX, request.DY); err != nil {
			h.writeFailure(w, err)
			return
		}
		h.writeJSON(w, h.studio.Crop(container))
	case "release":
		if err := h.studio.CropRelease(); err != nil {
			h.writeFailure(w, err)
			return
		}
		h.writeJSON(w, h.studio.Crop(geometry.Size{}))
	case "commit":
		if err := h.studio.CropCommit(); err != nil {
			h.writeFailure(w, err)
			return
		}
		h.writeJSON(w, newProjectView(h.studio.Snapshot()))
	case "cancel":
		if err := h.studio.CropCancel(); err != nil {
			h.writeFailure(w, err)
			return
		}
		h.writeJSON(w, newProjectView(h.studio.Snapshot()))
	default:
		h.writeError(w, "Unknown crop action", http.StatusNotFound)
	}
}

func queryFloat(r *http.Request, key string, fallback float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
