package handlers

import (
	"bytes"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/nbox/texturelab/internal/adjust"
	"github.com/nbox/texturelab/internal/export"
	"github.com/nbox/texturelab/internal/imaging"
	"github.com/nbox/texturelab/internal/models"
	"github.com/nbox/texturelab/internal/tile"
)

// maxPreviewSide bounds the viewport of a server-rendered preview
const maxPreviewSide = 4096

// handleMapImage serves the stored map bytes, or with ?preview=1 the map as
// the preview shows it: filtered and painted as a repeating background.
func (h *Handler) handleMapImage(w http.ResponseWriter, r *http.Request, id models.MapID) {
	m, err := h.studio.Map(id)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if !m.HasImage() {
		h.writeError(w, "Map has no image", http.StatusNotFound)
		return
	}

	if r.URL.Query().Get("preview") == "" {
		w.Header().Set("Content-Type", m.MIMEType)
		w.Header().Set("Cache-Control", "no-store")
		if _, err := w.Write(m.Image); err != nil {
			slog.Error("Unable to write map image", "map", id, "err", err)
		}
		return
	}

	img, _, err := imaging.Decode(m.Image)
	if err != nil {
		h.writeError(w, "Failed to decode map: "+err.Error(), http.StatusInternalServerError)
		return
	}

	b := img.Bounds()
	viewport := image.Pt(
		clampSide(queryInt(r, "w", b.Dx())),
		clampSide(queryInt(r, "h", b.Dy())),
	)
	filtered := adjust.New(m.Adjustments).Apply(img)
	preview := tile.Preview(filtered, float64(m.Adjustments.OffsetX), float64(m.Adjustments.OffsetY), viewport)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, preview, imaging.FormatPNG); err != nil {
		h.writeError(w, "Failed to encode preview: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", imaging.FormatPNG.MIMEType())
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Unable to write preview", "map", id, "err", err)
	}
}

func clampSide(v int) int {
	if v < 1 {
		return 1
	}
	if v > maxPreviewSide {
		return maxPreviewSide
	}
	return v
}

func (h *Handler) HandleExportMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := models.MapID(strings.TrimPrefix(r.URL.Path, "/api/export/"))
	m, err := h.studio.Map(id)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	format := imaging.FormatPNG
	if raw := r.URL.Query().Get("format"); raw != "" {
		parsed, err := imaging.ParseFormat(raw)
		if err != nil {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		format = parsed
	}

	var data []byte
	var filename string
	if r.URL.Query().Get("raw") != "" {
		data, err = export.Raw(m)
		filename = export.RawFilename(h.studio.Snapshot().Name, m)
		format = imaging.FormatPNG
	} else {
		data, err = export.Final(m, format)
		filename = export.FinalFilename(h.studio.Snapshot().Name, m, format)
	}
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	slog.Info("Exported map", "map", id, "format", format, "bytes", len(data))
	w.Header().Set("Content-Type", format.MIMEType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		slog.Error("Unable to write export", "map", id, "err", err)
	}
}

func (h *Handler) HandleExportBundle(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	mat := h.studio.Material()
	var buf bytes.Buffer
	if err := export.Bundle(r.Context(), &buf, mat); err != nil {
		h.writeFailure(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.BundleFilename(mat.Name)+`"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Unable to write bundle", "err", err)
	}
}
