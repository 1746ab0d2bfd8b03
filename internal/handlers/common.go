package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nbox/texturelab/internal/adjust"
	"github.com/nbox/texturelab/internal/crop"
	"github.com/nbox/texturelab/internal/export"
	"github.com/nbox/texturelab/internal/generation"
	"github.com/nbox/texturelab/internal/images"
	"github.com/nbox/texturelab/internal/imaging"
	"github.com/nbox/texturelab/internal/models"
	"github.com/nbox/texturelab/internal/providers"
	"github.com/nbox/texturelab/internal/storage"
	"github.com/nbox/texturelab/internal/studio"
)

// DefaultMaxUploadBytes caps uploads when no limit is configured
const DefaultMaxUploadBytes = 10 << 20

type Handler struct {
	studio    *studio.Studio
	history   *storage.HistoryStore
	fetcher   *images.Fetcher
	staticDir string
	maxUpload int64

	// batches outlive the request that started them
	baseCtx context.Context
}

// Options configures a Handler
type Options struct {
	StaticDir      string
	MaxUploadBytes int64
	BaseContext    context.Context
}

func New(s *studio.Studio, history *storage.HistoryStore, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.StaticDir == "" {
		opts.StaticDir = "static"
	}
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	return &Handler{
		studio:    s,
		history:   history,
		fetcher:   images.NewFetcher(opts.MaxUploadBytes),
		staticDir: opts.StaticDir,
		maxUpload: opts.MaxUploadBytes,
		baseCtx:   opts.BaseContext,
	}
}

// Routes registers every endpoint on mux
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/project", h.HandleProject)
	mux.HandleFunc("/api/upload", h.HandleUpload)
	mux.HandleFunc("/api/crop", h.HandleCrop)
	mux.HandleFunc("/api/crop/", h.HandleCropAction)
	mux.HandleFunc("/api/generate/", h.HandleGenerate)
	mux.HandleFunc("/api/maps/", h.HandleMap)
	mux.HandleFunc("/api/export", h.HandleExportBundle)
	mux.HandleFunc("/api/export/", h.HandleExportMap)
	mux.HandleFunc("/api/history", h.HandleHistory)
	mux.HandleFunc("/api/history/", h.HandleHistoryDetail)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	mux.HandleFunc("/", h.HandleStatic)
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// writeFailure maps an error from the studio onto a status code
func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	var perr *providers.Error
	if errors.As(err, &perr) {
		slog.Error("Generation failed", "kind", perr.Kind, "err", err)
		h.writeJSONStatus(w, http.StatusBadGateway, map[string]string{
			"error":          err.Error(),
			"error_category": string(providers.Classify(err)),
		})
		return
	}
	h.writeError(w, err.Error(), statusFor(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, imaging.ErrUploadRejected):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, crop.ErrImageTooSmall):
		return http.StatusUnprocessableEntity
	case errors.Is(err, studio.ErrUnknownMap),
		errors.Is(err, studio.ErrHistoryMissing),
		errors.Is(err, export.ErrNoImage):
		return http.StatusNotFound
	case errors.Is(err, studio.ErrInvalidValue),
		errors.Is(err, studio.ErrAlbedoRequired),
		errors.Is(err, studio.ErrNotDerived):
		return http.StatusBadRequest
	case errors.Is(err, generation.ErrBusy),
		errors.Is(err, studio.ErrNoSource),
		errors.Is(err, studio.ErrNoAlbedo),
		errors.Is(err, studio.ErrNothingSelected),
		errors.Is(err, crop.ErrNotOpen),
		errors.Is(err, crop.ErrInteractionActive),
		errors.Is(err, crop.ErrNoInteraction):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// mapView is a texture map without its image bytes
type mapView struct {
	ID            models.MapID       `json:"id"`
	Name          string             `json:"name"`
	Suffix        string             `json:"suffix"`
	Status        models.Status      `json:"status"`
	Error         string             `json:"error,omitempty"`
	ErrorCategory string             `json:"error_category,omitempty"`
	Selected      bool               `json:"selected"`
	Adjustments   models.Adjustments `json:"adjustments"`
	MIMEType      string             `json:"mime_type,omitempty"`
	ImageURL      string             `json:"image_url,omitempty"`
	Filter        string             `json:"filter,omitempty"`
}

func newMapView(m models.TextureMap) mapView {
	v := mapView{
		ID:            m.ID,
		Name:          m.Name,
		Suffix:        m.Suffix,
		Status:        m.Status,
		Error:         m.Error,
		ErrorCategory: m.ErrorCategory,
		Selected:      m.Selected,
		Adjustments:   m.Adjustments,
		Filter:        adjust.CSS(m.Adjustments),
	}
	if m.HasImage() {
		v.MIMEType = m.MIMEType
		v.ImageURL = "/api/maps/" + string(m.ID) + "/image"
	}
	return v
}

func mapViews(maps []models.TextureMap) []mapView {
	views := make([]mapView, 0, len(maps))
	for _, m := range maps {
		views = append(views, newMapView(m))
	}
	return views
}
