package cmd

import (
	"fmt"

	"github.com/nbox/texturelab/internal/config"
	"github.com/nbox/texturelab/internal/gemini"
	"github.com/nbox/texturelab/internal/generation"
	"github.com/nbox/texturelab/internal/models"
	"github.com/nbox/texturelab/internal/storage"
	"github.com/nbox/texturelab/internal/studio"
)

// app is the wiring shared by every command that touches a project
type app struct {
	cfg     *config.Config
	history *storage.HistoryStore
	studio  *studio.Studio
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	history, err := storage.Open(cfg.Storage.DataDir, cfg.History.Debounce)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	seq := generation.NewSequencer(gemini.New(cfg.Gemini.APIKey), cfg.Generation.Delay)
	s := studio.New(seq, history, studio.Options{
		Name:       cfg.Material.Name,
		Model:      cfg.Model(),
		Resolution: models.Resolution(cfg.Gemini.Resolution),
		Material:   models.Material(cfg.Material.Type),
		CropSize:   cfg.Crop.OutputSize,
		MaxPixels:  cfg.Upload.MaxPixels,
	})

	return &app{cfg: cfg, history: history, studio: s}, nil
}

// Close flushes pending history writes
func (a *app) Close() error {
	return a.history.Close()
}
