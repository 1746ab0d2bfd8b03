package studio

import (
	"context"
	"log/slog"

	"github.com/nbox/texturelab/internal/generation"
	"github.com/nbox/texturelab/internal/models"
	"github.com/nbox/texturelab/internal/providers"
)

// GenerateAlbedo synthesizes the albedo from the source image. Only the
// albedo map is touched; history is recorded on success.
func (s *Studio) GenerateAlbedo(ctx context.Context) error {
	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		return generation.ErrBusy
	}
	if !s.project.HasSource() {
		s.mu.Unlock()
		return ErrNoSource
	}

	job := s.jobLocked(s.project.Source, s.project.SourceMIME)
	albedo := &s.project.Maps[s.indexLocked(models.Albedo)]
	albedo.Status = models.StatusLoading
	albedo.Error = ""
	albedo.ErrorCategory = ""
	albedo.Image = nil
	albedo.MIMEType = ""
	s.generating = true
	s.mu.Unlock()

	result, err := s.seq.Seed(ctx, job)

	s.mu.Lock()
	s.generating = false
	albedo = &s.project.Maps[s.indexLocked(models.Albedo)]
	if err != nil {
		setFailed(albedo, err)
		s.mu.Unlock()
		return err
	}
	setResult(albedo, result)
	s.project.ActiveMapID = models.Albedo
	name, maps := s.project.Name, models.CloneMaps(s.project.Maps)
	s.mu.Unlock()

	s.record(name, maps)
	return nil
}

// GenerateMaps derives every selected map from the albedo, one call at a
// time. It returns once the batch has started; the returned channel is closed
// after the last map settles and history has been recorded.
func (s *Studio) GenerateMaps(ctx context.Context) (<-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var selected []models.TextureMap
	for _, m := range s.project.Maps {
		if m.Selected && m.ID != models.Albedo {
			selected = append(selected, m)
		}
	}
	if len(selected) == 0 {
		return nil, ErrNothingSelected
	}
	return s.deriveLocked(ctx, selected)
}

// RetryMap re-runs a single derived map
func (s *Studio) RetryMap(ctx context.Context, id models.MapID) (<-chan struct{}, error) {
	if id == models.Albedo {
		return nil, ErrNotDerived
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.mapLocked(id)
	if err != nil {
		return nil, err
	}
	return s.deriveLocked(ctx, []models.TextureMap{*m})
}

func (s *Studio) deriveLocked(ctx context.Context, maps []models.TextureMap) (<-chan struct{}, error) {
	if s.generating {
		return nil, generation.ErrBusy
	}
	albedo := s.project.Maps[s.indexLocked(models.Albedo)]
	if !albedo.HasImage() {
		return nil, ErrNoAlbedo
	}

	events, err := s.seq.Derive(ctx, s.jobLocked(albedo.Image, albedo.MIMEType), maps)
	if err != nil {
		return nil, err
	}

	for _, m := range maps {
		target, _ := s.mapLocked(m.ID)
		target.Status = models.StatusLoading
		target.Error = ""
		target.ErrorCategory = ""
	}
	s.generating = true

	done := make(chan struct{})
	s.batches.Add(1)
	go func() {
		defer s.batches.Done()
		defer close(done)
		s.apply(events)
	}()
	return done, nil
}

// Wait blocks until every running batch has settled and recorded its snapshot.
// Cancel the batch context first to stop outstanding calls.
func (s *Studio) Wait() {
	s.batches.Wait()
}

// apply settles maps as results arrive, then records one history snapshot
func (s *Studio) apply(events <-chan generation.Event) {
	failed := 0
	for ev := range events {
		if ev.Kind != generation.EventResult {
			continue
		}
		s.mu.Lock()
		if m, err := s.mapLocked(ev.MapID); err == nil {
			if ev.Err != nil {
				setFailed(m, ev.Err)
				failed++
			} else {
				setResult(m, ev.Result)
			}
		}
		s.mu.Unlock()
	}

	s.mu.RLock()
	name, maps := s.project.Name, models.CloneMaps(s.project.Maps)
	s.mu.RUnlock()

	slog.Info("Generation batch finished", "name", name, "failed", failed)
	s.record(name, maps)

	// the batch is not over until its snapshot is recorded
	s.mu.Lock()
	s.generating = false
	s.mu.Unlock()
}

func (s *Studio) jobLocked(source []byte, mimeType string) generation.Job {
	return generation.Job{
		Model:      s.project.Model,
		Resolution: s.project.Resolution,
		Material:   s.project.Material,
		Source:     append([]byte(nil), source...),
		SourceMIME: mimeType,
	}
}

func (s *Studio) record(name string, maps []models.TextureMap) {
	if s.history == nil {
		return
	}
	entry := s.history.Record(name, maps)
	slog.Debug("Recorded history", "id", entry.ID, "name", name)
}

func setResult(m *models.TextureMap, result *providers.Result) {
	if result == nil || len(result.Image) == 0 {
		setFailed(m, providers.Errorf(providers.KindEmpty, "Model failed to generate image data."))
		return
	}
	m.Image = result.Image
	m.MIMEType = result.MIMEType
	m.Status = models.StatusIdle
	m.Error = ""
	m.ErrorCategory = ""
}

func setFailed(m *models.TextureMap, err error) {
	m.Status = models.StatusError
	m.Error = err.Error()
	m.ErrorCategory = string(providers.Classify(err))
}
