// Package generation drives the albedo and derived-map calls to the image
// generator, one call at a time.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nbox/texturelab/internal/models"
	"github.com/nbox/texturelab/internal/providers"
)

// DefaultDelay is the pause before each derived-map call
const DefaultDelay = 150 * time.Millisecond

// ErrBusy is returned when a batch is requested while another is running
var ErrBusy = errors.New("generation already running")

// ErrCancelled is recorded on maps a cancelled batch never reached
var ErrCancelled = errors.New("generation cancelled")

// Job is the shared input of a seed call or a derived batch
type Job struct {
	Model      models.Model
	Resolution models.Resolution
	Material   models.Material
	Source     []byte
	SourceMIME string
}

// EventKind distinguishes sequencer events
type EventKind string

const (
	// EventProgress is published before each call is issued
	EventProgress EventKind = "progress"
	// EventResult carries the settlement of one call
	EventResult EventKind = "result"
)

// Event reports batch progress or a settled map
type Event struct {
	Kind    EventKind
	MapID   models.MapID
	Current int
	Total   int
	Result  *providers.Result
	Err     error
}

// Progress is a snapshot of the running batch
type Progress struct {
	Running bool `json:"running"`
	Current int  `json:"current"`
	Total   int  `json:"total"`
}

// Sequencer runs generation calls strictly one after another
type Sequencer struct {
	gen   providers.Generator
	delay time.Duration

	mu       sync.Mutex
	progress Progress
}

// NewSequencer returns a sequencer over gen. A negative delay selects DefaultDelay.
func NewSequencer(gen providers.Generator, delay time.Duration) *Sequencer {
	if delay < 0 {
		delay = DefaultDelay
	}
	return &Sequencer{gen: gen, delay: delay}
}

// Progress returns the current batch state
func (s *Sequencer) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *Sequencer) acquire(total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progress.Running {
		return ErrBusy
	}
	s.progress = Progress{Running: true, Total: total}
	return nil
}

func (s *Sequencer) advance(current int) {
	s.mu.Lock()
	s.progress.Current = current
	s.mu.Unlock()
}

func (s *Sequencer) release() {
	s.mu.Lock()
	s.progress = Progress{}
	s.mu.Unlock()
}

// Seed generates the albedo from the source image in a single call
func (s *Sequencer) Seed(ctx context.Context, job Job) (*providers.Result, error) {
	if err := s.acquire(1); err != nil {
		return nil, err
	}
	defer s.release()
	s.advance(1)

	slog.Info("Generating albedo", "material", job.Material, "model", job.Model)
	result, err := s.gen.Generate(ctx, providers.Request{
		Model:      job.Model,
		Source:     job.Source,
		SourceMIME: job.SourceMIME,
		Prompt:     AlbedoPrompt(job.Material),
		Resolution: job.Resolution,
	})
	if err != nil {
		slog.Warn("Albedo generation failed", "err", err, "category", providers.Classify(err))
		return nil, err
	}
	return result, nil
}

// Derive generates each map in order from the albedo in job.Source. Events are
// delivered on the returned channel, which is closed when the batch is over.
// A failed map does not stop the batch. Once ctx is done no further calls are
// issued and every remaining map settles with ErrCancelled.
func (s *Sequencer) Derive(ctx context.Context, job Job, maps []models.TextureMap) (<-chan Event, error) {
	if len(maps) == 0 {
		return nil, fmt.Errorf("no maps selected")
	}
	if err := s.acquire(len(maps)); err != nil {
		return nil, err
	}

	events := make(chan Event, 2*len(maps))
	go func() {
		defer close(events)
		defer s.release()
		s.run(ctx, job, maps, events)
	}()
	return events, nil
}

func (s *Sequencer) run(ctx context.Context, job Job, maps []models.TextureMap, events chan<- Event) {
	total := len(maps)
	for i, m := range maps {
		s.advance(i + 1)
		events <- Event{Kind: EventProgress, MapID: m.ID, Current: i + 1, Total: total}

		if err := s.wait(ctx); err != nil {
			for _, rest := range maps[i:] {
				events <- Event{Kind: EventResult, MapID: rest.ID, Current: i + 1, Total: total, Err: fmt.Errorf("%w: %v", ErrCancelled, err)}
			}
			slog.Info("Generation batch cancelled", "completed", i, "total", total)
			return
		}

		slog.Info("Generating map", "map", m.ID, "current", i+1, "total", total)
		result, err := s.gen.Generate(ctx, providers.Request{
			Model:      job.Model,
			Source:     job.Source,
			SourceMIME: job.SourceMIME,
			Prompt:     MapPrompt(m, job.Material),
			Resolution: job.Resolution,
		})
		if err != nil {
			slog.Warn("Map generation failed", "map", m.ID, "err", err, "category", providers.Classify(err))
		}
		events <- Event{Kind: EventResult, MapID: m.ID, Current: i + 1, Total: total, Result: result, Err: err}
	}
}

func (s *Sequencer) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.delay == 0 {
		return nil
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
