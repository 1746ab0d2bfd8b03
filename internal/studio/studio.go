// Package studio holds the single live material project and the transitions
// the HTTP API and CLI apply to it.
package studio

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/nbox/texturelab/internal/crop"
	"github.com/nbox/texturelab/internal/export"
	"github.com/nbox/texturelab/internal/generation"
	"github.com/nbox/texturelab/internal/geometry"
	"github.com/nbox/texturelab/internal/imaging"
	"github.com/nbox/texturelab/internal/models"
	"github.com/nbox/texturelab/internal/providers"
)

var (
	ErrNoSource        = errors.New("no source image")
	ErrNoAlbedo        = errors.New("albedo has not been generated")
	ErrNothingSelected = errors.New("no derived maps selected")
	ErrUnknownMap      = errors.New("unknown map")
	ErrAlbedoRequired  = errors.New("albedo is always selected")
	ErrNotDerived      = errors.New("albedo is generated from the source, not derived")
	ErrInvalidValue    = errors.New("invalid value")
	ErrHistoryMissing  = errors.New("history entry not found")
)

// History is where finished batches are recorded
type History interface {
	Record(name string, maps []models.TextureMap) models.HistoryEntry
	Get(id string) (models.HistoryEntry, bool)
}

// Options seeds a new studio
type Options struct {
	Name       string
	Mode       models.Mode
	Model      models.Model
	Resolution models.Resolution
	Material   models.Material
	CropSize   int
	MaxPixels  int
}

// Project is a snapshot of the live material project
type Project struct {
	Name        string              `json:"name"`
	Mode        models.Mode         `json:"mode"`
	Model       models.Model        `json:"model"`
	Resolution  models.Resolution   `json:"resolution"`
	Material    models.Material     `json:"material"`
	Source      []byte              `json:"-"`
	SourceMIME  string              `json:"source_mime,omitempty"`
	SourceSize  geometry.Size       `json:"source_size"`
	Maps        []models.TextureMap `json:"maps"`
	ActiveMapID models.MapID        `json:"active_map_id"`
	Generating  bool                `json:"generating"`
	Progress    generation.Progress `json:"progress"`
	CropOpen    bool                `json:"crop_open"`
}

// HasSource reports whether a source image has been committed
func (p Project) HasSource() bool {
	return len(p.Source) > 0
}

// Map returns the map with the given id
func (p Project) Map(id models.MapID) (models.TextureMap, bool) {
	for _, m := range p.Maps {
		if m.ID == id {
			return m, true
		}
	}
	return models.TextureMap{}, false
}

// pendingUpload is an image waiting in the crop session
type pendingUpload struct {
	data []byte
	info imaging.Info
}

// Studio serialises every change to the project
type Studio struct {
	seq       *generation.Sequencer
	history   History
	cropSize  int
	maxPixels int

	mu         sync.RWMutex
	project    Project
	crop       *crop.Session
	pending    *pendingUpload
	generating bool

	batches sync.WaitGroup
}

// New returns a studio with an empty project
func New(seq *generation.Sequencer, history History, opts Options) *Studio {
	if opts.Name == "" {
		opts.Name = "nbox_texture_01"
	}
	if !opts.Mode.Valid() {
		opts.Mode = models.ModeReferenceToAlbedo
	}
	if opts.Model == "" {
		opts.Model = models.ModelFlash
	}
	if !opts.Resolution.Valid() {
		opts.Resolution = models.Resolution1K
	}
	if !models.ValidMaterial(opts.Material) {
		opts.Material = models.Materials[0]
	}
	if opts.CropSize <= 0 {
		opts.CropSize = crop.DefaultOutputSize
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = imaging.DefaultMaxPixels
	}

	return &Studio{
		seq:       seq,
		history:   history,
		cropSize:  opts.CropSize,
		maxPixels: opts.MaxPixels,
		crop:      crop.NewSession(),
		project: Project{
			Name:        opts.Name,
			Mode:        opts.Mode,
			Model:       opts.Model,
			Resolution:  opts.Resolution,
			Material:    opts.Material,
			Maps:        models.InitialMaps(),
			ActiveMapID: models.Albedo,
		},
	}
}

// Snapshot returns a deep copy of the project
func (s *Studio) Snapshot() Project {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.project
	p.Source = append([]byte(nil), s.project.Source...)
	p.Maps = models.CloneMaps(s.project.Maps)
	for i := range p.Maps {
		if p.Maps[i].Error != "" && p.Maps[i].ErrorCategory == "" {
			p.Maps[i].ErrorCategory = string(providers.ClassifyMessage(p.Maps[i].Error))
		}
	}
	p.Generating = s.generating
	p.Progress = s.seq.Progress()
	p.CropOpen = s.crop.IsOpen()
	return p
}

// Map returns a copy of one map
func (s *Studio) Map(id models.MapID) (models.TextureMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id)
	if i < 0 {
		return models.TextureMap{}, fmt.Errorf("%w: %s", ErrUnknownMap, id)
	}
	return models.CloneMaps(s.project.Maps[i : i+1])[0], nil
}

// Material returns what a bundle export needs
func (s *Studio) Material() export.Material {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return export.Material{
		Name:     s.project.Name,
		Material: s.project.Material,
		Model:    s.project.Model,
		Maps:     models.CloneMaps(s.project.Maps),
	}
}

func (s *Studio) indexLocked(id models.MapID) int {
	for i, m := range s.project.Maps {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (s *Studio) mapLocked(id models.MapID) (*models.TextureMap, error) {
	i := s.indexLocked(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMap, id)
	}
	return &s.project.Maps[i], nil
}

// Upload decodes an image and opens a crop session on it. The project source
// is unchanged until the crop is committed or cancelled.
func (s *Studio) Upload(data []byte) (imaging.Info, error) {
	img, info, err := imaging.DecodeLimit(data, s.maxPixels)
	if err != nil {
		slog.Warn("Rejected upload", "bytes", len(data), "err", err)
		return imaging.Info{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.crop.Open(img); err != nil {
		return imaging.Info{}, fmt.Errorf("failed to open crop session: %w", err)
	}
	s.pending = &pendingUpload{data: append([]byte(nil), data...), info: info}

	slog.Info("Opened crop session", "width", info.Width, "height", info.Height, "mime", info.MIMEType)
	return info, nil
}

// CropView is the crop session as seen from a container of a given size
type CropView struct {
	State     crop.State       `json:"state"`
	Active    crop.Interaction `json:"active"`
	Image     geometry.Size    `json:"image"`
	Rect      geometry.Rect    `json:"rect"`
	Displayed geometry.Rect    `json:"displayed"`
	Overlay   geometry.Rect    `json:"overlay"`
}

// Crop describes the session, projecting the rectangle into container space
func (s *Studio) Crop(container geometry.Size) CropView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := CropView{
		State:  s.crop.State(),
		Active: s.crop.Active(),
		Image:  s.crop.ImageSize(),
		Rect:   s.crop.Rect(),
	}
	if v.State == crop.StateOpen {
		v.Displayed = geometry.ContainFit(container, v.Image)
		v.Overlay = geometry.ToScreen(container, v.Image, v.Rect)
	}
	return v
}

// CropBegin starts a move or resize gesture
func (s *Studio) CropBegin(i crop.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crop.Begin(i)
}

// CropDrag applies a screen-space pointer delta to the active gesture
func (s *Studio) CropDrag(container geometry.Size, dx, dy float64) (geometry.Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crop.Drag(container, dx, dy)
}

// CropSetRect places the rectangle directly, as the CLI does
func (s *Studio) CropSetRect(r geometry.Rect) (geometry.Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crop.SetRect(r)
}

// CropRelease ends the active gesture
func (s *Studio) CropRelease() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.crop.IsOpen() {
		return crop.ErrNotOpen
	}
	s.crop.Release()
	return nil
}

// CropCommit resamples the selected region into the square source image
func (s *Studio) CropCommit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, err := s.crop.Commit(s.cropSize)
	if err != nil {
		return err
	}
	data, err := imaging.EncodeBytes(img, imaging.FormatJPEG)
	if err != nil {
		return fmt.Errorf("failed to encode crop: %w", err)
	}

	s.pending = nil
	s.setSourceLocked(data, imaging.FormatJPEG.MIMEType(), img.Bounds())
	slog.Info("Committed crop", "size", s.cropSize)
	return nil
}

// CropCancel keeps the uploaded image verbatim as the source
func (s *Studio) CropCancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, err := s.crop.Cancel()
	if err != nil {
		return err
	}
	pending := s.pending
	s.pending = nil
	if pending == nil {
		return ErrNoSource
	}

	s.setSourceLocked(pending.data, pending.info.MIMEType, img.Bounds())
	slog.Info("Skipped crop", "width", pending.info.Width, "height", pending.info.Height)
	return nil
}

// setSourceLocked installs a new source. When the upload is the albedo itself
// it also becomes the albedo result.
func (s *Studio) setSourceLocked(data []byte, mimeType string, bounds image.Rectangle) {
	s.project.Source = data
	s.project.SourceMIME = mimeType
	s.project.SourceSize = geometry.Size{W: float64(bounds.Dx()), H: float64(bounds.Dy())}

	if s.project.Mode == models.ModeAlbedoToPBR {
		albedo := &s.project.Maps[s.indexLocked(models.Albedo)]
		albedo.Image = append([]byte(nil), data...)
		albedo.MIMEType = mimeType
		albedo.Status = models.StatusIdle
		albedo.Error = ""
		albedo.ErrorCategory = ""
		s.project.ActiveMapID = models.Albedo
	}
}

// SetName renames the material
func (s *Studio) SetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidValue)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project.Name = name
	return nil
}

// SetMode switches between synthesizing and supplying the albedo
func (s *Studio) SetMode(mode models.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: mode %q", ErrInvalidValue, mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project.Mode = mode
	return nil
}

// SetModel selects the image model, by full identifier or short name
func (s *Studio) SetModel(name string) error {
	model, ok := models.ParseModel(name)
	if !ok {
		return fmt.Errorf("%w: model %q", ErrInvalidValue, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project.Model = model
	return nil
}

// SetResolution sets the output size hint
func (s *Studio) SetResolution(r models.Resolution) error {
	if !r.Valid() {
		return fmt.Errorf("%w: resolution %q", ErrInvalidValue, r)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project.Resolution = r
	return nil
}

// SetMaterial sets the material category used in prompts
func (s *Studio) SetMaterial(m models.Material) error {
	if !models.ValidMaterial(m) {
		return fmt.Errorf("%w: material %q", ErrInvalidValue, m)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project.Material = m
	return nil
}

// SetActive chooses the map shown in the preview
func (s *Studio) SetActive(id models.MapID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.mapLocked(id); err != nil {
		return err
	}
	s.project.ActiveMapID = id
	return nil
}

// SetSelected queues or unqueues a derived map for batch generation
func (s *Studio) SetSelected(id models.MapID, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.mapLocked(id)
	if err != nil {
		return err
	}
	if id == models.Albedo {
		if !selected {
			return ErrAlbedoRequired
		}
		return nil
	}
	m.Selected = selected
	return nil
}

// SetAdjustment updates one adjustment field of a map, clamped to range
func (s *Studio) SetAdjustment(id models.MapID, key string, value int) (models.Adjustments, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.mapLocked(id)
	if err != nil {
		return models.Adjustments{}, err
	}
	a, ok := m.Adjustments.Set(key, value)
	if !ok {
		return m.Adjustments, fmt.Errorf("%w: adjustment %q", ErrInvalidValue, key)
	}
	m.Adjustments = a
	return a, nil
}

// ResetColor restores a map's colour adjustments, keeping its offsets
func (s *Studio) ResetColor(id models.MapID) (models.Adjustments, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.mapLocked(id)
	if err != nil {
		return models.Adjustments{}, err
	}
	m.Adjustments = m.Adjustments.ResetColor()
	return m.Adjustments, nil
}

// ResetOffset zeroes a map's tile offsets, keeping its colour adjustments
func (s *Studio) ResetOffset(id models.MapID) (models.Adjustments, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.mapLocked(id)
	if err != nil {
		return models.Adjustments{}, err
	}
	m.Adjustments = m.Adjustments.ResetOffset()
	return m.Adjustments, nil
}

// LoadHistory replaces the maps and name with a history entry
func (s *Studio) LoadHistory(id string) error {
	if s.history == nil {
		return ErrHistoryMissing
	}
	entry, ok := s.history.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrHistoryMissing, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generating {
		return generation.ErrBusy
	}
	maps := models.CloneMaps(entry.Maps)
	for i := range maps {
		// a snapshot taken mid-batch can hold maps that never settled
		if maps[i].Status == models.StatusLoading {
			maps[i].Status = models.StatusIdle
		}
	}
	s.project.Maps = maps
	s.project.Name = entry.Name
	s.project.ActiveMapID = models.Albedo

	slog.Info("Loaded history entry", "id", id, "name", entry.Name)
	return nil
}
