package models

import "time"

// MapID identifies one of the six PBR map kinds
type MapID string

const (
	Albedo    MapID = "albedo"
	Roughness MapID = "roughness"
	Normal    MapID = "normal"
	Height    MapID = "height"
	AO        MapID = "ao"
	Metalness MapID = "metalness"
)

// MapIDs lists every map kind in display order
var MapIDs = []MapID{Albedo, Roughness, Normal, Height, AO, Metalness}

// Valid reports whether id is one of the known map kinds
func (id MapID) Valid() bool {
	for _, known := range MapIDs {
		if id == known {
			return true
		}
	}
	return false
}

// Status is the generation state of a single map
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusError   Status = "error"
)

// TextureMap represents one PBR map of the material being built
type TextureMap struct {
	ID            MapID       `json:"id"`
	Name          string      `json:"name"`
	Suffix        string      `json:"suffix"`
	Image         []byte      `json:"image,omitempty"`
	MIMEType      string      `json:"mime_type,omitempty"`
	Status        Status      `json:"status"`
	Error         string      `json:"error,omitempty"`
	ErrorCategory string      `json:"error_category,omitempty"`
	Selected      bool        `json:"selected"`
	Adjustments   Adjustments `json:"adjustments"`
}

// HasImage reports whether the map holds a generated (or assigned) result
func (m TextureMap) HasImage() bool {
	return len(m.Image) > 0
}

// InitialMaps returns the six maps with empty results. Metalness starts unselected.
func InitialMaps() []TextureMap {
	names := map[MapID]string{
		Albedo:    "Albedo",
		Roughness: "Roughness",
		Normal:    "Normal",
		Height:    "Height",
		AO:        "AO",
		Metalness: "Metalness",
	}

	maps := make([]TextureMap, 0, len(MapIDs))
	for _, id := range MapIDs {
		maps = append(maps, TextureMap{
			ID:          id,
			Name:        names[id],
			Suffix:      string(id),
			Status:      StatusIdle,
			Selected:    id != Metalness,
			Adjustments: DefaultAdjustments(),
		})
	}
	return maps
}

// CloneMaps deep-copies a map slice so snapshots never alias live state
func CloneMaps(maps []TextureMap) []TextureMap {
	out := make([]TextureMap, len(maps))
	for i, m := range maps {
		out[i] = m
		if m.Image != nil {
			out[i].Image = append([]byte(nil), m.Image...)
		}
	}
	return out
}

// Mode selects whether the albedo is synthesized from a reference or supplied directly
type Mode string

const (
	ModeReferenceToAlbedo Mode = "reference_to_albedo"
	ModeAlbedoToPBR       Mode = "albedo_to_pbr"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	return m == ModeReferenceToAlbedo || m == ModeAlbedoToPBR
}

// Model is the image model identifier sent to the generation service
type Model string

const (
	ModelFlash Model = "gemini-2.5-flash-image"
	ModelPro   Model = "gemini-3-pro-image-preview"
)

// ParseModel accepts either the full identifier or the short names flash and pro
func ParseModel(s string) (Model, bool) {
	switch s {
	case "flash", string(ModelFlash):
		return ModelFlash, true
	case "pro", string(ModelPro):
		return ModelPro, true
	}
	return "", false
}

// SupportsResolution reports whether the model honours the resolution hint
func (m Model) SupportsResolution() bool {
	return m == ModelPro
}

// Resolution is the output size hint, honoured by the pro model only
type Resolution string

const (
	Resolution1K Resolution = "1K"
	Resolution2K Resolution = "2K"
	Resolution4K Resolution = "4K"
)

// Valid reports whether r is a known resolution
func (r Resolution) Valid() bool {
	return r == Resolution1K || r == Resolution2K || r == Resolution4K
}

// Material is the surface category used to build prompts
type Material string

// Materials lists the supported material categories
var Materials = []Material{"Fabric", "Wood", "Stone", "Concrete", "Leather", "Metal", "Plaster", "Tile"}

// ValidMaterial reports whether m is a supported category
func ValidMaterial(m Material) bool {
	for _, known := range Materials {
		if m == known {
			return true
		}
	}
	return false
}

// HistoryEntry is a frozen snapshot of a material's maps
type HistoryEntry struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Timestamp time.Time    `json:"timestamp"`
	Maps      []TextureMap `json:"maps"`
}
