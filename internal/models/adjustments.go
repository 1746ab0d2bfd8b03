package models

// Adjustment ranges. Offsets are percentages of the image dimension.
const (
	MinBrightness  = 50
	MaxBrightness  = 150
	MinContrast    = 50
	MaxContrast    = 150
	MinSaturation  = 0
	MaxSaturation  = 200
	MinTemperature = -45
	MaxTemperature = 45
	MinOffset      = -100
	MaxOffset      = 100
)

// Adjustments holds the colour and tile-offset tuning of one map
type Adjustments struct {
	Brightness  int `json:"brightness" yaml:"brightness" parquet:"brightness"`
	Contrast    int `json:"contrast" yaml:"contrast" parquet:"contrast"`
	Saturation  int `json:"saturation" yaml:"saturation" parquet:"saturation"`
	Temperature int `json:"temperature" yaml:"temperature" parquet:"temperature"`
	OffsetX     int `json:"offset_x" yaml:"offset_x" parquet:"offset_x"`
	OffsetY     int `json:"offset_y" yaml:"offset_y" parquet:"offset_y"`
}

// DefaultAdjustments returns the neutral adjustment set
func DefaultAdjustments() Adjustments {
	return Adjustments{
		Brightness: 100,
		Contrast:   100,
		Saturation: 100,
	}
}

// Clamp limits every field to its allowed range
func (a Adjustments) Clamp() Adjustments {
	a.Brightness = clampInt(a.Brightness, MinBrightness, MaxBrightness)
	a.Contrast = clampInt(a.Contrast, MinContrast, MaxContrast)
	a.Saturation = clampInt(a.Saturation, MinSaturation, MaxSaturation)
	a.Temperature = clampInt(a.Temperature, MinTemperature, MaxTemperature)
	a.OffsetX = clampInt(a.OffsetX, MinOffset, MaxOffset)
	a.OffsetY = clampInt(a.OffsetY, MinOffset, MaxOffset)
	return a
}

// ResetColor restores brightness, contrast, saturation and temperature. Offsets are kept.
func (a Adjustments) ResetColor() Adjustments {
	d := DefaultAdjustments()
	a.Brightness = d.Brightness
	a.Contrast = d.Contrast
	a.Saturation = d.Saturation
	a.Temperature = d.Temperature
	return a
}

// ResetOffset zeroes the tile offsets. Colour values are kept.
func (a Adjustments) ResetOffset() Adjustments {
	a.OffsetX = 0
	a.OffsetY = 0
	return a
}

// Set updates a single field by its JSON name, clamped to range
func (a Adjustments) Set(key string, value int) (Adjustments, bool) {
	switch key {
	case "brightness":
		a.Brightness = value
	case "contrast":
		a.Contrast = value
	case "saturation":
		a.Saturation = value
	case "temperature":
		a.Temperature = value
	case "offset_x":
		a.OffsetX = value
	case "offset_y":
		a.OffsetY = value
	default:
		return a, false
	}
	return a.Clamp(), true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
