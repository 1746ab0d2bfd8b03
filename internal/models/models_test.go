package models

import "testing"

func TestInitialMaps(t *testing.T) {
	maps := InitialMaps()

	if len(maps) != 6 {
		t.Fatalf("Expected 6 maps, got %d", len(maps))
	}

	for i, m := range maps {
		if m.ID != MapIDs[i] {
			t.Errorf("Expected map %d to be %s, got %s", i, MapIDs[i], m.ID)
		}
		if m.Status != StatusIdle {
			t.Errorf("Expected %s to start idle, got %s", m.ID, m.Status)
		}
		if m.HasImage() {
			t.Errorf("Expected %s to start without image", m.ID)
		}
		if m.Adjustments != DefaultAdjustments() {
			t.Errorf("Expected default adjustments for %s, got %+v", m.ID, m.Adjustments)
		}
		wantSelected := m.ID != Metalness
		if m.Selected != wantSelected {
			t.Errorf("Expected %s selected=%v, got %v", m.ID, wantSelected, m.Selected)
		}
	}
}

func TestCloneMapsDoesNotAlias(t *testing.T) {
	maps := InitialMaps()
	maps[0].Image = []byte{1, 2, 3}

	clone := CloneMaps(maps)
	clone[0].Image[0] = 9
	clone[1].Selected = false

	if maps[0].Image[0] != 1 {
		t.Error("Clone shares image bytes with the original")
	}
	if !maps[1].Selected {
		t.Error("Clone shares map values with the original")
	}
}

func TestAdjustmentsClamp(t *testing.T) {
	a := Adjustments{
		Brightness:  10,
		Contrast:    500,
		Saturation:  -5,
		Temperature: 90,
		OffsetX:     -250,
		OffsetY:     101,
	}.Clamp()

	want := Adjustments{
		Brightness:  MinBrightness,
		Contrast:    MaxContrast,
		Saturation:  MinSaturation,
		Temperature: MaxTemperature,
		OffsetX:     MinOffset,
		OffsetY:     MaxOffset,
	}
	if a != want {
		t.Errorf("Expected %+v, got %+v", want, a)
	}
}

func TestAdjustmentsResets(t *testing.T) {
	a := Adjustments{Brightness: 120, Contrast: 80, Saturation: 0, Temperature: 30, OffsetX: 25, OffsetY: -40}

	color := a.ResetColor()
	if color.Brightness != 100 || color.Contrast != 100 || color.Saturation != 100 || color.Temperature != 0 {
		t.Errorf("ResetColor did not restore colour values: %+v", color)
	}
	if color.OffsetX != 25 || color.OffsetY != -40 {
		t.Errorf("ResetColor changed offsets: %+v", color)
	}

	offset := a.ResetOffset()
	if offset.OffsetX != 0 || offset.OffsetY != 0 {
		t.Errorf("ResetOffset did not zero offsets: %+v", offset)
	}
	if offset.Brightness != 120 || offset.Temperature != 30 {
		t.Errorf("ResetOffset changed colour values: %+v", offset)
	}
}

func TestAdjustmentsSet(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value int
		want  Adjustments
		ok    bool
	}{
		{"brightness in range", "brightness", 130, Adjustments{Brightness: 130, Contrast: 100, Saturation: 100}, true},
		{"offset clamped", "offset_x", 300, Adjustments{Brightness: 100, Contrast: 100, Saturation: 100, OffsetX: 100}, true},
		{"unknown key", "gamma", 5, DefaultAdjustments(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DefaultAdjustments().Set(tt.key, tt.value)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParseModel(t *testing.T) {
	tests := []struct {
		in   string
		want Model
		ok   bool
	}{
		{"flash", ModelFlash, true},
		{"pro", ModelPro, true},
		{"gemini-3-pro-image-preview", ModelPro, true},
		{"gpt-image", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseModel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseModel(%q): expected (%q,%v), got (%q,%v)", tt.in, tt.want, tt.ok, got, ok)
		}
	}

	if ModelFlash.SupportsResolution() || !ModelPro.SupportsResolution() {
		t.Error("Only the pro model should honour resolution")
	}
	if Mode("other").Valid() || !ModeAlbedoToPBR.Valid() {
		t.Error("Mode validation is wrong")
	}
	if Resolution("8K").Valid() || !Resolution2K.Valid() {
		t.Error("Resolution validation is wrong")
	}
}
