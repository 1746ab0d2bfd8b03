package cmd

import (
	"testing"

	"github.com/nbox/texturelab/internal/geometry"
)

func TestParseRect(t *testing.T) {
	tests := []struct {
		in      string
		want    geometry.Rect
		wantErr bool
	}{
		{"10,20,300,300", geometry.Rect{X: 10, Y: 20, W: 300, H: 300}, false},
		{" 0, 0, 50.5, 50.5 ", geometry.Rect{W: 50.5, H: 50.5}, false},
		{"1,2,3", geometry.Rect{}, true},
		{"a,b,c,d", geometry.Rect{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRect(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRect(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseRect(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetupLogging(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", ""} {
		if err := setupLogging(level); err != nil {
			t.Errorf("setupLogging(%q) failed: %v", level, err)
		}
	}
	if err := setupLogging("loud"); err == nil {
		t.Error("Expected an error for an unknown level")
	}
}

func TestRootCommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"serve", "generate", "tile", "history"} {
		if _, _, err := root.Find([]string{name}); err != nil {
			t.Errorf("Missing command %s: %v", name, err)
		}
	}
}
