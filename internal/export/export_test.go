package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/nbox/texturelab/internal/adjust"
	"github.com/nbox/texturelab/internal/imaging"
	"github.com/nbox/texturelab/internal/models"
	"github.com/nbox/texturelab/internal/tile"
	"gopkg.in/yaml.v3"
)

func encoded(t *testing.T, w, h int, format imaging.Format) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 9), G: uint8(y * 13), B: 40, A: 255})
		}
	}
	data, err := imaging.EncodeBytes(img, format)
	if err != nil {
		t.Fatalf("Failed to encode fixture: %v", err)
	}
	return data
}

func mapWith(id models.MapID, data []byte) models.TextureMap {
	for _, m := range models.InitialMaps() {
		if m.ID == id {
			m.Image = data
			return m
		}
	}
	panic("unknown map id")
}

func TestFinalBakesAdjustmentsAndOffset(t *testing.T) {
	m := mapWith(models.Normal, encoded(t, 20, 10, imaging.FormatPNG))
	m.Adjustments.Brightness = 120
	m.Adjustments.OffsetX = 25
	m.Adjustments.OffsetY = -50

	data, err := Final(m, imaging.FormatPNG)
	if err != nil {
		t.Fatalf("Final failed: %v", err)
	}
	got, _, err := imaging.Decode(data)
	if err != nil {
		t.Fatalf("Failed to decode export: %v", err)
	}

	src, _, _ := imaging.Decode(m.Image)
	want := tile.Shift(adjust.New(m.Adjustments).Apply(src), 25, -50)

	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			g := color.NRGBAModel.Convert(got.At(x, y)).(color.NRGBA)
			if g != want.NRGBAAt(x, y) {
				t.Fatalf("Pixel (%d,%d): expected %+v, got %+v", x, y, want.NRGBAAt(x, y), g)
			}
		}
	}
}

func TestFinalWithoutImage(t *testing.T) {
	_, err := Final(mapWith(models.AO, nil), imaging.FormatPNG)
	if !errors.Is(err, ErrNoImage) {
		t.Errorf("Expected ErrNoImage, got %v", err)
	}
}

func TestRawReencodesAsPNG(t *testing.T) {
	m := mapWith(models.Albedo, encoded(t, 8, 8, imaging.FormatJPEG))
	data, err := Raw(m)
	if err != nil {
		t.Fatalf("Raw failed: %v", err)
	}
	if got := imaging.DetectMIMEType(data); got != "image/png" {
		t.Errorf("Expected PNG, got %s", got)
	}
}

func TestFilenames(t *testing.T) {
	m := mapWith(models.Height, nil)

	tests := []struct {
		got  string
		want string
	}{
		{FinalFilename("nbox_texture_01", m, imaging.FormatPNG), "nbox_texture_01_height_final.png"},
		{FinalFilename("nbox_texture_01", m, imaging.FormatWebP), "nbox_texture_01_height_final.webp"},
		{RawFilename("nbox_texture_01", m), "nbox_texture_01_height.png"},
		{RawFilename("../etc/passwd", m), ".._etc_passwd_height.png"},
		{ManifestFilename(""), "texture_manifest.yaml"},
		{BundleFilename("oak"), "oak.zip"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, tt.got)
		}
	}
}

func TestBundle(t *testing.T) {
	maps := models.InitialMaps()
	maps[0].Image = encoded(t, 6, 6, imaging.FormatJPEG)
	maps[2].Image = encoded(t, 6, 6, imaging.FormatPNG)
	maps[2].Adjustments.OffsetX = 10
	maps[3].Status = models.StatusError
	maps[3].Error = "blocked"

	mat := Material{Name: "oak", Material: "Wood", Model: models.ModelFlash, Maps: maps}

	var buf bytes.Buffer
	if err := Bundle(context.Background(), &buf, mat); err != nil {
		t.Fatalf("Bundle failed: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("Invalid zip: %v", err)
	}

	names := []string{}
	files := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		names = append(names, f.Name)
		files[f.Name] = data
	}

	wantNames := []string{"oak_albedo.png", "oak_normal.png", "oak_manifest.yaml"}
	if len(names) != len(wantNames) {
		t.Fatalf("Expected entries %v, got %v", wantNames, names)
	}
	for i := range wantNames {
		if names[i] != wantNames[i] {
			t.Errorf("Entry %d: expected %s, got %s", i, wantNames[i], names[i])
		}
	}

	if got := imaging.DetectMIMEType(files["oak_albedo.png"]); got != "image/png" {
		t.Errorf("Albedo should be re-encoded as PNG, got %s", got)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(files["oak_manifest.yaml"], &manifest); err != nil {
		t.Fatalf("Invalid manifest: %v", err)
	}
	if manifest.Name != "oak" || manifest.Material != "Wood" || len(manifest.Maps) != 6 {
		t.Errorf("Unexpected manifest header %+v", manifest)
	}
	if manifest.Maps[2].Adjustments.OffsetX != 10 || manifest.Maps[2].File != "oak_normal.png" {
		t.Errorf("Unexpected normal entry %+v", manifest.Maps[2])
	}
	if manifest.Maps[3].Status != "error" || manifest.Maps[3].Error != "blocked" || manifest.Maps[3].File != "" {
		t.Errorf("Unexpected height entry %+v", manifest.Maps[3])
	}
}

func TestBundleCancelled(t *testing.T) {
	maps := models.InitialMaps()
	maps[0].Image = encoded(t, 4, 4, imaging.FormatPNG)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := Bundle(ctx, &buf, Material{Name: "x", Maps: maps})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
