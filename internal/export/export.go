// Package export bakes adjustments into maps and writes download artifacts.
package export

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nbox/texturelab/internal/adjust"
	"github.com/nbox/texturelab/internal/imaging"
	"github.com/nbox/texturelab/internal/models"
	"github.com/nbox/texturelab/internal/tile"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// ErrNoImage is returned when a map has no result to export
var ErrNoImage = errors.New("map has no image")

// Material is what a bundle is built from
type Material struct {
	Name     string
	Material models.Material
	Model    models.Model
	Maps     []models.TextureMap
}

// Manifest describes the contents of a bundle
type Manifest struct {
	Name      string          `yaml:"name"`
	Material  string          `yaml:"material"`
	Model     string          `yaml:"model"`
	CreatedAt string          `yaml:"created_at"`
	Maps      []ManifestEntry `yaml:"maps"`
}

// ManifestEntry describes one map in a bundle
type ManifestEntry struct {
	ID          string             `yaml:"id"`
	File        string             `yaml:"file,omitempty"`
	Status      string             `yaml:"status"`
	Error       string             `yaml:"error,omitempty"`
	Adjustments models.Adjustments `yaml:"adjustments"`
}

// Final returns the map with colour adjustments and tile offset baked in
func Final(m models.TextureMap, format imaging.Format) ([]byte, error) {
	if !m.HasImage() {
		return nil, fmt.Errorf("%s: %w", m.ID, ErrNoImage)
	}

	img, _, err := imaging.Decode(m.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", m.ID, err)
	}

	out := adjust.New(m.Adjustments).Apply(img)
	if m.Adjustments.OffsetX != 0 || m.Adjustments.OffsetY != 0 {
		out = tile.Shift(out, float64(m.Adjustments.OffsetX), float64(m.Adjustments.OffsetY))
	}

	return imaging.EncodeBytes(out, format)
}

// Raw returns the unadjusted map as PNG
func Raw(m models.TextureMap) ([]byte, error) {
	if !m.HasImage() {
		return nil, fmt.Errorf("%s: %w", m.ID, ErrNoImage)
	}
	data, err := imaging.Normalize(m.Image, imaging.FormatPNG)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s: %w", m.ID, err)
	}
	return data, nil
}

// FinalFilename names a Final export in the given format
func FinalFilename(material string, m models.TextureMap, format imaging.Format) string {
	name := tile.FinalFilename(SafeName(material), m.Suffix)
	if format == imaging.FormatPNG {
		return name
	}
	return strings.TrimSuffix(name, ".png") + "." + format.Extension()
}

// RawFilename names a Raw export
func RawFilename(material string, m models.TextureMap) string {
	return tile.RawFilename(SafeName(material), m.Suffix)
}

// ManifestFilename names the manifest inside a bundle
func ManifestFilename(material string) string {
	return SafeName(material) + "_manifest.yaml"
}

// BundleFilename names the zip archive
func BundleFilename(material string) string {
	return SafeName(material) + ".zip"
}

// SafeName strips characters that would break a file or zip entry name
func SafeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "texture"
	}
	return name
}

// BuildManifest summarises a material for its bundle
func BuildManifest(mat Material, now time.Time) Manifest {
	manifest := Manifest{
		Name:      mat.Name,
		Material:  string(mat.Material),
		Model:     string(mat.Model),
		CreatedAt: now.UTC().Format(time.RFC3339),
		Maps:      make([]ManifestEntry, 0, len(mat.Maps)),
	}

	for _, m := range mat.Maps {
		entry := ManifestEntry{
			ID:          string(m.ID),
			Status:      string(m.Status),
			Error:       m.Error,
			Adjustments: m.Adjustments,
		}
		if m.HasImage() {
			entry.File = RawFilename(mat.Name, m)
		}
		manifest.Maps = append(manifest.Maps, entry)
	}
	return manifest
}

// Bundle writes a zip holding the raw PNG of every generated map and a YAML
// manifest. Maps are encoded concurrently; entries are written in map order.
func Bundle(ctx context.Context, w io.Writer, mat Material) error {
	encoded := make([][]byte, len(mat.Maps))

	g, _ := errgroup.WithContext(ctx)
	for i, m := range mat.Maps {
		if !m.HasImage() {
			continue
		}
		g.Go(func() error {
			data, err := Raw(m)
			if err != nil {
				return err
			}
			encoded[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	for i, m := range mat.Maps {
		if encoded[i] == nil {
			continue
		}
		if err := writeEntry(zw, RawFilename(mat.Name, m), encoded[i]); err != nil {
			return err
		}
	}

	manifest, err := yaml.Marshal(BuildManifest(mat, time.Now()))
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := writeEntry(zw, ManifestFilename(mat.Name), manifest); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize zip: %w", err)
	}
	return nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create zip entry %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write zip entry %s: %w", name, err)
	}
	return nil
}
