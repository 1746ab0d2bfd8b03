package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nbox/texturelab/internal/export"
	"github.com/nbox/texturelab/internal/geometry"
	"github.com/nbox/texturelab/internal/images"
	"github.com/nbox/texturelab/internal/imaging"
	"github.com/nbox/texturelab/internal/models"
	"github.com/nbox/texturelab/internal/studio"
	"github.com/spf13/cobra"
)

type generateOptions struct {
	name       string
	material   string
	model      string
	resolution string
	mode       string
	cropRect   string
	noCrop     bool
	maps       []string
	outputDir  string
	finals     bool
	format     string
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate <image-path-or-url>",
		Short: "Generate a PBR material from a reference image",
		Long: `Runs the whole pipeline without the web interface.

The image is cropped to a square (centred by default), the albedo is generated
from it unless --mode albedo_to_pbr is given, the selected maps are derived one
at a time, and the result is written as a zip bundle.`,
		Example: `  # Generate a wood material from a photo
  texturelab generate oak.jpg --material Wood --name oak_planks

  # Use an explicit crop and the pro model at 2K
  texturelab generate wall.png --crop 120,40,800,800 --model pro --resolution 2K

  # The image already is a seamless albedo
  texturelab generate albedo.png --mode albedo_to_pbr --no-crop --maps normal,height`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "Material name used for file names (defaults to config)")
	cmd.Flags().StringVar(&opts.material, "material", "", "Material category: "+materialNames())
	cmd.Flags().StringVar(&opts.model, "model", "", "Image model (flash, pro or a full model id)")
	cmd.Flags().StringVar(&opts.resolution, "resolution", "", "Output resolution hint for the pro model (1K, 2K, 4K)")
	cmd.Flags().StringVar(&opts.mode, "mode", string(models.ModeReferenceToAlbedo), "reference_to_albedo or albedo_to_pbr")
	cmd.Flags().StringVar(&opts.cropRect, "crop", "", "Crop rectangle in image pixels as x,y,w,h")
	cmd.Flags().BoolVar(&opts.noCrop, "no-crop", false, "Use the image as is")
	cmd.Flags().StringSliceVar(&opts.maps, "maps", nil, "Derived maps to generate (default roughness,normal,height,ao)")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", ".", "Directory to write the bundle to")
	cmd.Flags().BoolVar(&opts.finals, "finals", false, "Also write adjusted and tiled final images")
	cmd.Flags().StringVar(&opts.format, "format", "png", "Format of final images (png, jpeg, webp)")

	cmd.MarkFlagsMutuallyExclusive("crop", "no-crop")

	return cmd
}

func runGenerate(ctx context.Context, input string, opts generateOptions) error {
	format, err := imaging.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("Failed to flush history", "err", err)
		}
	}()

	if err := configureProject(a.studio, opts); err != nil {
		return err
	}

	data, err := readInput(ctx, input, a.cfg.Upload.MaxBytes)
	if err != nil {
		return err
	}

	info, err := a.studio.Upload(data)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", input, err)
	}
	slog.Info("Loaded reference", "input", input, "width", info.Width, "height", info.Height)

	if err := applyCrop(a.studio, opts); err != nil {
		return err
	}

	project := a.studio.Snapshot()
	if project.Mode == models.ModeReferenceToAlbedo {
		slog.Info("Generating albedo", "model", project.Model, "material", project.Material)
		if err := a.studio.GenerateAlbedo(ctx); err != nil {
			return fmt.Errorf("albedo generation failed: %w", err)
		}
	}

	done, err := a.studio.GenerateMaps(ctx)
	switch {
	case errors.Is(err, studio.ErrNothingSelected):
		slog.Info("No derived maps selected")
	case err != nil:
		return err
	default:
		<-done
	}

	if err := writeOutputs(ctx, a.studio, opts.outputDir, opts.finals, format); err != nil {
		return err
	}

	printMaps(a.studio.Snapshot())
	return nil
}

func configureProject(s *studio.Studio, opts generateOptions) error {
	if opts.name != "" {
		if err := s.SetName(opts.name); err != nil {
			return err
		}
	}
	if opts.material != "" {
		if err := s.SetMaterial(models.Material(opts.material)); err != nil {
			return err
		}
	}
	if opts.model != "" {
		if err := s.SetModel(opts.model); err != nil {
			return err
		}
	}
	if opts.resolution != "" {
		if err := s.SetResolution(models.Resolution(opts.resolution)); err != nil {
			return err
		}
	}
	if err := s.SetMode(models.Mode(opts.mode)); err != nil {
		return err
	}

	if len(opts.maps) == 0 {
		return nil
	}
	wanted := make(map[models.MapID]bool, len(opts.maps))
	for _, name := range opts.maps {
		id := models.MapID(strings.ToLower(strings.TrimSpace(name)))
		if !id.Valid() {
			return fmt.Errorf("unknown map: %s", name)
		}
		wanted[id] = true
	}
	for _, id := range models.MapIDs {
		if id == models.Albedo {
			continue
		}
		if err := s.SetSelected(id, wanted[id]); err != nil {
			return err
		}
	}
	return nil
}

func applyCrop(s *studio.Studio, opts generateOptions) error {
	if opts.noCrop {
		return s.CropCancel()
	}
	if opts.cropRect != "" {
		r, err := parseRect(opts.cropRect)
		if err != nil {
			return err
		}
		placed, err := s.CropSetRect(r)
		if err != nil {
			return err
		}
		if placed != r {
			slog.Warn("Crop rectangle adjusted to fit the image", "requested", opts.cropRect, "x", placed.X, "y", placed.Y, "w", placed.W, "h", placed.H)
		}
	}
	return s.CropCommit()
}

// parseRect reads "x,y,w,h" in image pixels
func parseRect(s string) (geometry.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.Rect{}, fmt.Errorf("crop must be x,y,w,h: %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Rect{}, fmt.Errorf("invalid crop value %q: %w", p, err)
		}
		v[i] = f
	}
	return geometry.Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
}

func readInput(ctx context.Context, input string, maxBytes int64) ([]byte, error) {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return images.NewFetcher(maxBytes).Fetch(ctx, input)
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("image too large (max %d bytes)", maxBytes)
	}
	return data, nil
}

func writeOutputs(ctx context.Context, s *studio.Studio, dir string, finals bool, format imaging.Format) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	mat := s.Material()
	bundlePath := filepath.Join(dir, export.BundleFilename(mat.Name))
	f, err := os.Create(bundlePath)
	if err != nil {
		return fmt.Errorf("failed to create bundle: %w", err)
	}
	if err := export.Bundle(ctx, f, mat); err != nil {
		f.Close()
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	slog.Info("Wrote bundle", "path", bundlePath)

	if !finals {
		return nil
	}
	for _, m := range mat.Maps {
		if !m.HasImage() {
			continue
		}
		data, err := export.Final(m, format)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, export.FinalFilename(mat.Name, m, format))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		slog.Info("Wrote final map", "map", m.ID, "path", path)
	}
	return nil
}

func printMaps(p studio.Project) {
	fmt.Println("\n========================================")
	fmt.Printf("Material: %s (%s, %s)\n", p.Name, p.Material, p.Model)
	fmt.Println("========================================")
	for _, m := range p.Maps {
		switch {
		case m.Status == models.StatusError:
			fmt.Printf("  %-10s failed: %s\n", m.Name, m.Error)
		case m.HasImage():
			fmt.Printf("  %-10s ok\n", m.Name)
		default:
			fmt.Printf("  %-10s skipped\n", m.Name)
		}
	}
	fmt.Println("========================================")
}

func materialNames() string {
	names := make([]string, 0, len(models.Materials))
	for _, m := range models.Materials {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}
