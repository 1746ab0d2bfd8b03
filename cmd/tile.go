package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nbox/texturelab/internal/export"
	"github.com/nbox/texturelab/internal/imaging"
	"github.com/nbox/texturelab/internal/models"
	"github.com/spf13/cobra"
)

func newTileCmd() *cobra.Command {
	var (
		name      string
		mapID     string
		format    string
		outputDir string
		adj       = models.DefaultAdjustments()
	)

	cmd := &cobra.Command{
		Use:   "tile <map-image>",
		Short: "Bake colour adjustments and a tile offset into an existing map",
		Long: `Applies the same colour adjustments and wrap-around tile shift as the web
preview to a map image on disk and writes the final export.

Offsets are percentages of the image size; values outside -100..100 are clamped.`,
		Example: `  # Shift a roughness map by half a tile horizontally
  texturelab tile oak_roughness.png --map roughness --offset-x 50

  # Warm up and brighten an albedo, export as WebP
  texturelab tile oak_albedo.png --brightness 115 --temperature 10 --format webp`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := imaging.ParseFormat(format)
			if err != nil {
				return err
			}
			id := models.MapID(mapID)
			if !id.Valid() {
				return fmt.Errorf("unknown map: %s", mapID)
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read map: %w", err)
			}
			_, info, err := imaging.Decode(data)
			if err != nil {
				return err
			}

			m := models.TextureMap{
				ID:          id,
				Suffix:      string(id),
				Image:       data,
				MIMEType:    info.MIMEType,
				Adjustments: adj.Clamp(),
			}
			out, err := export.Final(m, f)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			path := filepath.Join(outputDir, export.FinalFilename(name, m, f))
			if err := os.WriteFile(path, out, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			slog.Info("Wrote final map", "path", path, "width", info.Width, "height", info.Height, "adjustments", m.Adjustments)
			fmt.Println(path)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "nbox_texture_01", "Material name used for the file name")
	cmd.Flags().StringVar(&mapID, "map", string(models.Albedo), "Map kind (albedo, roughness, normal, height, ao, metalness)")
	cmd.Flags().StringVar(&format, "format", "png", "Output format (png, jpeg, webp)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Directory to write the result to")
	cmd.Flags().IntVar(&adj.Brightness, "brightness", adj.Brightness, "Brightness percentage (50-150)")
	cmd.Flags().IntVar(&adj.Contrast, "contrast", adj.Contrast, "Contrast percentage (50-150)")
	cmd.Flags().IntVar(&adj.Saturation, "saturation", adj.Saturation, "Saturation percentage (0-200)")
	cmd.Flags().IntVar(&adj.Temperature, "temperature", adj.Temperature, "Hue rotation in degrees (-45-45)")
	cmd.Flags().IntVar(&adj.OffsetX, "offset-x", 0, "Horizontal tile offset in percent (-100-100)")
	cmd.Flags().IntVar(&adj.OffsetY, "offset-y", 0, "Vertical tile offset in percent (-100-100)")

	return cmd
}
