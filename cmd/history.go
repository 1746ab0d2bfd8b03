package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nbox/texturelab/internal/config"
	"github.com/nbox/texturelab/internal/models"
	"github.com/nbox/texturelab/internal/storage"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and manage saved materials",
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryClearCmd())
	cmd.AddCommand(newHistoryExportCmd())

	return cmd
}

// openHistory opens the store without building the rest of the app
func openHistory() (*storage.HistoryStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	// writes from these commands go straight to disk
	return storage.Open(cfg.Storage.DataDir, 0)
}

func newHistoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved materials, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			entries := store.List()
			if len(entries) == 0 {
				fmt.Println("No history entries")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%s  %s  %-24s %s\n", e.ID, e.Timestamp.Format(time.DateTime), e.Name, mapSummary(e.Maps))
			}
			return nil
		},
	}
}

func mapSummary(maps []models.TextureMap) string {
	done, failed := 0, 0
	for _, m := range maps {
		switch {
		case m.Status == models.StatusError:
			failed++
		case m.HasImage():
			done++
		}
	}
	if failed > 0 {
		return fmt.Sprintf("%d/%d maps, %d failed", done, len(maps), failed)
	}
	return fmt.Sprintf("%d/%d maps", done, len(maps))
}

func newHistoryClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved material",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(); err != nil {
				return err
			}
			slog.Info("Cleared history", "path", store.Path())
			return nil
		},
	}
}

func newHistoryExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export one row per map outcome as a parquet file",
		Example: `  texturelab history export --output outcomes.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			n, err := store.ExportParquet(f)
			if err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			slog.Info("Exported history", "path", output, "rows", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "texturelab_history.parquet", "Parquet file to write")

	return cmd
}
