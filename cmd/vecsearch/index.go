package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/vecsearch/internal/storage"
	"github.com/dshills/vecsearch/pkg/types"
)

func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <project>",
		Short: "Build the native vector index for a project",
		Long: `Create the vec_chunks index and backfill it from stored embeddings.
Requires a build with the sqlite-vec extension (-tags sqlite_vec). Without it
searches keep using the full scan.`,
		Args: cobra.ExactArgs(1),
		RunE: runIndex,
	}

	cmd.Flags().Int("dimension", 0, "Embedding dimension (0 detects it from stored chunks)")
	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := storage.OpenProject(cmd.Context(), args[0], cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer store.Close()

	dim, _ := cmd.Flags().GetInt("dimension")
	if dim == 0 {
		stats, err := store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		if stats.Dimension == 0 {
			return errors.New("no embedded chunks found; pass --dimension")
		}
		dim = stats.Dimension
	}

	if err := store.CreateVectorIndex(cmd.Context(), dim); err != nil {
		if errors.Is(err, types.ErrIndexUnsupported) {
			return fmt.Errorf("%w (build mode %s)", err, storage.BuildMode)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "native index ready (dimension %d)\n", dim)
	return nil
}
