package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <project>",
		Short: "Show vector store statistics for a project",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		stats, err := a.searcher.Status(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"db_path":                stats.DBPath,
				"schema_version":         stats.SchemaVersion,
				"chunks_count":           stats.ChunksCount,
				"embedded_count":         stats.EmbeddedCount,
				"files_count":            stats.FilesCount,
				"dimension":              stats.Dimension,
				"index_size_mb":          stats.IndexSizeMB,
				"vector_index_available": stats.VectorIndexAvailable,
			})
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Database:\t%s\n", stats.DBPath)
		fmt.Fprintf(w, "Schema:\t%s\n", stats.SchemaVersion)
		fmt.Fprintf(w, "Chunks:\t%d (%d embedded)\n", stats.ChunksCount, stats.EmbeddedCount)
		fmt.Fprintf(w, "Files:\t%d\n", stats.FilesCount)
		fmt.Fprintf(w, "Dimension:\t%d\n", stats.Dimension)
		fmt.Fprintf(w, "Size:\t%.2f MB\n", stats.IndexSizeMB)
		fmt.Fprintf(w, "Native index:\t%v\n", stats.VectorIndexAvailable)
		return w.Flush()
	})
}
