package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/vecsearch/internal/searcher"
)

func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <project> <query>",
		Short: "Find the chunks most similar to a query",
		Long: `Embed the query and return stored chunks ordered by similarity, best first.
--limit bounds the candidate pool before --threshold is applied, so fewer than
limit results may be printed.`,
		Args: cobra.ExactArgs(2),
		RunE: runSearch,
	}

	addQueryFlags(cmd)
	return cmd
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("limit", "n", 0, "Candidate pool size (0 uses the configured default)")
	cmd.Flags().Float64P("threshold", "t", 0, "Minimum similarity, inclusive (unset uses the configured default)")
}

// queryFromFlags builds a query from positional args and flags
func queryFromFlags(cmd *cobra.Command, a *app, project, text string) searcher.Query {
	limit, _ := cmd.Flags().GetInt("limit")

	threshold := a.cfg.Search.SimilarityThreshold
	if cmd.Flags().Changed("threshold") {
		threshold, _ = cmd.Flags().GetFloat64("threshold")
	}

	return searcher.Query{
		ProjectPath:         project,
		Text:                text,
		Limit:               a.cfg.ClampLimit(limit),
		SimilarityThreshold: threshold,
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		q := queryFromFlags(cmd, a, args[0], args[1])

		resp, err := a.searcher.SearchWithInfo(cmd.Context(), q)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return outputSearchJSON(cmd, resp)
		}

		out := cmd.OutOrStdout()
		for _, r := range resp.Results {
			fmt.Fprintf(out, "%.4f  %s  %s\n", r.Similarity, r.Relpath, r.ChunkID)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d results (%d candidates, %s path, %s)\n",
			len(resp.Results), resp.Candidates, resp.Path, resp.Duration.Round(time.Microsecond))
		return nil
	})
}

func outputSearchJSON(cmd *cobra.Command, resp *searcher.Response) error {
	results := make([]map[string]any, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, map[string]any{
			"chunk_id":   r.ChunkID,
			"relpath":    r.Relpath,
			"chunk":      r.Chunk,
			"similarity": r.Similarity,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"retrieval":   string(resp.Path),
		"candidates":  resp.Candidates,
		"results":     results,
		"duration_ms": resp.Duration.Milliseconds(),
	})
}
