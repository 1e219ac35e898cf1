package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func NewRelatedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "related <project> <query>",
		Short: "List files whose chunks match a query",
		Args:  cobra.ExactArgs(2),
		RunE:  runRelated,
	}

	addQueryFlags(cmd)
	return cmd
}

func runRelated(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		files, err := a.searcher.RelatedFiles(cmd.Context(), queryFromFlags(cmd, a, args[0], args[1]))
		if err != nil {
			return fmt.Errorf("related files: %w", err)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			if files == nil {
				files = []string{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(files)
		}

		for _, f := range files {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	})
}
