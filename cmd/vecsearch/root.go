package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/vecsearch/internal/config"
)

func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vecsearch",
		Short: "Vector similarity search over project chunk stores",
		Long: `vecsearch answers nearest-neighbour queries against the vector_chunks
store of a project. It uses the native SQLite vector index when available and
falls back to an exact full scan otherwise.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)

	rootCmd.AddCommand(
		NewSearchCmd(),
		NewRelatedCmd(),
		NewStatusCmd(),
		NewIndexCmd(),
		NewServeCmd(version),
		NewConfigCmd(),
		NewVersionCmd(version),
	)

	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", config.DefaultFile, "Path to the YAML config file")
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
}
