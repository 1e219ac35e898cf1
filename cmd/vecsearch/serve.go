package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/vecsearch/internal/httpapi"
	"github.com/dshills/vecsearch/internal/mcp"
)

func NewServeCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run vecsearch as a server",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "mcp",
			Short: "Serve the MCP protocol on stdio",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, func(a *app) error {
					// stdout is the protocol channel; logs go to stderr
					a.logger.Info("mcp server ready, listening on stdio", zap.String("version", version))
					return mcp.NewServer(a.searcher, a.cfg, version, a.logger.Named("mcp")).Serve(cmd.Context())
				})
			},
		},
		newServeHTTPCmd(),
	)

	return cmd
}

func newServeHTTPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the JSON HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
					a.cfg.Server.HTTPAddr = addr
				}
				return httpapi.New(a.searcher, a.cfg, a.logger.Named("http")).ListenAndServe(cmd.Context())
			})
		},
	}

	cmd.Flags().String("addr", "", "Listen address (overrides server.http_addr)")
	return cmd
}
