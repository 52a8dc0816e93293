// Package cli defines the gatekeeper command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrlokans/gatekeeper/internal/config"
	"github.com/mrlokans/gatekeeper/internal/entrypoint"
)

// BuildInfo is set at build time via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
}

// NewRootCommand builds the command tree. Running it without a subcommand
// starts the server.
func NewRootCommand(info BuildInfo) *cobra.Command {
	serve := func(cmd *cobra.Command, args []string) error {
		return entrypoint.Run(config.NewConfig(), info.Version)
	}

	root := &cobra.Command{
		Use:           "gatekeeper",
		Short:         "Session-gated web service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server (default if no command given)",
			Args:  cobra.NoArgs,
			RunE:  serve,
		},
		NewCreateUserCommand().Command(),
		versionCmd(info),
	)

	return root
}
