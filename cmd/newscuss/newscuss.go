// Package newscusscmder
package newscusscmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/newscuss/newscuss/cmd/newscuss/config"
	servecmder "github.com/newscuss/newscuss/cmd/newscuss/serve"
	versioncmder "github.com/newscuss/newscuss/cmd/version"
)

const newscussLongDesc string = `Newscuss is the backend for AI debate sessions over news articles.

Run the service using:
  newscuss serve         Run the discussion API server
  newscuss config init   Write a default config.toml`

const newscussShortDesc string = "Newscuss - AI news discussions"

func NewNewscussCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "newscuss",
		Short: newscussShortDesc,
		Long:  newscussLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
