// Package configcmder provides the config subcommands.
package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newscuss/newscuss/pkg/config"
)

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage newscuss configuration",
	}

	cmd.AddCommand(newInitCmd())

	return cmd
}

func newInitCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config.toml",
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := config.WriteDefault(dir)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "o", ".", "Directory to write config.toml into")

	return cmd
}
