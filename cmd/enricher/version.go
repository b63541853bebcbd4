package main

import (
	"github.com/spf13/cobra"

	"github.com/shpitdev/entity-search-enricher/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("enricher version %s\n", version.Current)
		},
	}
}
