package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewAliasesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "aliases",
		Short: "List registered operator aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, alias := range rootOpts.Registry.Aliases() {
				fmt.Fprintln(cmd.OutOrStdout(), alias)
			}
			return nil
		},
	}
}
