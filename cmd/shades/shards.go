package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreman2200/hidden-shades/internal/shards"
)

func newShardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shards",
		Short: "List the built-in shards",
		Run: func(cmd *cobra.Command, args []string) {
			for _, id := range shards.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
		},
	}
}
