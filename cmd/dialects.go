package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"go.mercari.io/schemanorm/normalize"
)

var dialectsCmd = &cobra.Command{
	Use:   "dialects",
	Short: "dialects lists the input dialects convert accepts.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, d := range normalize.Dialects() {
			fmt.Fprintln(cmd.OutOrStdout(), d)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dialectsCmd)
}
