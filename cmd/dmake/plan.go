package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newPlanCmd(a *app) *cobra.Command {
	o := &buildOptions{}
	var order, command bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the generated Makefile without running make",
		Example: `  dmake plan -f rules.yaml
  dmake plan -f rules.yaml --order`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dm, err := newDistributedMake(a, cmd, o)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if order {
				targets, err := dm.Graph().Order()
				if err != nil {
					return err
				}
				for i, target := range targets {
					fmt.Fprintf(out, "%d. %s\n", i+1, target)
				}
				return nil
			}

			if command {
				fmt.Fprintln(out, strings.Join(dm.BuildCommand("<makefile>"), " "))
				return nil
			}

			return dm.Graph().SerializeShell(out, a.cfg.Make.RecipeShell)
		},
	}

	bindBuildFlags(cmd, o)
	cmd.Flags().BoolVar(&order, "order", false, "list targets in dependency order instead")
	cmd.Flags().BoolVar(&command, "command", false, "print the make command line instead")
	cmd.MarkFlagsMutuallyExclusive("order", "command")

	return cmd
}
