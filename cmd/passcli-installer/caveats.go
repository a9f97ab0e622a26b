package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/advisory"
)

func newCaveatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "caveats",
		Short: "Print first-run guidance for pass-cli",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			cat, err := a.loadCatalog(cmd.Context())
			if err != nil {
				return fmt.Errorf("resolve: %w", err)
			}
			meta := cat.Meta()

			fmt.Fprintf(out, "%s: %s\n", meta.Name, meta.Description)
			printKeyValue(out, "Homepage", meta.Homepage, "License", meta.License)
			fmt.Fprintln(out)

			return advisory.Write(out, meta.Name)
		},
	}
}
