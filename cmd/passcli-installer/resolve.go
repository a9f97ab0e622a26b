package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/fetch"
)

func newResolveCommand(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show the release artifact for this platform",
		Long: `Resolve prints which release archive install would download for the
target platform, without downloading anything. Use --os and --arch to look
up another platform, or --all to list the whole catalog.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all {
				return a.runResolveAll(cmd.Context(), cmd.OutOrStdout())
			}
			return a.runResolve(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "list artifacts for every supported platform")

	return cmd
}

func (a *app) runResolve(ctx context.Context, out io.Writer) error {
	cat, art, info, err := a.resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	meta := cat.Meta()
	fmt.Fprintf(out, "%s %s: %s\n", meta.Name, meta.Version, meta.Description)

	var distro string
	if d := info.GetDistro(); d != nil {
		distro = fmt.Sprintf("%s %s (%s family)", d.ID, d.Version, d.Family)
	}
	printKeyValue(out,
		"Platform", art.Key().String(),
		"Distro", distro,
		"Archive", art.FileName(),
		"URL", art.URL,
		"SHA256", checksumLabel(art.SHA256),
		"Signature", art.SignatureURL,
		"Homepage", meta.Homepage,
		"License", meta.License,
	)
	return nil
}

func (a *app) runResolveAll(ctx context.Context, out io.Writer) error {
	cat, err := a.loadCatalog(ctx)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	meta := cat.Meta()
	fmt.Fprintf(out, "%s %s: %s\n", meta.Name, meta.Version, meta.Description)
	for _, art := range cat.Artifacts() {
		alias := ""
		if art.Alias {
			alias = " (alias)"
		}
		fmt.Fprintf(out, "  %-14s %s%s\n", art.Key(), art.URL, alias)
		fmt.Fprintf(out, "  %-14s sha256 %s\n", "", checksumLabel(art.SHA256))
	}
	return nil
}

// checksumLabel flags digests that install would refuse.
func checksumLabel(sum string) string {
	if err := fetch.ValidateChecksum(sum); err != nil {
		return sum + " (not a sha256 digest, install will refuse)"
	}
	return sum
}

// printKeyValue writes aligned "key: value" lines, skipping empty values.
func printKeyValue(out io.Writer, pairs ...string) {
	width := 0
	for i := 0; i+1 < len(pairs); i += 2 {
		width = max(width, len(pairs[i]))
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		fmt.Fprintf(out, "%s:%s %s\n", pairs[i], strings.Repeat(" ", width-len(pairs[i])), pairs[i+1])
	}
}
