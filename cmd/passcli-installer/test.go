package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/install"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/smoketest"
)

type testOptions struct {
	binary     string
	version    string
	help       string
	initInput  string
	strictHome bool
}

func newTestCommand(a *app) *cobra.Command {
	opts := &testOptions{}

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Smoke test an installed pass-cli",
		Long: `Test runs the installed binary's version, --help and init commands and
checks their results. init runs with HOME pointed at a temporary directory,
so your real vault is never read or written. All checks run even when an
earlier one fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runTest(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.binary, "binary", "", "binary to test (default: <prefix>/bin/pass-cli)")
	cmd.Flags().StringVar(&opts.version, "expect-version", "", "version the binary must report (default: descriptor version)")
	cmd.Flags().StringVar(&opts.help, "expect-help", smoketest.DefaultHelpSubstring, "text --help must contain")
	cmd.Flags().StringVar(&opts.initInput, "init-input", "", "stdin for init (default: a generated master password twice)")
	cmd.Flags().BoolVar(&opts.strictHome, "strict-home", false, "fail init if it creates anything in HOME besides the vault")

	return cmd
}

func (a *app) runTest(ctx context.Context, out io.Writer, opts *testOptions) error {
	binary, expected := opts.binary, opts.version

	if binary == "" || expected == "" {
		cat, err := a.loadCatalog(ctx)
		if err != nil {
			return fmt.Errorf("resolve: %w", err)
		}
		if expected == "" {
			expected = cat.Version()
		}
		if binary == "" {
			prefix, err := a.cfg.PrefixPath()
			if err != nil {
				return err
			}
			binary = install.NewTarget(prefix, cat.Meta().Name).BinaryPath
		}
	}

	fmt.Fprintf(out, "Testing %s\n", binary)
	report := smoketest.Run(ctx, smoketest.Options{
		Binary:        binary,
		Version:       expected,
		HelpSubstring: opts.help,
		InitInput:     opts.initInput,
		StrictHome:    opts.strictHome,
	})
	if err := report.Render(out); err != nil {
		return err
	}

	if err := report.Err(); err != nil {
		return fmt.Errorf("smoke test: %w", err)
	}
	return nil
}
