package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/advisory"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/config"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/fetch"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/install"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/logger"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/shell"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/smoketest"
)

type installOptions struct {
	noCaveats bool
	test      bool
}

func newInstallCommand(a *app) *cobra.Command {
	opts := &installOptions{}

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Download, verify and install pass-cli",
		Long: `Install resolves the release archive for the target platform, downloads it,
checks its SHA-256 digest (and OpenPGP signature when a keyring is set),
then installs the binary, shell completions and documentation under the
prefix.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runInstall(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.noCaveats, "no-caveats", false, "do not print first-run guidance")
	cmd.Flags().BoolVar(&opts.test, "test", false, "run the smoke test after installing")

	return cmd
}

// runInstall handles the `install` subcommand
func (a *app) runInstall(ctx context.Context, out io.Writer, opts *installOptions) error {
	// Step 1: Resolve the artifact
	cat, art, _, err := a.resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	fmt.Fprintf(out, "Resolved %s %s for %s\n", art.Name, art.Version, art.Key())

	prefix, err := a.cfg.PrefixPath()
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	cacheRoot, err := a.cacheRoot()
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	keyring, err := config.ExpandPath(a.cfg.Keyring)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	// Step 2: Download and verify
	fetcher := fetch.NewFetcher(fetch.Options{
		TempRoot: cacheRoot,
		Keyring:  keyring,
		Progress: fetch.ProgressWriter(a.cfg.Progress, os.Stderr),
	})
	payload, err := fetcher.Fetch(ctx, art)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer func() {
		if err := payload.Close(); err != nil {
			logger.WarnKV(ctx, "failed to remove download dir", "error", err)
		}
	}()
	fmt.Fprintf(out, "✓ Downloaded %s (%s verified)\n", art.FileName(), payload.Verified)

	// Step 3: Install
	target := install.NewTarget(prefix, cat.Meta().Name)
	installer := install.New(install.Options{LockDir: filepath.Join(cacheRoot, "locks")})
	res, err := installer.Install(ctx, payload, target)
	if res != nil {
		printInstallResult(out, res)
	}
	if err != nil {
		return fmt.Errorf("install: %w", err)
	}

	// Step 4: Guidance
	if !opts.noCaveats {
		fmt.Fprintln(out)
		if err := advisory.Write(out, cat.Meta().Name); err != nil {
			return err
		}
	}
	printShellHints(out, target)

	if opts.test {
		fmt.Fprintln(out)
		report := smoketest.Run(ctx, smoketest.Options{Binary: target.BinaryPath, Version: art.Version})
		if err := report.Render(out); err != nil {
			return err
		}
		if err := report.Err(); err != nil {
			return fmt.Errorf("smoke test: %w", err)
		}
	}

	return nil
}

func printInstallResult(out io.Writer, res *install.Result) {
	fmt.Fprintf(out, "✓ Installed %s\n", res.Target.BinaryPath)
	for _, s := range shell.Supported() {
		if path, ok := res.Completions[s]; ok {
			fmt.Fprintf(out, "✓ %s completion: %s\n", s, path)
		}
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "⚠  %v\n", w)
	}
	if len(res.Docs) > 0 {
		fmt.Fprintf(out, "✓ Documentation: %s\n", res.Target.DocsDir)
	}
	if len(res.Running) > 0 {
		fmt.Fprintf(out, "⚠  %s is running (pid %v); restart it to use the new version\n",
			res.Target.Program(), res.Running)
	}
}

// printShellHints tells the user how to reach the binary and completions
// from their shell.
func printShellHints(out io.Writer, target install.Target) {
	binDir := filepath.Dir(target.BinaryPath)
	if !onPath(binDir) {
		fmt.Fprintf(out, "\n⚠  %s is not on your PATH\n", binDir)
	}

	detected, err := shell.DetectShell()
	if err != nil || !detected.Shell.IsValid() {
		return
	}
	hint, err := shell.ActivationHint(target.CompletionsRoot, detected.Shell, target.Program())
	if err != nil {
		return
	}
	fmt.Fprintf(out, "\nTo enable %s completions, add to ~/%s:\n  %s\n",
		detected.Shell, shell.RCFile(detected.Shell), hint)
}

func onPath(dir string) bool {
	for _, p := range filepath.SplitList(os.Getenv("PATH")) {
		if filepath.Clean(p) == filepath.Clean(dir) {
			return true
		}
	}
	return false
}
