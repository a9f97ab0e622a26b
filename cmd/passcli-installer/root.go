package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/catalog"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/config"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/descriptor"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/logger"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/platform"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/version"
)

// app holds global flags and the settings resolved from them.
type app struct {
	configPath string
	logLevel   string
	quiet      bool
	prefix     string
	cacheDir   string
	descriptor string
	keyring    string
	progress   string
	osName     string
	arch       string

	// lookuper reads settings overrides; nil reads the process environment.
	lookuper envconfig.Lookuper

	cfg *config.Config
}

// createRootCommand builds the CLI. lookuper replaces the process
// environment for settings overrides when non-nil.
func createRootCommand(lookuper envconfig.Lookuper) *cobra.Command {
	a := &app{lookuper: lookuper}

	root := &cobra.Command{
		Use:   "passcli-installer",
		Short: "Install and check pass-cli release binaries",
		Long: `passcli-installer downloads the pass-cli release for this platform,
verifies its checksum, installs the binary with shell completions and
documentation, and can smoke test the result without touching your vault.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "path to settings file (default: user config dir)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "only log warnings and errors")
	flags.StringVar(&a.prefix, "prefix", "", "install prefix (default ~/.local)")
	flags.StringVar(&a.cacheDir, "cache-dir", "", "directory for downloads and locks")
	flags.StringVar(&a.descriptor, "descriptor", "", "package descriptor overriding the built-in one")
	flags.StringVar(&a.keyring, "keyring", "", "OpenPGP public keyring for release signatures")
	flags.StringVar(&a.progress, "progress", "", "download progress: auto, always, never")
	flags.StringVar(&a.osName, "os", "", "target operating system (default: this host)")
	flags.StringVar(&a.arch, "arch", "", "target architecture (default: this host)")

	root.AddCommand(
		newInstallCommand(a),
		newTestCommand(a),
		newResolveCommand(a),
		newCaveatsCommand(a),
	)
	version.AttachCobraVersionCommand(root)

	return root
}

// setup resolves settings (file, environment, flags) and configures logging.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Resolve(ctx, a.configPath, a.lookuper)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}

	for dst, flag := range map[*string]string{
		&cfg.Prefix:     a.prefix,
		&cfg.CacheDir:   a.cacheDir,
		&cfg.Descriptor: a.descriptor,
		&cfg.Keyring:    a.keyring,
		&cfg.LogLevel:   a.logLevel,
		&cfg.Progress:   a.progress,
	} {
		if flag != "" {
			*dst = flag
		}
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	a.cfg = cfg

	level, _ := logger.ParseLogLevel(cfg.LogLevel)
	if a.quiet {
		level = logger.QuietLevel(level)
	}
	logger.SetLevel(level)

	logger.DebugKV(ctx, "settings resolved",
		"prefix", cfg.Prefix,
		"descriptor", cfg.Descriptor,
		"progress", cfg.Progress)

	return nil
}

// loadCatalog parses the configured descriptor, or the built-in one.
func (a *app) loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	if a.cfg.Descriptor == "" {
		return descriptor.Default(ctx)
	}

	path, err := config.ExpandPath(a.cfg.Descriptor)
	if err != nil {
		return nil, err
	}
	cat, err := descriptor.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", path, descriptor.FormatError(err, logger.Level() == zapcore.DebugLevel))
	}
	return cat, nil
}

// detector returns the host detector, or a fixed platform when --os or
// --arch is given.
func (a *app) detector() platform.Detector {
	if a.osName == "" && a.arch == "" {
		return platform.NewDetector()
	}

	osName, arch := a.osName, a.arch
	if osName == "" {
		osName = runtime.GOOS
	}
	if arch == "" {
		arch = runtime.GOARCH
	}
	key := platform.ParseKey(osName, arch)

	return &platform.StaticDetector{Info: platform.Info{OS: key.OS, Arch: key.Arch, ArchRaw: arch}}
}

// resolve loads the catalog and picks the artifact for the target platform.
func (a *app) resolve(ctx context.Context) (*catalog.Catalog, catalog.Artifact, *platform.Info, error) {
	cat, err := a.loadCatalog(ctx)
	if err != nil {
		return nil, catalog.Artifact{}, nil, err
	}

	art, info, err := catalog.NewResolver(cat, a.detector()).Resolve(ctx)
	if err != nil {
		return cat, catalog.Artifact{}, info, err
	}
	return cat, art, info, nil
}

// cacheRoot is where per-run working directories and locks live.
func (a *app) cacheRoot() (string, error) {
	if a.cfg.CacheDir == "" {
		return filepath.Join(os.TempDir(), config.DefaultConfigDir), nil
	}
	return config.ExpandPath(a.cfg.CacheDir)
}
