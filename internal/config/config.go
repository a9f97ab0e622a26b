package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/logger"
)

// Progress modes for download progress output.
const (
	ProgressAuto   = "auto"
	ProgressAlways = "always"
	ProgressNever  = "never"
)

const (
	// DefaultConfigDir is the directory name under the user config dir.
	DefaultConfigDir = "passcli-installer"

	// DefaultConfigFilename is the settings file name inside DefaultConfigDir.
	DefaultConfigFilename = "settings.yaml"

	// DefaultPrefix is the install prefix used when none is configured.
	DefaultPrefix = "~/.local"

	// DefaultFilePermissions is the permission for saved settings files.
	DefaultFilePermissions = 0o600
)

var (
	errConfigIsNotSet  = errors.New("configuration is not set")
	errPrefixRequired  = errors.New("install prefix must be provided")
	errPrefixRelative  = errors.New("install prefix must be an absolute path")
	errInvalidProgress = errors.New("progress must be one of auto, always, never")
	errInvalidLogLevel = errors.New("unknown log level")
)

// Config holds installer settings.
type Config struct {
	// Prefix is the install root: binaries go to <prefix>/bin.
	Prefix string `yaml:"prefix"`
	// CacheDir is where archives are downloaded and unpacked. Empty uses the
	// system temp dir.
	CacheDir string `yaml:"cache_dir,omitempty"`
	// Descriptor is a package descriptor file overriding the embedded one.
	Descriptor string `yaml:"descriptor,omitempty"`
	// Keyring is an armored OpenPGP public keyring for release signatures.
	Keyring string `yaml:"keyring,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`
	// Progress controls the download progress bar.
	Progress string `yaml:"progress,omitempty"`
}

// envOverrides mirrors Config for environment variables. Empty values leave
// the file setting untouched.
type envOverrides struct {
	Prefix     string `env:"PREFIX"`
	CacheDir   string `env:"CACHE_DIR"`
	Descriptor string `env:"DESCRIPTOR"`
	Keyring    string `env:"KEYRING"`
	LogLevel   string `env:"LOG_LEVEL"`
	Progress   string `env:"PROGRESS"`
}

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "PASSCLI_INSTALL_"

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Prefix:   DefaultPrefix,
		LogLevel: "info",
		Progress: ProgressAuto,
	}
}

// DefaultPath returns the settings file location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, DefaultConfigDir, DefaultConfigFilename), nil
}

// Load reads settings from path on top of the defaults and validates them.
func Load(path string) (*Config, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Resolve builds the effective settings: defaults, then the file at path
// (the default location when path is empty; a missing default file is not an
// error), then environment variables read through lookuper. A nil lookuper
// reads the process environment.
func Resolve(ctx context.Context, path string, lookuper envconfig.Lookuper) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			logger.DebugKV(ctx, "no default settings path", "error", err)
		}
		path = p
	}

	cfg := Default()
	if path != "" {
		loaded, err := Load(path)
		switch {
		case err == nil:
			cfg = loaded
			logger.DebugKV(ctx, "settings loaded", "path", path)
		case !explicit && errors.Is(err, fs.ErrNotExist):
			logger.DebugKV(ctx, "no settings file", "path", path)
		default:
			return nil, err
		}
	}

	if err := ApplyEnv(ctx, cfg, lookuper); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overlays PASSCLI_INSTALL_* variables onto cfg.
func ApplyEnv(ctx context.Context, cfg *Config, lookuper envconfig.Lookuper) error {
	if cfg == nil {
		return errConfigIsNotSet
	}
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}

	var env envOverrides
	if err := envconfig.ProcessWith(ctx, &env, envconfig.PrefixLookuper(EnvPrefix, lookuper)); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	overlay(&cfg.Prefix, env.Prefix)
	overlay(&cfg.CacheDir, env.CacheDir)
	overlay(&cfg.Descriptor, env.Descriptor)
	overlay(&cfg.Keyring, env.Keyring)
	overlay(&cfg.LogLevel, env.LogLevel)
	overlay(&cfg.Progress, env.Progress)

	return nil
}

func overlay(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// Save writes cfg to path, creating the parent directory.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filepath.Clean(path)), 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks cfg and fills defaults for empty optional fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if strings.TrimSpace(cfg.Prefix) == "" {
		return errPrefixRequired
	}
	prefix, err := ExpandPath(cfg.Prefix)
	if err != nil {
		return err
	}
	if !filepath.IsAbs(prefix) {
		return fmt.Errorf("%w: %s", errPrefixRelative, cfg.Prefix)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %s", errInvalidLogLevel, cfg.LogLevel)
	}

	switch cfg.Progress {
	case "":
		cfg.Progress = ProgressAuto
	case ProgressAuto, ProgressAlways, ProgressNever:
	default:
		return fmt.Errorf("%w: %s", errInvalidProgress, cfg.Progress)
	}

	return nil
}

// ExpandPath expands a leading "~/" to the user's home directory and cleans
// the result. Empty input stays empty.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return filepath.Clean(path), nil
}

// PrefixPath returns the expanded install prefix.
func (c *Config) PrefixPath() (string, error) {
	return ExpandPath(c.Prefix)
}
