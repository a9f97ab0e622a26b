// Package descriptor reads package descriptors: small declarative Lua files
// naming a program, its release version and one archive per platform.
//
// Descriptors run in a sandboxed gopher-lua VM (no os, io, or module
// loading) and must assign a global "formula" table:
//
//	formula = {
//	  name = "pass-cli",
//	  version = "1.0.0",
//	  url = "https://example.com/v{version}/{file}",
//	  artifacts = {
//	    { os = "darwin", arch = "arm64", sha256 = "..." },
//	    ...
//	  },
//	}
//
// An artifact may set its own url, a detached signature url and alias = true
// when it deliberately shares another platform's archive.
package descriptor

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/catalog"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/platform"
)

//go:embed formula/pass-cli.lua
var defaultDescriptor string

// ParseError represents a descriptor parsing error with a friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// Default returns the catalog of the descriptor compiled into the binary.
func Default(ctx context.Context) (*catalog.Catalog, error) {
	return ParseString(ctx, defaultDescriptor)
}

// DefaultSource returns the embedded descriptor source.
func DefaultSource() string {
	return defaultDescriptor
}

// Load parses the descriptor at path.
func Load(ctx context.Context, path string) (*catalog.Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	return ParseString(ctx, string(data))
}

// ParseString parses a descriptor from source and validates it into a
// catalog.
func ParseString(ctx context.Context, src string) (*catalog.Catalog, error) {
	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if err := L.DoString(src); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	meta, artifacts, err := extractFormula(L)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.New(meta, artifacts)
	if err != nil {
		return nil, &ParseError{
			Message: "descriptor validation failed",
			Detail:  err.Error(),
		}
	}

	return cat, nil
}

// extractFormula reads the global "formula" table.
func extractFormula(L *lua.LState) (catalog.Meta, []catalog.Artifact, error) {
	formulaVal := L.GetGlobal("formula")
	if formulaVal.Type() != lua.LTTable {
		return catalog.Meta{}, nil, &ParseError{
			Message: "missing or invalid 'formula' table",
			Detail:  fmt.Sprintf("expected table, got %s", formulaVal.Type()),
		}
	}
	table := formulaVal.(*lua.LTable)

	meta := catalog.Meta{
		Name:        stringField(table, "name"),
		Description: stringField(table, "desc"),
		Homepage:    stringField(table, "homepage"),
		License:     stringField(table, "license"),
		Version:     stringField(table, "version"),
	}

	urlTemplate := stringField(table, "url")
	if urlTemplate == "" {
		urlTemplate = catalog.DefaultURLTemplate
	}

	artifactsVal := table.RawGetString("artifacts")
	if artifactsVal.Type() != lua.LTTable {
		return meta, nil, &ParseError{
			Message: "missing or invalid 'artifacts' table",
			Detail:  fmt.Sprintf("expected table, got %s", artifactsVal.Type()),
		}
	}

	artifacts, err := extractArtifacts(artifactsVal.(*lua.LTable), meta, urlTemplate)
	if err != nil {
		return meta, nil, err
	}

	return meta, artifacts, nil
}

// extractArtifacts converts the artifacts array. Entries that are not tables
// are rejected rather than skipped so a typo cannot drop a platform.
func extractArtifacts(table *lua.LTable, meta catalog.Meta, urlTemplate string) ([]catalog.Artifact, error) {
	var (
		artifacts []catalog.Artifact
		firstErr  error
	)

	table.ForEach(func(key, value lua.LValue) {
		if firstErr != nil {
			return
		}
		entry, ok := value.(*lua.LTable)
		if !ok {
			firstErr = &ParseError{
				Message: "invalid artifact entry",
				Detail:  fmt.Sprintf("artifacts[%s] is %s, expected table", key.String(), value.Type()),
			}
			return
		}

		k := platform.ParseKey(stringField(entry, "os"), stringField(entry, "arch"))
		art := catalog.Artifact{
			Name:         meta.Name,
			Version:      meta.Version,
			OS:           k.OS,
			Arch:         k.Arch,
			URL:          stringField(entry, "url"),
			SHA256:       strings.ToLower(stringField(entry, "sha256")),
			SignatureURL: stringField(entry, "signature"),
		}
		if art.URL == "" && k.OS != "" && k.Arch != "" {
			art.URL = catalog.ExpandURL(urlTemplate, meta.Name, meta.Version, k)
		}
		if aliasVal := entry.RawGetString("alias"); aliasVal.Type() == lua.LTBool {
			art.Alias = bool(aliasVal.(lua.LBool))
		}

		artifacts = append(artifacts, art)
	})

	return artifacts, firstErr
}

// stringField returns table[name] when it is a string, otherwise "".
func stringField(table *lua.LTable, name string) string {
	if v := table.RawGetString(name); v.Type() == lua.LTString {
		return strings.TrimSpace(v.String())
	}
	return ""
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	if parseErr, ok := err.(*ParseError); ok {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
