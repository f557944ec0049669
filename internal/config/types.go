// Package config loads weslink project configuration.
//
// Values are layered with koanf: built-in defaults, then weslink.yaml,
// then WESLINK_* environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/leapstack-labs/weslink/pkg/grammar"
)

// Config holds all project and CLI configuration options.
type Config struct {
	// Root is the root module, as a source key ("main.wesl") or a module
	// path ("package::main").
	Root string `koanf:"root"`

	// SourcesDir holds the package's .wesl and .wgsl files.
	SourcesDir string `koanf:"sources_dir"`

	// PackageName replaces package:: for this project's modules.
	PackageName string `koanf:"package_name"`

	// Dialect is "modern" or "legacy".
	Dialect string `koanf:"dialect"`

	Conditions  map[string]bool `koanf:"conditions"`
	Constants   map[string]any  `koanf:"constants"`
	EntryPoints []string        `koanf:"entry_points"`

	// Bundles lists bundle.yaml manifests of library dependencies.
	Bundles []string `koanf:"bundles"`

	// Output is the linked shader file; empty writes to stdout.
	Output string `koanf:"output"`

	// SourceMap is the JSON source map file; empty skips it.
	SourceMap string `koanf:"sourcemap"`

	StatePath      string `koanf:"state_path"`
	BindingStructs bool   `koanf:"binding_structs"`
	Cache          bool   `koanf:"cache"`
	Verbose        bool   `koanf:"verbose"`

	// Format selects report rendering: auto, text, markdown or json.
	Format string `koanf:"format"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultRoot        = "main.wesl"
	DefaultSourcesDir  = "shaders"
	DefaultPackageName = "package"
	DefaultDialect     = "modern"
	DefaultStateFile   = ".weslink/state.db"
	DefaultFormat      = "auto"
)

// Formats lists the accepted values of Config.Format.
var Formats = []string{"auto", "text", "markdown", "json"}

// Validate checks option values that decoding cannot check.
func (c *Config) Validate() error {
	var errs []error
	if c.Root == "" {
		errs = append(errs, errors.New("root is required"))
	}
	if c.SourcesDir == "" {
		errs = append(errs, errors.New("sources_dir is required"))
	}
	if _, err := grammar.ParseDialect(c.Dialect); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(Formats, c.Format) {
		errs = append(errs, fmt.Errorf("unknown format %q (want one of %v)", c.Format, Formats))
	}
	return errors.Join(errs...)
}

// GrammarDialect returns the parsed dialect. Validate reports bad names.
func (c *Config) GrammarDialect() grammar.Dialect {
	d, _ := grammar.ParseDialect(c.Dialect)
	return d
}
