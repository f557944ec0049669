package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/weslink/internal/config"
)

// ConfigField describes one key of weslink.yaml.
type ConfigField struct {
	Name        string
	Type        string
	Default     string
	Flag        string
	Description string
}

// configSchema lists the keys of config.Config in file order.
func configSchema() []ConfigField {
	return []ConfigField{
		{Name: "root", Type: "string", Default: config.DefaultRoot, Flag: "--root", Description: "Root module, as a source file or a module path"},
		{Name: "sources_dir", Type: "string", Default: config.DefaultSourcesDir, Flag: "--sources-dir", Description: "Directory holding the package's .wesl and .wgsl files"},
		{Name: "package_name", Type: "string", Default: config.DefaultPackageName, Flag: "--package-name", Description: "Name that replaces package:: for this project's modules"},
		{Name: "dialect", Type: "string", Default: config.DefaultDialect, Flag: "--dialect", Description: "Source dialect: modern or legacy"},
		{Name: "conditions", Type: "map[string]bool", Flag: "--condition", Description: "Values of @if conditions"},
		{Name: "constants", Type: "map[string]any", Flag: "--constant", Description: "Values exposed as constants::NAME"},
		{Name: "entry_points", Type: "[]string", Flag: "--entry-point", Description: "Extra root declarations kept in the output"},
		{Name: "bundles", Type: "[]string", Flag: "--bundle", Description: "bundle.yaml manifests of library dependencies"},
		{Name: "output", Type: "string", Flag: "--output", Description: "Linked WGSL file; empty writes to stdout"},
		{Name: "sourcemap", Type: "string", Flag: "--sourcemap", Description: "JSON source map file; empty skips it"},
		{Name: "binding_structs", Type: "bool", Default: "false", Flag: "--binding-structs", Description: "Lower binding structs to global bindings"},
		{Name: "cache", Type: "bool", Default: "false", Flag: "--cache", Description: "Reuse link output for unchanged inputs and record runs"},
		{Name: "state_path", Type: "string", Default: config.DefaultStateFile, Flag: "--state", Description: "Path to the link state database"},
		{Name: "format", Type: "string", Default: config.DefaultFormat, Flag: "--format", Description: "Report format: " + strings.Join(config.Formats, ", ")},
		{Name: "verbose", Type: "bool", Default: "false", Flag: "--verbose", Description: "Debug logging on stderr"},
	}
}

// generateConfigDocs writes configuration.md to outDir.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating configuration docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "weslink configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("weslink reads %s from the working directory or the nearest parent "+
		"directory that has one. Values are layered: defaults, then the file, then %s environment "+
		"variables, then command-line flags. Unknown keys are an error.",
		InlineCode(config.FileNames[0]), InlineCode(config.EnvPrefix+"*")))

	w.Header(2, "Keys")
	var rows [][]string
	for _, f := range configSchema() {
		def := "-"
		if f.Default != "" {
			def = InlineCode(f.Default)
		}
		rows = append(rows, []string{InlineCode(f.Name), f.Type, def, InlineCode(f.Flag), f.Description})
	}
	w.Table([]string{"Key", "Type", "Default", "Flag", "Description"}, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `# weslink.yaml
root: main.wesl
sources_dir: shaders
conditions:
  mobile: false
  shadows: true
constants:
  workgroup_size: 64u
bundles:
  - libs/noise/bundle.yaml
output: dist/main.wgsl
sourcemap: dist/main.map.json`)

	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600)
}
