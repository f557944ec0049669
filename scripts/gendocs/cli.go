package main

import (
	"cmp"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/weslink/internal/cli"
	"github.com/leapstack-labs/weslink/internal/config"
)

// generateCLIDocs generates CLI documentation from Cobra commands.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	rootCmd := cli.NewRootCmd()

	if err := generateCLIIndex(rootCmd, outDir); err != nil {
		return fmt.Errorf("failed to generate index: %w", err)
	}
	log.Printf("  Generated index.md")

	// Generate page for each command
	for _, cmd := range rootCmd.Commands() {
		if cmd.Hidden || cmd.Name() == "help" || cmd.Name() == "__complete" {
			continue
		}
		if err := generateCommandPage(cmd, outDir); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", cmd.Name(), err)
		}
		log.Printf("  Generated %s.md", cmd.Name())
	}

	return nil
}

// generateCLIIndex generates the CLI overview page.
func generateCLIIndex(rootCmd *cobra.Command, outDir string) error {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for weslink")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(rootCmd.Long)

	w.Header(2, "Installation")
	w.CodeBlock("bash", "go install github.com/leapstack-labs/weslink/cmd/weslink@latest")

	w.Header(2, "Basic Usage")
	w.CodeBlock("bash", "weslink <command> [options]")

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range rootCmd.Commands() {
		if cmd.Hidden || cmd.Name() == "help" || cmd.Name() == "__complete" {
			continue
		}
		link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name())
		rows = append(rows, []string{link, cleanDescription(cmd.Short)})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	w.Paragraph("These flags are available for all commands:")
	writeFlagsTable(w, rootCmd.PersistentFlags(), flagKeys())

	w.Header(2, "Environment Variables")
	w.Paragraph(fmt.Sprintf("Every configuration key can be set through an environment variable: "+
		"the key in upper case with the %s prefix.", InlineCode(config.EnvPrefix)))
	var envRows [][]string
	for _, f := range configSchema() {
		envRows = append(envRows, []string{InlineCode(config.EnvPrefix + strings.ToUpper(f.Name)), f.Description})
	}
	w.Table([]string{"Variable", "Description"}, envRows)
	w.Paragraph("Command-line flags take precedence over environment variables.")

	w.Header(2, "Exit Codes")
	w.Table([]string{"Code", "Meaning"}, [][]string{
		{InlineCode("0"), "Success"},
		{InlineCode("1"), "Error (check stderr for details)"},
	})

	w.Header(2, "Getting Help")
	w.CodeBlock("bash", `# General help
weslink help
weslink --help

# Command-specific help
weslink link --help`)

	return os.WriteFile(filepath.Join(outDir, "index.md"), w.Bytes(), 0600)
}

// generateCommandPage writes <name>.md for one command.
func generateCommandPage(cmd *cobra.Command, outDir string) error {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	w.Paragraph(cmp.Or(cmd.Long, cmd.Short))

	w.Header(2, "Usage")
	use := cmd.UseLine()
	if !strings.HasPrefix(use, "weslink") {
		use = "weslink " + use
	}
	w.CodeBlock("bash", use)

	if len(cmd.Aliases) > 0 {
		aliases := make([]string, len(cmd.Aliases))
		for i, a := range cmd.Aliases {
			aliases[i] = InlineCode("weslink " + a)
		}
		w.Header(2, "Aliases")
		w.BulletList(aliases)
	}

	keys := flagKeys()
	if cmd.LocalNonPersistentFlags().HasFlags() {
		w.Header(2, "Options")
		writeFlagsTable(w, cmd.LocalNonPersistentFlags(), keys)
	}
	if cmd.HasInheritedFlags() {
		w.Header(2, "Global Options")
		writeFlagsTable(w, cmd.InheritedFlags(), keys)
	}
	if configured(cmd, keys) {
		w.Paragraph(fmt.Sprintf("Flags with a config key can also be set in %s; see [Configuration](/configuration).",
			InlineCode(config.FileNames[0])))
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", dedent(cmd.Example))
	}

	return os.WriteFile(filepath.Join(outDir, cmd.Name()+".md"), w.Bytes(), 0600)
}

// flagKeys maps a flag name to the weslink.yaml key it overrides.
func flagKeys() map[string]ConfigField {
	keys := make(map[string]ConfigField)
	for _, f := range configSchema() {
		if f.Flag != "" {
			keys[strings.TrimPrefix(f.Flag, "--")] = f
		}
	}
	return keys
}

func configured(cmd *cobra.Command, keys map[string]ConfigField) bool {
	found := false
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if _, ok := keys[f.Name]; ok {
			found = true
		}
	})
	return found
}

// writeFlagsTable writes one row per visible flag, cross-linked to its
// config key and environment variable when it has one.
func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet, keys map[string]ConfigField) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		option := InlineCode("--" + f.Name)
		if f.Shorthand != "" {
			option = InlineCode("-"+f.Shorthand) + ", " + option
		}
		var def string
		if f.DefValue != "" && f.DefValue != "[]" {
			def = InlineCode(f.DefValue)
		}
		var key, env string
		if cf, ok := keys[f.Name]; ok {
			key = InlineCode(cf.Name)
			env = InlineCode(config.EnvPrefix + strings.ToUpper(cf.Name))
		}
		rows = append(rows, []string{option, def, key, env, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Flag", "Default", "Config key", "Environment", "Description"}, rows)
}

// dedent strips the indentation cobra examples share and trims blank edges.
func dedent(example string) string {
	lines := strings.Split(strings.Trim(example, "\n"), "\n")
	prefix, seen := "", false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !seen || len(indent) < len(prefix) {
			prefix, seen = indent, true
		}
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Join(lines, "\n")
}
