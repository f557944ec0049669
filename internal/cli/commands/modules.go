package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/weslink/internal/cli/output"
)

// NewModulesCommand creates the modules command.
func NewModulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "modules",
		Aliases: []string{"ls"},
		Short:   "List the modules of the package and its bundles",
		Long: `List every module visible to the linker with its source file and its
import, declaration and export counts, and the modules it uses and is
used by. Import cycles are reported as a warning.`,
		Example: `  weslink modules
  weslink modules --format json`,
		Args: cobra.NoArgs,
		RunE: runModules,
	}
}

func runModules(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	p, err := loadProject(cmd.Context(), cc)
	if err != nil {
		return err
	}
	mods, err := p.reg.AllModules()
	if err != nil {
		return p.withContext(err)
	}
	g, err := p.graph(cc)
	if err != nil {
		return err
	}

	infos := make([]output.ModuleInfo, 0, len(mods))
	for _, m := range mods {
		info := output.ModuleInfo{
			Path:    m.Path,
			File:    m.File,
			Imports: len(m.AST.Imports),
			Decls:   len(m.AST.Decls),
			Exports: len(m.ExportNames()),
			Uses:    nonNil(g.Dependencies(m.Path)),
			UsedBy:  nonNil(g.Dependents(m.Path)),
		}
		if m.Package != p.reg.PackageName() {
			info.Bundle = m.Package
		}
		infos = append(infos, info)
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}
	if cycle := g.FindCycle(); cycle != nil {
		r.Warn("import cycle: " + strings.Join(cycle, " -> "))
	}
	r.Header(1, fmt.Sprintf("Modules (%d total)", len(infos)))
	rows := make([][]string, 0, len(infos))
	for _, m := range infos {
		rows = append(rows, []string{
			m.Path, m.File, m.Bundle,
			strconv.Itoa(m.Imports), strconv.Itoa(m.Decls), strconv.Itoa(m.Exports),
			strings.Join(m.Uses, ", "), strings.Join(m.UsedBy, ", "),
		})
	}
	r.Table([]string{"Module", "File", "Bundle", "Imports", "Decls", "Exports", "Uses", "Used by"}, rows)
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
