package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/weslink/pkg/ast"
	"github.com/leapstack-labs/weslink/pkg/modpath"
	"github.com/leapstack-labs/weslink/pkg/registry"
	"github.com/leapstack-labs/weslink/pkg/token"
)

// NewASTCommand creates the ast command.
func NewASTCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ast <module>",
		Short: "Print a module's syntax tree as JSON",
		Long: `Parse one module and print its syntax tree as JSON. The module is named
by file ("lib/util.wesl") or by module path ("package::lib::util").`,
		Example: `  weslink ast main.wesl
  weslink ast noise::perlin`,
		Args: cobra.ExactArgs(1),
		RunE: runAST,
	}
}

type astDump struct {
	Path       string            `json:"path"`
	File       string            `json:"file"`
	Directives []*ast.Directive  `json:"directives"`
	Imports    []*ast.ImportStmt `json:"imports"`
	Decls      []declDump        `json:"decls"`
}

type declDump struct {
	Kind ast.NodeKind `json:"kind"`
	Name string       `json:"name,omitempty"`
	Span token.Span   `json:"span"`
	Node ast.Decl     `json:"node"`
}

func runAST(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	p, err := loadProject(cmd.Context(), cc)
	if err != nil {
		return err
	}
	m, err := p.reg.GetModule(resolveRoot(p, args[0]))
	if err != nil {
		return p.withContext(err)
	}

	dump := astDump{
		Path:       m.Path,
		File:       m.File,
		Directives: m.AST.Directives,
		Imports:    m.AST.Imports,
		Decls:      make([]declDump, 0, len(m.AST.Decls)),
	}
	for _, d := range m.AST.Decls {
		dump.Decls = append(dump.Decls, declDump{
			Kind: d.Kind(),
			Name: d.DeclName(),
			Span: d.GetSpan(),
			Node: d,
		})
	}
	return cc.Renderer.JSON(dump)
}

// resolveRoot turns a source key into a module path of the project package.
func resolveRoot(p *project, name string) string {
	if strings.Contains(name, modpath.Sep) {
		return name
	}
	return registry.ModulePath(p.reg.PackageName(), name)
}
