package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/weslink/internal/loader"
	"github.com/leapstack-labs/weslink/internal/modgraph"
	"github.com/leapstack-labs/weslink/internal/state"
	"github.com/leapstack-labs/weslink/pkg/core"
	"github.com/leapstack-labs/weslink/pkg/link"
	"github.com/leapstack-labs/weslink/pkg/registry"
	"github.com/leapstack-labs/weslink/pkg/scope"
	"github.com/leapstack-labs/weslink/pkg/token"
)

// project is a loaded package plus its bundles.
type project struct {
	reg *registry.Registry
	// texts are the package sources before preprocessing, keyed by file
	texts   map[string]string
	bundles []*registry.Bundle
}

func loadProject(ctx context.Context, cc *CommandContext) (*project, error) {
	cfg := cc.Cfg
	opts := loader.Options{
		Dialect:    cfg.GrammarDialect(),
		Conditions: cfg.Conditions,
		Logger:     cc.Logger,
	}

	texts, err := loader.LoadSources(ctx, cfg.SourcesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}
	sources, err := loader.Prepare(texts, opts)
	if err != nil {
		return nil, err
	}
	reg := registry.New(nil,
		registry.WithLogger(cc.Logger),
		registry.WithDialect(opts.Dialect),
		registry.WithPackageName(cfg.PackageName))
	for key, src := range sources {
		reg.AddSource(key, src)
	}

	bundles, err := loader.LoadBundles(ctx, cfg.Bundles, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load bundles: %w", err)
	}
	for _, b := range bundles {
		if err := reg.AddBundle(b); err != nil {
			return nil, err
		}
	}
	return &project{reg: reg, texts: texts, bundles: bundles}, nil
}

// lookup is the registry as the linker sees it, with the configured
// constants module layered on top.
func (p *project) lookup(cc *CommandContext) (registry.Lookup, error) {
	return link.WithConstants(p.reg, cc.Cfg.Constants)
}

// graph analyzes every module and returns their dependency graph.
func (p *project) graph(cc *CommandContext) (*modgraph.Graph, error) {
	l, err := p.lookup(cc)
	if err != nil {
		return nil, err
	}
	g, err := modgraph.Build(scope.NewAnalyzer(l, cc.Logger), p.reg.Paths())
	if err != nil {
		return nil, p.withContext(err)
	}
	return g, nil
}

// linkOptions maps configuration onto linker options.
func linkOptions(cc *CommandContext) link.Options {
	cfg := cc.Cfg
	return link.Options{
		Root:           cfg.Root,
		Conditions:     cfg.Conditions,
		Constants:      cfg.Constants,
		EntryPoints:    cfg.EntryPoints,
		BindingStructs: cfg.BindingStructs,
		Logger:         cc.Logger,
	}
}

// inputHash fingerprints every input of a link: package and bundle sources
// and the options that change the output.
func (p *project) inputHash(cc *CommandContext) (string, error) {
	all := make(map[string]string, len(p.texts))
	for k, v := range p.texts {
		all["package/"+k] = v
	}
	seen := make(map[*registry.Bundle]bool)
	var addBundle func(b *registry.Bundle)
	addBundle = func(b *registry.Bundle) {
		if seen[b] {
			return
		}
		seen[b] = true
		for k, v := range b.Modules {
			all["bundle/"+b.Name+"/"+k] = v
		}
		for _, dep := range b.Dependencies {
			addBundle(dep)
		}
	}
	for _, b := range p.bundles {
		addBundle(b)
	}

	cfg := cc.Cfg
	return state.InputHash(all, struct {
		Root           string
		PackageName    string
		Dialect        string
		Conditions     map[string]bool
		Constants      map[string]any
		EntryPoints    []string
		BindingStructs bool
	}{cfg.Root, cfg.PackageName, cfg.Dialect, cfg.Conditions, cfg.Constants, cfg.EntryPoints, cfg.BindingStructs})
}

// contextError is a linker error rendered with its source line.
type contextError struct {
	err  error
	text string
}

func (e *contextError) Error() string { return e.text }
func (e *contextError) Unwrap() error { return e.err }

// withContext attaches the offending source line to located errors.
func (p *project) withContext(err error) error {
	e, ok := core.AsError(err)
	if !ok || !e.HasSpan || e.Module == "" {
		return err
	}
	src, ok := p.reg.Source(e.Module)
	if !ok {
		return err
	}
	return &contextError{err: err, text: strings.TrimRight(e.FormatWithContext(src.Text), "\n")}
}

// position returns the line and column of a located error, or zeros.
func (p *project) position(e *core.Error) (line, col int) {
	if !e.HasSpan || e.Module == "" {
		return 0, 0
	}
	src, ok := p.reg.Source(e.Module)
	if !ok {
		return 0, 0
	}
	pos := token.PositionAt(src.Text, e.Span.Start)
	return pos.Line, pos.Column
}

var errCheckFailed = errors.New("check failed")
