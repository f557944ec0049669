// Package registry holds the modules available to a link: the package's own
// sources plus external bundles. It maps module paths such as
// package::lib::util to source text and parses each module lazily, at most
// once, even when queried concurrently.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/weslink/pkg/ast"
	"github.com/leapstack-labs/weslink/pkg/core"
	"github.com/leapstack-labs/weslink/pkg/grammar"
	"github.com/leapstack-labs/weslink/pkg/modpath"
	"github.com/leapstack-labs/weslink/pkg/srcmap"
)

// DefaultPackage is the package name of the sources being linked.
const DefaultPackage = modpath.Package

// LibModule is the bundle module addressable by the bundle name alone.
const LibModule = "lib"

// Lookup finds modules by path. *Registry implements it; the linker layers
// virtual modules on top with Overlay.
type Lookup interface {
	GetModule(path string) (*Module, error)
	HasModule(path string) bool
	PackageName() string
}

// Source is the raw input for one module.
type Source struct {
	// Text is the module source, after any preprocessing.
	Text string
	// File is the key the source was supplied under, used in diagnostics.
	File string
	// Dialect selects the grammar used to parse Text.
	Dialect grammar.Dialect
	// Map describes how Text was derived from the original file, when a
	// preprocessing pass rewrote it. Nil means Text is the original.
	Map *srcmap.SourceMap
}

// Bundle is an external, named collection of modules.
type Bundle struct {
	Name    string
	Edition string
	// Modules maps relative file paths to source text.
	Modules map[string]string
	// Dialect of every module in the bundle.
	Dialect      grammar.Dialect
	Dependencies []*Bundle
}

// Registry maps module paths to sources and parsed modules.
type Registry struct {
	mu sync.RWMutex

	// sources maps module paths to their raw input: "package::lib::util" → Source
	sources map[string]Source

	// parsed caches completed parses: "package::lib::util" → *Module
	parsed map[string]*Module

	// failed caches parse errors so every caller sees the same failure
	failed map[string]error

	// bundles maps bundle names to bundles: "noise" → *Bundle
	bundles map[string]*Bundle

	// aliases maps short paths to module paths: "noise" → "noise::lib"
	aliases map[string]string

	group   singleflight.Group
	parses  atomic.Int64
	pkg     string
	dialect grammar.Dialect
	logger  *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDialect sets the dialect of sources supplied to New.
func WithDialect(d grammar.Dialect) Option {
	return func(r *Registry) { r.dialect = d }
}

// WithPackageName sets the name substituted for package:: in the
// registry's own sources.
func WithPackageName(name string) Option {
	return func(r *Registry) {
		if name != "" {
			r.pkg = name
		}
	}
}

// New creates a registry over sources, keyed by file path relative to the
// package root ("lib/util.wesl") or by module path ("package::lib::util").
func New(sources map[string]string, opts ...Option) *Registry {
	r := &Registry{
		sources: make(map[string]Source),
		parsed:  make(map[string]*Module),
		failed:  make(map[string]error),
		bundles: make(map[string]*Bundle),
		aliases: make(map[string]string),
		pkg:     DefaultPackage,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	for key, text := range sources {
		r.AddSource(key, Source{Text: text, File: key, Dialect: r.dialect})
	}
	return r
}

// PackageName returns the name of the registry's own package.
func (r *Registry) PackageName() string {
	return r.pkg
}

// ModulePath converts a source key into a module path in package pkg.
func ModulePath(pkg, key string) string {
	if strings.Contains(key, modpath.Sep) {
		return key
	}
	return modpath.Join(append([]string{pkg}, modpath.FromFile(key)...)...)
}

// AddSource registers one module of the registry's own package and returns
// its module path. A later source for the same path replaces the earlier
// one and drops its cached parse.
func (r *Registry) AddSource(key string, src Source) string {
	path := ModulePath(r.pkg, key)
	if src.File == "" {
		src.File = key
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[path] = src
	delete(r.parsed, path)
	delete(r.failed, path)
	return path
}

// AddBundle registers a bundle and, recursively, its dependencies.
// Registering a bundle name twice is an error unless it is the same bundle.
func (r *Registry) AddBundle(b *Bundle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addBundle(b)
}

func (r *Registry) addBundle(b *Bundle) error {
	if b.Name == "" {
		return fmt.Errorf("bundle without a name")
	}
	if b.Name == r.pkg {
		return fmt.Errorf("bundle %q collides with the package name", b.Name)
	}
	if prev, ok := r.bundles[b.Name]; ok {
		if prev == b {
			return nil
		}
		return fmt.Errorf("bundle %q registered twice", b.Name)
	}
	r.bundles[b.Name] = b

	for key, text := range b.Modules {
		path := ModulePath(b.Name, key)
		r.sources[path] = Source{Text: text, File: b.Name + "/" + key, Dialect: b.Dialect}
		if path == modpath.Join(b.Name, LibModule) {
			r.aliases[b.Name] = path
		}
	}
	r.logger.Debug("registered bundle",
		slog.String("bundle", b.Name),
		slog.String("edition", b.Edition),
		slog.Int("modules", len(b.Modules)))

	for _, dep := range b.Dependencies {
		if err := r.addBundle(dep); err != nil {
			return fmt.Errorf("bundle %s: %w", b.Name, err)
		}
	}
	return nil
}

// Bundles returns the registered bundle names, sorted.
func (r *Registry) Bundles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.bundles))
	for name := range r.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) canonical(path string) string {
	if alias, ok := r.aliases[path]; ok {
		return alias
	}
	return path
}

// HasModule reports whether a module path exists, without parsing it.
func (r *Registry) HasModule(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sources[r.canonical(path)]
	return ok
}

// Source returns the raw input registered at path.
func (r *Registry) Source(path string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[r.canonical(path)]
	return src, ok
}

// GetModule returns the parsed module at path, parsing it on first use.
// Each path is parsed at most once; concurrent callers share the result.
func (r *Registry) GetModule(path string) (*Module, error) {
	r.mu.RLock()
	path = r.canonical(path)
	if m, ok := r.parsed[path]; ok {
		r.mu.RUnlock()
		return m, nil
	}
	if err, ok := r.failed[path]; ok {
		r.mu.RUnlock()
		return nil, err
	}
	src, ok := r.sources[path]
	r.mu.RUnlock()
	if !ok {
		return nil, &core.Error{Kind: core.KindModuleNotFound, Module: path, Message: "no source or bundle module at this path"}
	}

	v, err, _ := r.group.Do(path, func() (any, error) {
		r.mu.RLock()
		m, done := r.parsed[path]
		prev, failed := r.failed[path]
		r.mu.RUnlock()
		if done {
			return m, nil
		}
		if failed {
			return nil, prev
		}

		m, err := r.parse(path, src)

		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			r.failed[path] = err
			return nil, err
		}
		r.parsed[path] = m
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Module), nil
}

func (r *Registry) parse(path string, src Source) (*Module, error) {
	r.parses.Add(1)
	tree, err := grammar.Parse(src.Text, path, grammar.Options{Dialect: src.Dialect, Logger: r.logger})
	if err != nil {
		r.logger.Debug("parse failed", slog.String("module", path), slog.String("error", err.Error()))
		return nil, err
	}
	return newModule(path, src, tree), nil
}

// Parses returns how many parses the registry has performed.
func (r *Registry) Parses() int64 {
	return r.parses.Load()
}

// Paths returns every module path, sorted.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.sources))
	for p := range r.sources {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// AllModules parses every module, concurrently, and returns them sorted by
// path. The first parse error is returned.
func (r *Registry) AllModules() ([]*Module, error) {
	paths := r.Paths()
	mods := make([]*Module, len(paths))

	var g errgroup.Group
	g.SetLimit(8)
	for i, p := range paths {
		g.Go(func() error {
			m, err := r.GetModule(p)
			if err != nil {
				return err
			}
			mods[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mods, nil
}

// Module is a parsed module with its declaration and export tables.
type Module struct {
	// Path is the module path: "package::lib::util"
	Path string
	// File is the key the source was supplied under.
	File string
	// Package is the first path segment, the package or bundle name.
	Package string
	AST     *ast.Module
	// Map describes preprocessing of the source, nil when none happened.
	Map *srcmap.SourceMap

	// decls maps names to declarations in source order; a name may carry
	// several @if variants
	decls map[string][]ast.Decl

	// exports maps exported names to their declarations
	exports map[string][]ast.Decl
}

// NewModule wraps an already parsed tree, for virtual modules.
func NewModule(path string, tree *ast.Module) *Module {
	return newModule(path, Source{Text: tree.Src, File: path}, tree)
}

func newModule(path string, src Source, tree *ast.Module) *Module {
	m := &Module{
		Path:    path,
		File:    src.File,
		Package: modpath.Root(path),
		AST:     tree,
		Map:     src.Map,
		decls:   make(map[string][]ast.Decl),
		exports: make(map[string][]ast.Decl),
	}
	legacy := src.Dialect == grammar.Legacy
	for _, d := range tree.Decls {
		name := d.DeclName()
		if name == "" {
			continue
		}
		m.decls[name] = append(m.decls[name], d)
		if !legacy || ast.IsExported(d) {
			m.exports[name] = append(m.exports[name], d)
		}
	}
	return m
}

// Decls returns the declarations called name, in source order.
func (m *Module) Decls(name string) []ast.Decl {
	return m.decls[name]
}

// Exported reports whether the module exports name.
func (m *Module) Exported(name string) bool {
	return len(m.exports[name]) > 0
}

// Exports returns the export table.
func (m *Module) Exports() map[string][]ast.Decl {
	return m.exports
}

// ExportNames returns the exported names, sorted.
func (m *Module) ExportNames() []string {
	names := make([]string, 0, len(m.exports))
	for n := range m.exports {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Overlay layers extra modules over a base lookup.
func Overlay(base Lookup, extra ...*Module) Lookup {
	o := &overlay{base: base, mods: make(map[string]*Module, len(extra))}
	for _, m := range extra {
		o.mods[m.Path] = m
	}
	return o
}

type overlay struct {
	base Lookup
	mods map[string]*Module
}

func (o *overlay) GetModule(path string) (*Module, error) {
	if m, ok := o.mods[path]; ok {
		return m, nil
	}
	return o.base.GetModule(path)
}

func (o *overlay) HasModule(path string) bool {
	if _, ok := o.mods[path]; ok {
		return true
	}
	return o.base.HasModule(path)
}

func (o *overlay) PackageName() string {
	return o.base.PackageName()
}
