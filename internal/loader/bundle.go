package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/weslink/pkg/grammar"
	"github.com/leapstack-labs/weslink/pkg/preprocess"
	"github.com/leapstack-labs/weslink/pkg/registry"
)

// ManifestName is the conventional bundle manifest file name.
const ManifestName = "bundle.yaml"

// Manifest is the on-disk description of a bundle.
// Unknown fields cause parse errors.
type Manifest struct {
	Name    string `yaml:"name"`
	Edition string `yaml:"edition"`
	Dialect string `yaml:"dialect"`
	// Sources is the module directory relative to the manifest, default ".".
	Sources string `yaml:"sources"`
	// Modules holds inline modules keyed by file path, merged over Sources.
	Modules map[string]string `yaml:"modules"`
	// Dependencies are paths of other bundle manifests.
	Dependencies []string `yaml:"dependencies"`
}

// ParseManifest decodes a bundle manifest.
func ParseManifest(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty bundle manifest")
		}
		return nil, fmt.Errorf("invalid bundle manifest: %w", err)
	}
	if strings.TrimSpace(m.Name) == "" {
		return nil, errors.New("bundle manifest has no name")
	}
	return &m, nil
}

// bundleLoader loads manifests depth first. Each manifest yields one
// *registry.Bundle however often it is depended on.
type bundleLoader struct {
	ctx    context.Context
	opts   Options
	loaded map[string]*registry.Bundle
	// active holds manifests on the current dependency path
	active map[string]bool
}

// LoadBundle loads the manifest at path and, recursively, its dependencies.
// A dependency cycle is an error.
func LoadBundle(ctx context.Context, path string, opts Options) (*registry.Bundle, error) {
	bl := &bundleLoader{
		ctx:    ctx,
		opts:   opts,
		loaded: make(map[string]*registry.Bundle),
		active: make(map[string]bool),
	}
	return bl.load(path)
}

// LoadBundles loads several manifests, sharing bundles they have in common.
func LoadBundles(ctx context.Context, paths []string, opts Options) ([]*registry.Bundle, error) {
	bl := &bundleLoader{
		ctx:    ctx,
		opts:   opts,
		loaded: make(map[string]*registry.Bundle),
		active: make(map[string]bool),
	}
	bundles := make([]*registry.Bundle, 0, len(paths))
	for _, p := range paths {
		b, err := bl.load(p)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	return bundles, nil
}

func (bl *bundleLoader) load(path string) (*registry.Bundle, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		abs = filepath.Join(abs, ManifestName)
	}
	if b, ok := bl.loaded[abs]; ok {
		return b, nil
	}
	if bl.active[abs] {
		return nil, fmt.Errorf("bundle dependency cycle at %s", abs)
	}
	bl.active[abs] = true
	defer delete(bl.active, abs)

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle manifest: %w", err)
	}
	m, err := ParseManifest(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}
	dialect, err := grammar.ParseDialect(m.Dialect)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}

	dir := filepath.Dir(abs)
	modules := make(map[string]string)
	if m.Sources != "" || len(m.Modules) == 0 {
		texts, err := LoadSources(bl.ctx, filepath.Join(dir, m.Sources))
		if err != nil {
			return nil, fmt.Errorf("bundle %s: %w", m.Name, err)
		}
		modules = texts
	}
	for key, text := range m.Modules {
		modules[key] = text
	}
	for key, text := range modules {
		if !preprocess.HasDirectives(text) {
			continue
		}
		// bundle sources carry no source map; positions refer to the
		// preprocessed text
		processed, _, err := preprocess.Process(text, m.Name+"/"+key, bl.opts.Conditions)
		if err != nil {
			return nil, fmt.Errorf("bundle %s: %s: %w", m.Name, key, err)
		}
		modules[key] = processed
	}

	b := &registry.Bundle{
		Name:    m.Name,
		Edition: m.Edition,
		Modules: modules,
		Dialect: dialect,
	}
	for _, dep := range m.Dependencies {
		depPath := dep
		if !filepath.IsAbs(depPath) {
			depPath = filepath.Join(dir, depPath)
		}
		db, err := bl.load(depPath)
		if err != nil {
			return nil, fmt.Errorf("bundle %s: %w", m.Name, err)
		}
		b.Dependencies = append(b.Dependencies, db)
	}
	bl.loaded[abs] = b

	bl.opts.logger().Debug("loaded bundle",
		slog.String("name", b.Name),
		slog.String("manifest", abs),
		slog.Int("modules", len(b.Modules)),
		slog.Int("dependencies", len(b.Dependencies)))
	return b, nil
}
