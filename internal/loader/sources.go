// Package loader reads shader packages and bundle manifests from disk.
package loader

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/weslink/pkg/grammar"
	"github.com/leapstack-labs/weslink/pkg/preprocess"
	"github.com/leapstack-labs/weslink/pkg/registry"
)

// Extensions are the file extensions treated as shader modules.
var Extensions = []string{".wesl", ".wgsl"}

// maxOpenFiles bounds concurrent reads.
const maxOpenFiles = 16

// Options configure loading.
type Options struct {
	Dialect grammar.Dialect
	// Conditions drive the #if line preprocessor.
	Conditions map[string]bool
	Logger     *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// IsSource reports whether path names a shader module.
func IsSource(path string) bool {
	return slices.Contains(Extensions, filepath.Ext(path))
}

// LoadSources reads every shader module under dir. Keys are slash-separated
// paths relative to dir ("lib/util.wesl"). Hidden directories are skipped.
func LoadSources(ctx context.Context, dir string) (map[string]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && len(d.Name()) > 1 && d.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}
		if IsSource(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	sort.Strings(files)

	var (
		mu      sync.Mutex
		sources = make(map[string]string, len(files))
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxOpenFiles)
	for _, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			mu.Lock()
			sources[filepath.ToSlash(rel)] = string(data)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

// Prepare turns raw texts into registry sources, running the #if line
// preprocessor over texts that use it. The preprocessor's source map is
// kept so linked output points at the original lines.
func Prepare(texts map[string]string, opts Options) (map[string]registry.Source, error) {
	logger := opts.logger()
	out := make(map[string]registry.Source, len(texts))
	for key, text := range texts {
		src := registry.Source{Text: text, File: key, Dialect: opts.Dialect}
		if preprocess.HasDirectives(text) {
			processed, m, err := preprocess.Process(text, key, opts.Conditions)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			src.Text, src.Map = processed, m
			logger.Debug("preprocessed", slog.String("file", key), slog.Int("bytes", len(processed)))
		}
		out[key] = src
	}
	return out, nil
}

// LoadPackage loads dir into a new registry named pkg.
func LoadPackage(ctx context.Context, dir, pkg string, opts Options) (*registry.Registry, error) {
	texts, err := LoadSources(ctx, dir)
	if err != nil {
		return nil, err
	}
	sources, err := Prepare(texts, opts)
	if err != nil {
		return nil, err
	}
	r := registry.New(nil,
		registry.WithLogger(opts.Logger),
		registry.WithDialect(opts.Dialect),
		registry.WithPackageName(pkg))
	for key, src := range sources {
		r.AddSource(key, src)
	}
	opts.logger().Debug("loaded package",
		slog.String("dir", dir),
		slog.String("package", r.PackageName()),
		slog.Int("modules", len(sources)))
	return r, nil
}
