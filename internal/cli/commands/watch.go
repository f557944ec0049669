package commands

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/weslink/internal/loader"
	"github.com/leapstack-labs/weslink/internal/modgraph"
	"github.com/leapstack-labs/weslink/pkg/registry"
)

// debounceDelay groups bursts of file events into one relink.
const debounceDelay = 100 * time.Millisecond

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [root]",
		Short: "Relink whenever a source file changes",
		Long: `Link once, then watch the sources directory and every bundle directory
and relink after each change. Changes to modules the root does not depend
on are skipped. Errors are reported and watching continues.`,
		Example: `  weslink watch -o out/main.wgsl --sourcemap out/main.map.json`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runWatch,
	}
	AddLinkFlags(cmd)
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cc.Cfg.Root = args[0]
	}
	if cc.Cfg.Output == "" {
		return fmt.Errorf("watch needs --output")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var linked *linkScope
	relink := func() {
		res, p, err := linkProject(ctx, cc)
		if err != nil {
			linked = nil
			cc.Renderer.Error(err.Error())
			return
		}
		if linked, err = newLinkScope(cc, p); err != nil {
			cc.Logger.Warn("dependency graph unavailable", slog.String("error", err.Error()))
		}
		if err := renderLink(cc, res); err != nil {
			cc.Logger.Error("render failed", slog.String("error", err.Error()))
		}
	}
	relink()

	dirs := []string{cc.Cfg.SourcesDir}
	for _, b := range cc.Cfg.Bundles {
		dirs = append(dirs, bundleDir(b))
	}
	r := cc.Renderer
	r.Println(r.Styles().Muted.Render("watching for changes, press Ctrl+C to stop"))
	return watch(ctx, dirs, cc.Logger, func(files []string) {
		if !linked.affects(files) {
			cc.Logger.Debug("changes outside the root's modules", slog.Any("files", files))
			return
		}
		relink()
	})
}

// linkScope is the set of modules the last successful link depended on.
type linkScope struct {
	dir   string
	pkg   string
	graph *modgraph.Graph
	// modules holds the root and everything upstream of it
	modules map[string]bool
}

func newLinkScope(cc *CommandContext, p *project) (*linkScope, error) {
	dir, err := filepath.Abs(cc.Cfg.SourcesDir)
	if err != nil {
		return nil, err
	}
	g, err := p.graph(cc)
	if err != nil {
		return nil, err
	}
	root := resolveRoot(p, cc.Cfg.Root)
	s := &linkScope{dir: dir, pkg: p.reg.PackageName(), graph: g, modules: map[string]bool{root: true}}
	for _, m := range g.Upstream(root) {
		s.modules[m] = true
	}
	return s, nil
}

// affects reports whether changes to files can alter the linked output.
// Without a scope, after a failed link, every change does. Bundle files,
// manifests and modules the graph has never seen always do.
func (s *linkScope) affects(files []string) bool {
	if s == nil {
		return true
	}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil || !loader.IsSource(f) {
			return true
		}
		rel, err := filepath.Rel(s.dir, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
		path := registry.ModulePath(s.pkg, filepath.ToSlash(rel))
		if s.modules[path] || !s.graph.Has(path) {
			return true
		}
	}
	return false
}

// bundleDir returns the directory of a bundle given by directory or
// manifest path.
func bundleDir(path string) string {
	if filepath.Base(path) == loader.ManifestName {
		return filepath.Dir(path)
	}
	return path
}

// watch calls onChange, debounced, with the shader sources or bundle
// manifests under dirs that changed. It returns when ctx is done.
func watch(ctx context.Context, dirs []string, logger *slog.Logger, onChange func(files []string)) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range dirs {
		if err := watchDirRecursive(watcher, dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	var (
		debounceTimer *time.Timer
		// relinks never overlap
		mu sync.Mutex
		// pending collects the files of one burst
		pendingMu sync.Mutex
		pending   = make(map[string]bool)
	)
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				// new subdirectories are watched too
				_ = watchDirRecursive(watcher, event.Name)
			}
			if !loader.IsSource(event.Name) && filepath.Base(event.Name) != loader.ManifestName {
				continue
			}

			pendingMu.Lock()
			pending[event.Name] = true
			pendingMu.Unlock()
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				mu.Lock()
				defer mu.Unlock()
				pendingMu.Lock()
				files := make([]string, 0, len(pending))
				for f := range pending {
					files = append(files, f)
				}
				clear(pending)
				pendingMu.Unlock()
				if len(files) == 0 {
					return
				}
				sort.Strings(files)
				logger.Debug("files changed", slog.Any("files", files))
				onChange(files)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

// watchDirRecursive adds dir and its subdirectories, skipping hidden ones.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && len(d.Name()) > 1 && d.Name()[0] == '.' {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
