package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/weslink/internal/cli/output"
	"github.com/leapstack-labs/weslink/internal/state"
	"github.com/leapstack-labs/weslink/pkg/link"
	"github.com/leapstack-labs/weslink/pkg/srcmap"
)

// maxCacheEntries bounds the link cache.
const maxCacheEntries = 64

// NewLinkCommand creates the link command.
func NewLinkCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link [root]",
		Short: "Link a shader package into one WGSL file",
		Long: `Link the module tree rooted at the root module into a single WGSL text.

Only declarations reachable from the root are kept, @if conditions are
evaluated, and colliding names are renamed. Without --output the result is
written to stdout.`,
		Example: `  # Link shaders/main.wesl to stdout
  weslink link

  # Link another root with a source map
  weslink link compute.wesl -o out/compute.wgsl --sourcemap out/compute.map.json

  # Set conditions and constants
  weslink link --condition mobile=true --constant workgroup_size=64u

  # Reuse the previous output when nothing changed
  weslink link -o out/main.wgsl --cache`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(cmd, args)
		},
	}
	AddLinkFlags(cmd)
	return cmd
}

// AddLinkFlags registers the flags shared by link and watch.
func AddLinkFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "linked shader file (default: stdout)")
	cmd.Flags().String("sourcemap", "", "write a JSON source map to this file")
	cmd.Flags().Bool("binding-structs", false, "lower entry-point binding structs to global variables")
	cmd.Flags().Bool("cache", false, "reuse cached output when inputs are unchanged")
}

func runLink(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cc.Cfg.Root = args[0]
	}

	res, _, err := linkProject(cmd.Context(), cc)
	if err != nil {
		return err
	}
	return renderLink(cc, res)
}

// linkProject loads the project, links it and writes the configured
// outputs. With caching on, runs are recorded in the state database. The
// loaded project is returned when the link succeeds.
func linkProject(ctx context.Context, cc *CommandContext) (*output.LinkOutput, *project, error) {
	cfg := cc.Cfg
	p, err := loadProject(ctx, cc)
	if err != nil {
		return nil, nil, err
	}

	var (
		store *state.SQLiteStore
		run   *state.Run
		hash  string
	)
	if cfg.Cache {
		store = state.NewSQLiteStore(cc.Logger)
		if err := store.Open(cfg.StatePath); err != nil {
			return nil, nil, err
		}
		defer func() { _ = store.Close() }()

		if hash, err = p.inputHash(cc); err != nil {
			return nil, nil, err
		}
		if run, err = store.CreateRun(ctx, cfg.Root, hash); err != nil {
			return nil, nil, err
		}
	}

	res, err := linkCached(ctx, cc, p, store, hash)
	if err != nil {
		if run != nil {
			_ = store.CompleteRun(ctx, run.ID, state.RunStatusFailed, false, 0, err.Error())
		}
		return nil, nil, p.withContext(err)
	}
	if run != nil {
		res.RunID = run.ID
		if err := store.CompleteRun(ctx, run.ID, state.RunStatusCompleted, res.Cached, res.Bytes, ""); err != nil {
			return nil, nil, err
		}
	}
	return res, p, nil
}

func linkCached(ctx context.Context, cc *CommandContext, p *project, store *state.SQLiteStore, hash string) (*output.LinkOutput, error) {
	cfg := cc.Cfg
	res := &output.LinkOutput{
		Root:      cfg.Root,
		Output:    cfg.Output,
		SourceMap: cfg.SourceMap,
		Decls:     []output.DeclInfo{},
	}

	var (
		text string
		sm   *srcmap.SourceMap
	)
	if store != nil {
		cached, err := store.GetCachedLink(ctx, hash)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			text, sm, res.Cached = cached.Output, cached.SourceMap, true
		}
	}

	if !res.Cached {
		lr, err := link.Link(ctx, p.reg, linkOptions(cc))
		if err != nil {
			return nil, err
		}
		text, sm = lr.Text, lr.SourceMap
		for _, d := range lr.Decls {
			res.Decls = append(res.Decls, output.DeclInfo{
				Module: d.Module, Name: d.Name, OutputName: d.OutputName, Start: d.Start, End: d.End,
			})
		}
		if store != nil {
			if err := store.PutCachedLink(ctx, &state.CachedLink{
				InputHash: hash, Root: cfg.Root, Output: text, SourceMap: sm,
			}); err != nil {
				return nil, err
			}
			if _, err := store.PruneCache(ctx, maxCacheEntries); err != nil {
				return nil, err
			}
		}
	}
	res.Bytes = len(text)

	if cfg.Output != "" {
		if err := writeFile(cfg.Output, []byte(text)); err != nil {
			return nil, err
		}
	} else {
		res.Text = text
	}
	if cfg.SourceMap != "" && sm != nil {
		data, err := json.MarshalIndent(sm, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode source map: %w", err)
		}
		if err := writeFile(cfg.SourceMap, data); err != nil {
			return nil, err
		}
	}

	cc.Logger.Debug("link finished",
		slog.String("root", cfg.Root),
		slog.Int("bytes", res.Bytes),
		slog.Bool("cached", res.Cached))
	return res, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func renderLink(cc *CommandContext, res *output.LinkOutput) error {
	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}
	if res.Output == "" {
		// the linked text is the command's output
		r.Printf("%s", res.Text)
		return nil
	}

	s := r.Styles()
	status := "linked"
	if res.Cached {
		status = "cached"
	}
	r.Printf("%s %s -> %s %s\n",
		s.Success.Render(status),
		s.Bold.Render(res.Root),
		res.Output,
		s.Muted.Render(fmt.Sprintf("(%d bytes, %d decls)", res.Bytes, len(res.Decls))))
	if res.SourceMap != "" {
		r.KeyValue("Source map", res.SourceMap)
	}
	return nil
}
