package commands

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/weslink/internal/cli/testutil"
	"github.com/leapstack-labs/weslink/internal/config"
	tlog "github.com/leapstack-labs/weslink/internal/testutil"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewLinkCommand(), "link [root]", []string{"output", "sourcemap", "binding-structs", "cache"}},
		{NewWatchCommand(), "watch [root]", []string{"output", "sourcemap", "binding-structs", "cache"}},
		{NewCheckCommand(), "check", nil},
		{NewASTCommand(), "ast <module>", nil},
		{NewModulesCommand(), "modules", nil},
		{NewHistoryCommand(), "history", []string{"limit"}},
		{NewVersionCommand("1.0.0"), "version", nil},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			assert.NotEmpty(t, tt.cmd.Long)
			for _, f := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(f), "flag %q should exist", f)
			}
		})
	}
}

func TestNewCommandContext(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	_, err := NewCommandContext(cmd)
	require.Error(t, err)

	cfg := &config.Config{Format: "json"}
	cmd.SetContext(WithCommandContext(context.Background(), &CommandContext{Cfg: cfg}))
	cc, err := NewCommandContext(cmd)
	require.NoError(t, err)
	assert.Same(t, cfg, cc.Cfg)
	assert.NotNil(t, cc.Logger)
	require.NotNil(t, cc.Renderer)
}

func TestBundleDir(t *testing.T) {
	assert.Equal(t, filepath.Join("libs", "noise"), bundleDir(filepath.Join("libs", "noise", "bundle.yaml")))
	assert.Equal(t, filepath.Join("libs", "noise"), bundleDir(filepath.Join("libs", "noise")))
}

func TestWatch_RelinksOnSourceChange(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"main.wesl": "fn main() {}", "sub/util.wesl": "fn f() {}"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		calls atomic.Int32
		mu    sync.Mutex
		got   []string
	)
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, []string{dir}, tlog.NewTestLogger(t), func(files []string) {
			mu.Lock()
			got = files
			mu.Unlock()
			calls.Add(1)
		})
	}()
	// let the watcher register before writing
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "util.wesl"), []byte("fn g() {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.wesl"), []byte("fn main() { }"), 0o644))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)
	// one burst is one relink
	time.Sleep(3 * debounceDelay)
	assert.Equal(t, int32(1), calls.Load())
	mu.Lock()
	assert.Equal(t, []string{filepath.Join(dir, "main.wesl"), filepath.Join(dir, "sub", "util.wesl")}, got)
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatch_MissingDir(t *testing.T) {
	err := watch(context.Background(), []string{filepath.Join(t.TempDir(), "gone")}, nil, func([]string) {})
	require.Error(t, err)
}

func TestLinkScope_Affects(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"main.wesl":   "import package::util::helper;\nfn main() { helper(); }",
		"util.wesl":   "fn helper() {}",
		"unused.wesl": "fn other() {}",
	})
	cc := &CommandContext{
		Cfg:    &config.Config{Root: "main.wesl", SourcesDir: dir, PackageName: "package", Dialect: "modern"},
		Logger: tlog.NewTestLogger(t),
	}
	p, err := loadProject(context.Background(), cc)
	require.NoError(t, err)
	linked, err := newLinkScope(cc, p)
	require.NoError(t, err)

	tests := []struct {
		name  string
		files []string
		want  bool
	}{
		{"root", []string{filepath.Join(dir, "main.wesl")}, true},
		{"dependency", []string{filepath.Join(dir, "util.wesl")}, true},
		{"unrelated module", []string{filepath.Join(dir, "unused.wesl")}, false},
		{"new module", []string{filepath.Join(dir, "fresh.wesl")}, true},
		{"bundle manifest", []string{filepath.Join(dir, "libs", "bundle.yaml")}, true},
		{"outside sources", []string{filepath.Join(filepath.Dir(dir), "x.wesl")}, true},
		{"mixed", []string{filepath.Join(dir, "unused.wesl"), filepath.Join(dir, "util.wesl")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, linked.affects(tt.files))
		})
	}

	var none *linkScope
	assert.True(t, none.affects([]string{filepath.Join(dir, "unused.wesl")}))
}
