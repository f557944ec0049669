// Package testutil provides helpers for CLI tests.
package testutil

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/leapstack-labs/weslink/internal/cli/output"
	shared "github.com/leapstack-labs/weslink/internal/testutil"
)

// ProjectFiles is the shader project created by SetupTestProject.
var ProjectFiles = map[string]string{
	"weslink.yaml": `root: main.wesl
sources_dir: shaders
conditions:
  mobile: false
`,
	"shaders/main.wesl": `import package::lights::{Light, shade};

@fragment
fn main() -> @location(0) vec4f {
  return shade(Light(vec3f(1.0)));
}
`,
	"shaders/lights.wesl": `struct Light { color: vec3f }

@if(mobile) fn shade(l: Light) -> vec4f { return vec4f(l.color * 0.5, 1.0); }
@if(!mobile) fn shade(l: Light) -> vec4f { return vec4f(l.color, 1.0); }

fn unused() {}
`,
}

// SetupTestProject writes ProjectFiles to a temporary directory and returns it.
func SetupTestProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	WriteFiles(t, dir, ProjectFiles)
	return dir
}

// WriteFiles writes files, keyed by slash-separated relative path, under dir.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	shared.WriteTree(t, dir, files)
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a test renderer with the given mode and terminal state.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the captured stdout.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the captured stderr.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
