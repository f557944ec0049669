package modpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"./foo/bar/../.", []string{"foo"}},
		{"foo//bar/", []string{"foo", "bar"}},
		{"../x", []string{"..", "x"}},
		{"../../x/../y", []string{"..", "..", "y"}},
		{".", nil},
		{"a/..", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestFromFile(t *testing.T) {
	assert.Equal(t, []string{"lib", "util"}, FromFile("./lib/util.wesl"))
	assert.Equal(t, []string{"main"}, FromFile("main.wgsl"))
	assert.Equal(t, []string{"shaders", "a"}, FromFile(`shaders\a.wesl`))
}

func TestFromLegacy(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"./util", []string{"super", "util"}},
		{"./util.wgsl", []string{"super", "util"}},
		{"../shared/math", []string{"super", "super", "shared", "math"}},
		{"bevy/pbr", []string{"bevy", "pbr"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FromLegacy(tt.in))
		})
	}
}

func TestJoinSplitParentRoot(t *testing.T) {
	p := Join("package", "lib", "util")
	assert.Equal(t, "package::lib::util", p)
	assert.Equal(t, []string{"package", "lib", "util"}, Split(p))
	assert.Nil(t, Split(""))
	assert.Equal(t, "package::lib", Parent(p))
	assert.Equal(t, "", Parent("package"))
	assert.Equal(t, "package", Root(p))
	assert.Equal(t, "bundle", Root("bundle"))
}
