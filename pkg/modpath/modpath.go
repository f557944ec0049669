// Package modpath converts between file paths and module paths.
//
// Module paths are "::"-separated segments such as package::util::math.
// The first segment names the package (package for the sources being
// linked, or a bundle name) and the reserved segment super refers to the
// parent module.
package modpath

import (
	"path"
	"strings"
)

// Reserved path segments.
const (
	Package = "package"
	Super   = "super"
)

// Sep separates module path segments.
const Sep = "::"

// Normalize splits a slash-separated file path into segments, dropping "."
// and empty segments and collapsing "dir/..". A ".." that cannot be
// collapsed is kept, so the result may start with "..".
func Normalize(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(out) > 0 && out[len(out)-1] != ".." {
				out = out[:len(out)-1]
			} else {
				out = append(out, "..")
			}
		default:
			out = append(out, seg)
		}
	}
	return out
}

// FromFile converts a source file key such as "lib/util.wesl" into module
// segments relative to the package root: [lib util].
func FromFile(p string) []string {
	p = strings.ReplaceAll(p, "\\", "/")
	segs := Normalize(p)
	if n := len(segs); n > 0 && segs[n-1] != ".." {
		segs[n-1] = strings.TrimSuffix(segs[n-1], path.Ext(segs[n-1]))
	}
	return segs
}

// FromLegacy converts a legacy import path into module segments. Relative
// paths become super:: chains: "./x" is [super x] and "../x" is
// [super super x]. Other paths are absolute, the first segment naming the
// package.
func FromLegacy(p string) []string {
	relative := strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../") || p == "." || p == ".."
	segs := FromFile(p)
	if !relative {
		return segs
	}
	out := []string{Super}
	for len(segs) > 0 && segs[0] == ".." {
		out = append(out, Super)
		segs = segs[1:]
	}
	return append(out, segs...)
}

// Join joins segments into a module path.
func Join(segs ...string) string {
	return strings.Join(segs, Sep)
}

// Split splits a module path into segments.
func Split(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, Sep)
}

// Parent returns the module path without its last segment.
func Parent(p string) string {
	if i := strings.LastIndex(p, Sep); i >= 0 {
		return p[:i]
	}
	return ""
}

// Root returns the first segment of a module path, the package name.
func Root(p string) string {
	if i := strings.Index(p, Sep); i >= 0 {
		return p[:i]
	}
	return p
}
