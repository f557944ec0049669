//go:build parsetrace

package combinator

const tracing = true
