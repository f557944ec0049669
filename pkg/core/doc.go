// Package core defines the shared language of the weslink system: the
// error taxonomy every stage of the linker reports with.
//
// The Golden Rule: pkg/core imports ONLY pkg/token and stdlib.
// All other packages depend on core, not the reverse.
package core
