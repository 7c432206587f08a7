// Package graph implements the group dependency graph: first-class data the
// scheduler drives, instead of structure implicit in configuration layout.
package graph
