// Package config defines the unified, format-agnostic representation of a
// publish plan: artifact groups, their dependency edges, rate-limit policies
// and run-wide settings. Format-specific loaders (see internal/hcl) translate
// their native schema into this model, which is immutable once loaded.
package config
