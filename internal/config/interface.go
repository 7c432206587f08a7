package config

import "context"

// Loader is the interface for a format-specific plan loader. Load reads
// configuration from the given paths, translates it into the format-agnostic
// model, and fully validates it (including cycle rejection). A returned error
// is always a *ConfigError.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Plan, error)
}
