package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads the configuration at path and translates it into the
	// format-agnostic model. Loaders do not validate cross references; call
	// Validate on the result.
	Load(ctx context.Context, path string) (*Model, error)
}
