package config

import "github.com/tauraamui/scopeview/pkg/configdef"

// DefaultResolver reads config.json from SCOPEVIEW_CONFIG or the
// user's config directory, filling in defaults before validating.
func DefaultResolver() configdef.Resolver { return fileConfig{} }

// DefaultCreator writes a default config.json, refusing to replace
// one which already exists.
func DefaultCreator() configdef.Creator { return fileConfig{} }

func DefaultDestroyer() configdef.Destroyer { return fileConfig{} }

type fileConfig struct{}

func (fileConfig) Resolve() (configdef.Values, error) { return load() }

func (fileConfig) Create() error { return create() }

func (fileConfig) Destroy() error { return destroy() }
