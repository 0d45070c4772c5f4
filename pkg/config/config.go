package config

import (
	"github.com/tauraamui/scopeview/internal/config"
	"github.com/tauraamui/scopeview/pkg/configdef"
)

type Resolver interface {
	configdef.Resolver
}

type Creator interface {
	configdef.Creator
}

type Destroyer interface {
	configdef.Destroyer
}

func DefaultResolver() Resolver { return config.DefaultResolver() }

func DefaultCreator() Creator { return config.DefaultCreator() }

func DefaultDestroyer() Destroyer { return config.DefaultDestroyer() }
