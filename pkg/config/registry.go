package config

import (
	"fmt"

	"github.com/StrathCole/spread-go/pkg/server/sources"
)

// BuildRegistry builds the source registry from the enabled sources.
func BuildRegistry(cfg *Config) (*sources.Registry, error) {
	enabled := cfg.EnabledSources()
	descs := make([]sources.Descriptor, 0, len(enabled))
	for _, sc := range enabled {
		d, err := sources.NewDescriptor(sc.Name, sc.Endpoint, sc.Extractor, sc.Params)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}

	reg, err := sources.NewRegistry(descs...)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	return reg, nil
}
