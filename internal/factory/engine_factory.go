package factory

import (
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/model"
	"fmt"
)

// EngineFactory builds the engine of one run for the given topology.
type EngineFactory func(topo *model.Topology, cfg *config.Config) (model.Engine, error)

var engineRegistry = make(map[string]EngineFactory)

// RegisterEngine registers a new engine type with its factory function.
func RegisterEngine(name string, factory EngineFactory) {
	if _, exists := engineRegistry[name]; exists {
		panic(fmt.Sprintf("engine type '%s' already registered", name))
	}
	engineRegistry[name] = factory
}

// CreateEngine creates the engine selected by cfg.Engine.Type.
func CreateEngine(topo *model.Topology, cfg *config.Config) (model.Engine, error) {
	factory, ok := engineRegistry[cfg.Engine.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown engine type '%s'", model.ErrConfig, cfg.Engine.Type)
	}
	e, err := factory(topo, cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating engine type '%s': %w", cfg.Engine.Type, err)
	}
	return e, nil
}
