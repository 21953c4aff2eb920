package fluid

import (
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/factory"
	"Go2WlanSpectra/internal/model"
)

func init() {
	factory.RegisterEngine(Name, func(topo *model.Topology, cfg *config.Config) (model.Engine, error) {
		return New(topo, cfg.Radio, cfg.Engine, cfg.Experiment.Seed)
	})
}
