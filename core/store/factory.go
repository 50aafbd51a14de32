package store

import "github.com/kilianp07/oncall/core/factory"

var registry = factory.NewRegistry[Store]()

func init() {
	_ = Register("memory", func(map[string]any) (Store, error) { return NewMemoryStore(), nil })
}

// Register adds a store backend identified by name.
func Register(name string, f factory.Factory[Store]) error {
	return registry.Register(name, f)
}

// New creates the configured store. An empty type selects the memory store.
func New(cfg factory.ModuleConfig) (Store, error) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	return registry.Create(cfg)
}
