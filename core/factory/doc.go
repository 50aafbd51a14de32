// Package factory instantiates pluggable modules (roster stores, metrics
// sinks) from configuration. A module is described by a type string and a
// map of raw settings; the registered factory decodes the settings into its
// own typed struct.
//
//	reg := factory.NewRegistry[store.Store]()
//	reg.Register("sqlite", func(conf map[string]any) (store.Store, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return sqlite.Open(c.Path)
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"path": "rota.db"}})
package factory
