// Package config provides the Configuration Provider consulted by engines
// and the process-level configuration file of the vexec CLI.
//
// Engines only ever ask a Provider for integers by (section, key). Two
// providers exist: Static, an in-memory map used by tests and embedders, and
// ViperProvider, backed by a YAML file with VEXEC_* environment overrides.
//
//	cfg, err := config.Load("vexec.yaml")
//	if err != nil {
//	    return err
//	}
//	ec, err := config.ResolveEngine(cfg.Provider(), index.IVFFlatCPU)
package config
