package config

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vexec/index"
)

const (
	// DefaultGPUIndex is the device used when server.gpu_index is unset.
	DefaultGPUIndex = 0
	// DefaultNProbe is the IVF fan-out used when engine_config.nprobe is unset.
	DefaultNProbe = 1000
)

// ErrInvalidEngineConfig is returned by EngineConfig.Validate.
var ErrInvalidEngineConfig = errors.New("config: invalid engine config")

// EngineConfig holds the per-engine tuning resolved from a Provider.
type EngineConfig struct {
	// DeviceID is the accelerator ordinal for GPU builds.
	DeviceID int
	// NProbe is the number of inverted lists probed per IVF query. Index
	// types without lists ignore it.
	NProbe int
}

// Validate checks DeviceID >= 0 and NProbe > 0.
func (c EngineConfig) Validate() error {
	if c.DeviceID < 0 {
		return fmt.Errorf("%w: %s.%s must be >= 0 (got: %d)", ErrInvalidEngineConfig, SectionServer, KeyGPUIndex, c.DeviceID)
	}
	if c.NProbe <= 0 {
		return fmt.Errorf("%w: %s.%s must be > 0 (got: %d)", ErrInvalidEngineConfig, SectionEngine, KeyNProbe, c.NProbe)
	}
	return nil
}

// ResolveEngine reads the tuning for an engine whose bulk-build target is
// buildType. The device is always read; nprobe is read only for IVF targets
// and is 1 otherwise. A nil provider behaves as an empty one.
func ResolveEngine(p Provider, buildType index.EngineType) (EngineConfig, error) {
	if p == nil {
		p = &Static{}
	}
	c := EngineConfig{
		DeviceID: p.GetInt(SectionServer, KeyGPUIndex, DefaultGPUIndex),
		NProbe:   1,
	}
	if buildType.IsIVF() {
		c.NProbe = p.GetInt(SectionEngine, KeyNProbe, DefaultNProbe)
	}
	if err := c.Validate(); err != nil {
		return EngineConfig{}, err
	}
	return c, nil
}
