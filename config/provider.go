package config

import (
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Section and key names read by engines.
const (
	SectionServer = "server"
	SectionEngine = "engine_config"

	KeyGPUIndex = "gpu_index"
	KeyNProbe   = "nprobe"
)

// Provider answers integer configuration lookups.
type Provider interface {
	// GetInt returns the value of key in section, or def when unset.
	GetInt(section, key string, def int) int
}

// Static is a map-backed Provider. The zero value is empty and ready to use.
type Static struct {
	mu     sync.RWMutex
	values map[string]map[string]int
}

var _ Provider = (*Static)(nil)

// NewStatic returns a Static provider seeded with values.
func NewStatic(values map[string]map[string]int) *Static {
	s := &Static{}
	for section, kv := range values {
		for k, v := range kv {
			s.Set(section, k, v)
		}
	}
	return s
}

// Set stores value under section/key.
func (s *Static) Set(section, key string, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]map[string]int)
	}
	if s.values[section] == nil {
		s.values[section] = make(map[string]int)
	}
	s.values[section][key] = value
}

// GetInt implements Provider.
func (s *Static) GetInt(section, key string, def int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[section][key]; ok {
		return v
	}
	return def
}

// ViperProvider reads "section.key" from a viper instance.
type ViperProvider struct {
	v *viper.Viper
}

var _ Provider = (*ViperProvider)(nil)

// NewViperProvider wraps v.
func NewViperProvider(v *viper.Viper) *ViperProvider {
	return &ViperProvider{v: v}
}

// GetInt implements Provider. Values that are not integers yield def.
func (p *ViperProvider) GetInt(section, key string, def int) int {
	path := section + "." + key
	if p.v == nil || !p.v.IsSet(path) {
		return def
	}
	// viper's GetInt maps unparsable strings to 0, so env values are parsed here.
	if s, ok := p.v.Get(path).(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return def
		}
		return n
	}
	return p.v.GetInt(path)
}
