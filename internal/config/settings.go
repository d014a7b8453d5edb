package config

import (
	"sync"

	"github.com/dshills/bindkit/internal/model"
)

// Settings is an observable view of the active Config. Each section is a
// property ("log", "dump", "binding", "metrics", "scripts") announced when
// Apply installs a new configuration, so a path like "log.level" can be
// watched or bound.
type Settings struct {
	model.Base

	mu  sync.RWMutex
	cfg *Config
}

// NewSettings returns settings holding cfg, or the defaults when cfg is nil.
func NewSettings(cfg *Config) *Settings {
	if cfg == nil {
		cfg = Default()
	}
	return &Settings{cfg: cfg.Clone()}
}

// Config returns a copy of the active configuration.
func (s *Settings) Config() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Log returns the log section.
func (s *Settings) Log() LogConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Log
}

// Dump returns the dump section.
func (s *Settings) Dump() DumpConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.cfg.Dump
	d.Redact = append([]string(nil), d.Redact...)
	return d
}

// Binding returns the binding section.
func (s *Settings) Binding() BindingConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Binding
}

// Metrics returns the metrics section.
func (s *Settings) Metrics() MetricsConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Metrics
}

// Scripts returns the configured script files.
func (s *Settings) Scripts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.cfg.Scripts...)
}

// Apply installs cfg and announces every section. Sections are announced
// even when unchanged.
func (s *Settings) Apply(cfg *Config) {
	next := cfg.Clone()

	s.mu.Lock()
	prev := s.cfg
	s.cfg = next
	s.mu.Unlock()

	s.Announce("log", prev.Log, next.Log)
	s.Announce("dump", prev.Dump, next.Dump)
	s.Announce("binding", prev.Binding, next.Binding)
	s.Announce("metrics", prev.Metrics, next.Metrics)
	s.Announce("scripts", prev.Scripts, next.Scripts)
}
