// Package config loads and validates the VMConfig spec.md §6 describes:
// `init_vm(config) -> VM`'s configuration enumerates
// {gcEdenHeapSize, gcYoungHeapSize, gcOldHeapSize, gcHeapSize,
// gcGrowthFactor, debugToken, debugPrintCode, stressGC, logGC}.
//
// A VMConfig is built from built-in defaults, optionally overridden by
// an on-disk `lumen.yaml`, and finally by CLI flags (cmd/lumen applies
// those last, since this package only knows about the file/default
// layer).
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// VMConfig is the full set of tunables spec.md §6 names.
type VMConfig struct {
	GCEdenHeapSize   int     `yaml:"gcEdenHeapSize"`
	GCYoungHeapSize  int     `yaml:"gcYoungHeapSize"`
	GCOldHeapSize    int     `yaml:"gcOldHeapSize"`
	GCHeapSize       int     `yaml:"gcHeapSize"`
	GCGrowthFactor   float64 `yaml:"gcGrowthFactor"`
	DebugToken       bool    `yaml:"debugToken"`
	DebugPrintCode   bool    `yaml:"debugPrintCode"`
	StressGC         bool    `yaml:"stressGC"`
	LogGC            bool    `yaml:"logGC"`
}

// Default returns the built-in VMConfig every VM starts from absent a
// lumen.yaml or CLI override.
func Default() VMConfig {
	return VMConfig{
		GCEdenHeapSize:  1 << 20,
		GCYoungHeapSize: 1 << 21,
		GCOldHeapSize:   1 << 22,
		GCHeapSize:      1 << 23,
		GCGrowthFactor:  2,
	}
}

// Load reads and merges a lumen.yaml file over the built-in defaults. A
// missing file is not an error — the defaults alone are a complete,
// valid configuration; any other read/parse failure is wrapped with
// github.com/pkg/errors for Go-level stack context.
func Load(path string) (VMConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}
