package gate

import (
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
)

type (
	// configFile is the top-level JSON structure.
	configFile struct {
		Pools map[string]PoolConfig `json:"pools"`
	}

	// PoolConfig holds the decoded configuration for a single permit pool.
	// Export it to embed in your own app config structs for JSON or YAML
	// unmarshaling, then call [BuildOptions] to obtain functional options
	// for [New].
	PoolConfig struct {
		// Capacity is the number of permits the pool circulates.
		// Required. Example: 8.
		Capacity *int `json:"capacity,omitempty" yaml:"capacity,omitempty"`
		// LeaseTimeout bounds how long a permit may stay out before the
		// pool may reclaim it.
		// Optional. Parsed via time.ParseDuration. Example: "30s".
		LeaseTimeout *string `json:"lease_timeout,omitempty" yaml:"lease_timeout,omitempty"`
		// ScavengeInterval paces rescans while the pool is starved.
		// Optional. Parsed via time.ParseDuration. Example: "100ms".
		ScavengeInterval *string `json:"scavenge_interval,omitempty" yaml:"scavenge_interval,omitempty"`
	}
)

// LoadConfig reads a JSON configuration file and stores the pool
// configurations in a [Registry]. Actual [Pool] instances are not created
// until [GetPool] is called, allowing the caller to provide additional
// code-level options such as hooks or a custom clock.
//
// Duration values (lease_timeout, scavenge_interval) are parsed using
// [time.ParseDuration].
func LoadConfig(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gate: read config: %w", err)
	}

	var cfg configFile
	if err = json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("gate: parse config: %w", err)
	}

	// Validate all pools eagerly so errors surface at load time.
	for name, pc := range cfg.Pools {
		if _, buildErr := BuildOptions(&pc); buildErr != nil {
			return nil, fmt.Errorf("gate: pool %q: %w", name, buildErr)
		}
	}

	reg := NewRegistry()
	reg.mu.Lock()
	reg.configs = cfg.Pools
	reg.mu.Unlock()

	return reg, nil
}

// BuildOptions converts a [PoolConfig] into functional options for [New].
// Use this when you embed [PoolConfig] in your own config struct and want
// to build a pool without going through [LoadConfig]. Capacity is not an
// option; read it from the config directly.
func BuildOptions(pc *PoolConfig) ([]Option, error) {
	var opts []Option

	if pc.Capacity != nil && *pc.Capacity < 1 {
		return nil, fmt.Errorf("capacity: must be positive, got %d", *pc.Capacity)
	}

	if pc.LeaseTimeout != nil {
		d, err := time.ParseDuration(*pc.LeaseTimeout)
		if err != nil {
			return nil, fmt.Errorf("lease_timeout: %w", err)
		}

		opts = append(opts, WithLeaseTimeout(d))
	}

	if pc.ScavengeInterval != nil {
		d, err := time.ParseDuration(*pc.ScavengeInterval)
		if err != nil {
			return nil, fmt.Errorf("scavenge_interval: %w", err)
		}

		opts = append(opts, WithScavengeInterval(d))
	}

	return opts, nil
}

// GetPool creates the named pool from a config-loaded [Registry] and
// registers it for status reporting. capacity is the fallback used when the
// configuration does not specify one; a configured capacity wins.
//
// Additional options are applied after config options, so they take
// precedence (e.g. adding hooks or a custom clock).
func GetPool(reg *Registry, name string, capacity int, opts ...Option) *Pool {
	reg.mu.Lock()
	pc, ok := reg.configs[name]
	reg.mu.Unlock()

	var allOpts []Option

	allOpts = append(allOpts, WithName(name))

	if ok {
		if pc.Capacity != nil {
			capacity = *pc.Capacity
		}

		configOpts, err := BuildOptions(&pc)
		if err == nil {
			allOpts = append(allOpts, configOpts...)
		}
	}

	// User opts come last so they can override config values.
	allOpts = append(allOpts, opts...)

	pool := New(capacity, allOpts...)
	reg.Register(pool)

	return pool
}
