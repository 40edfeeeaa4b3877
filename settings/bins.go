package settings

import (
	"fmt"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// readBinsYaml parses the per-bin filter profiles supplied through the
// environment, e.g.
//
//	page:
//	  expected_size: 50000
//	  lifetime_seconds: 86400
//	render: {}
//
// Fields a bin leaves unset are filled from the configured default profile.
func readBinsYaml(yamlContent string, def CGBin) (map[string]CGBin, error) {
	bins := map[string]CGBin{}
	if err := yaml.Unmarshal([]byte(yamlContent), &bins); err != nil {
		return nil, err
	}
	for name, bin := range bins {
		if err := mergo.Merge(&bin, def); err != nil {
			return nil, err
		}
		bins[name] = bin
	}
	return bins, nil
}

// GetBinsFromConf returns the filter-enabled bins with defaults applied.
// Bins absent from the mapping are not gated at all.
func GetBinsFromConf() map[string]CGBin {
	if Filter.Bins == "" {
		Logger.Debug().Msg("no filter bins have been configured")
		return map[string]CGBin{}
	}
	bins, err := readBinsYaml(Filter.Bins, Filter.Default)
	if err != nil {
		Logger.Fatal().Err(err).Str("yaml", Filter.Bins).Msg("Failed to unmarshal filter bins YAML")
	}
	if _, ok := bins[Filter.StoreBin]; ok {
		Logger.Fatal().Str("bin", Filter.StoreBin).Msg("the filter store bin cannot itself be gated")
	}
	return bins
}

// Lifetime semantics for CGBin: 0 means filter state is kept forever,
// anything positive is a relative lifetime in seconds.
func (b CGBin) String() string {
	return fmt.Sprintf("expected_size=%d probability=%v lifetime_seconds=%d", b.ExpectedSize, b.Probability, b.LifetimeSeconds)
}
