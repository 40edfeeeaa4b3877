package settings

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Tests reading of bin profiles from yaml
func TestReadBinsFromYAML(t *testing.T) {
	def := CGBin{ExpectedSize: 10000, Probability: 0.01, LifetimeSeconds: 0}

	yamlContent := `
page:
  expected_size: 50000
  lifetime_seconds: 86400
render: {}
`
	bins, err := readBinsYaml(yamlContent, def)
	require.NoError(t, err)
	require.Equal(t, len(bins), 2)

	// explicit fields win, unset fields come from the default profile
	require.Equal(t, bins["page"], CGBin{ExpectedSize: 50000, Probability: 0.01, LifetimeSeconds: 86400})
	require.Equal(t, bins["render"], def)
}

func TestReadBinsBadYAML(t *testing.T) {
	_, err := readBinsYaml("page: [not a profile", CGBin{})
	require.Error(t, err)
}

func TestGetBinsFromConfEmpty(t *testing.T) {
	Filter = &CGFilter{StoreBin: "admission", Bins: ""}
	bins := GetBinsFromConf()
	require.Empty(t, bins)
}

func TestGetBinsFromConf(t *testing.T) {
	Filter = &CGFilter{
		StoreBin: "admission",
		Bins:     "page:\n  probability: 0.001\n",
		Default:  CGBin{ExpectedSize: 10000, Probability: 0.01},
	}
	bins := GetBinsFromConf()
	require.Equal(t, len(bins), 1)
	require.Equal(t, bins["page"], CGBin{ExpectedSize: 10000, Probability: 0.001})
}
