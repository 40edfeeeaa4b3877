/*
Package settings controls reading configuration from environment and assigning defaults
*/
package settings

import (
	"log" // cannot use zerolog before log options are initialised
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

var Settings *CGSettings
var Redis *CGRedis
var Filter *CGFilter

// envPrefix namespaces every environment variable read by this package,
// e.g. CG__REDIS__ENDPOINT or CG.FILTER.BINS.
const envPrefix = "CG"

type CGRedis struct {
	Endpoint string `koanf:"endpoint"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	// Database number holding cache bins and filter state
	DB int `koanf:"db"`
	// Retries for transient transport errors before giving up
	MaxRetries int `koanf:"max_retries"`
	// Dial/read/write timeout applied to the client
	ConnectionTimeoutSeconds int `koanf:"connection_timeout_seconds"`
}

type CGBin struct {
	// Expected number of distinct keys the bin will see over the filter lifetime
	ExpectedSize uint64 `koanf:"expected_size" yaml:"expected_size"`
	// Target false positive probability, in (0,1)
	Probability float64 `koanf:"probability" yaml:"probability"`
	// Seconds before persisted filter state expires and is reallocated, 0 keeps it forever
	LifetimeSeconds int64 `koanf:"lifetime_seconds" yaml:"lifetime_seconds"`
}

type CGFilter struct {
	// Bin name used to persist filter state. Never decorated with a gate.
	StoreBin string `koanf:"store_bin"`
	// YAML mapping of bin name to bin profile, merged over Default per bin
	Bins string `koanf:"bins"`
	// Profile applied to fields a configured bin leaves unset
	Default CGBin `koanf:"default"`
}

type CGLocalCache struct {
	// In-memory cache size for the local backend, in MiB
	SizeMB int `koanf:"size_mb"`
	// Number of cache shards, concurrency vs max object size
	Shards int `koanf:"shards"`
	// Max TimeToLive for cached data, in seconds
	TTLSeconds int `koanf:"ttl_seconds"`
}

type CGLock struct {
	// Seconds a redis lock survives a crashed holder
	TTLSeconds int `koanf:"ttl_seconds"`
	// Poll interval while waiting for a held lock, in milliseconds
	PollMillis int `koanf:"poll_millis"`
}

type CGSettings struct {
	// metrics server will listen for connections from this address
	MetricsAddr string `koanf:"metrics_addr"`
	// zerolog level: trace, debug, info, warn, error
	LogLevel string       `koanf:"log_level"`
	Redis    CGRedis      `koanf:"redis"`
	Filter   CGFilter     `koanf:"filter"`
	Local    CGLocalCache `koanf:"local"`
	Lock     CGLock       `koanf:"lock"`
}

var defaults CGSettings = CGSettings{
	MetricsAddr: ":8111",
	LogLevel:    "info",
	Redis: CGRedis{
		Endpoint:                 "",
		Username:                 "",
		Password:                 "",
		DB:                       0,
		MaxRetries:               3,
		ConnectionTimeoutSeconds: 5,
	},
	Filter: CGFilter{
		StoreBin: "admission",
		Bins:     "",
		Default: CGBin{
			ExpectedSize:    10000,
			Probability:     0.01,
			LifetimeSeconds: 0,
		},
	},
	Local: CGLocalCache{
		SizeMB:     64,
		Shards:     32,
		TTLSeconds: 900,
	},
	Lock: CGLock{
		TTLSeconds: 30,
		PollMillis: 50,
	},
}

// envTransform maps CG__FILTER__STORE_BIN or CG.FILTER.STORE_BIN to the
// koanf path filter.store_bin.
func envTransform(key string, value string) (string, any) {
	key = strings.TrimPrefix(key, envPrefix)
	key = strings.ReplaceAll(key, "__", ".")
	key = strings.Trim(strings.ToLower(key), ".")
	return key, value
}

func parseSettings() *CGSettings {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		log.Fatalf("failed to load default settings: %v", err)
	}
	err := k.Load(env.Provider(".", env.Opt{
		Prefix:        envPrefix,
		TransformFunc: envTransform,
	}), nil)
	if err != nil {
		log.Fatalf("failed to read settings from environment: %v", err)
	}

	parsed := CGSettings{}
	err = k.UnmarshalWithConf("", &parsed, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &parsed,
		},
	})
	if err != nil {
		log.Fatalf("failed to decode settings: %v", err)
	}
	return &parsed
}

func ResetSettings() {
	Settings = parseSettings()
	setupLogger(Settings.LogLevel)
	Redis = &Settings.Redis
	Filter = &Settings.Filter
}
