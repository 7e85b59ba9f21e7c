package config

import (
	"os"

	"github.com/Velocidex/yaml/v2"
	"github.com/pkg/errors"
)

// Embed build time constants into here for reporting the version.
var (
	build_time  string
	commit_hash string
)

const (
	VERSION = "0.1.0"

	DEFAULT_RETENTION_WINDOW = 32
	DEFAULT_MAX_CALL_CHAIN   = 64
)

type Config struct {
	Tree       *TreeConfig       `yaml:"tree,omitempty"`
	Logging    *LoggingConfig    `yaml:"logging,omitempty"`
	Originator *OriginatorConfig `yaml:"originator,omitempty"`
	Pump       *PumpConfig       `yaml:"pump,omitempty"`
	Metrics    *MetricsConfig    `yaml:"metrics,omitempty"`
}

type TreeConfig struct {
	// Number of mutating events an exited process stays resolvable.
	RetentionWindow int `yaml:"retention_window,omitempty"`

	// Upper bound on ancestor walks.
	MaxCallChain int `yaml:"max_call_chain,omitempty"`

	// Seed the tree from the live process list on startup.
	Backfill bool `yaml:"backfill,omitempty"`
}

type LoggingConfig struct {
	Level           string `yaml:"level,omitempty"`
	OutputDirectory string `yaml:"output_directory,omitempty"`
	MaxAgeHours     int    `yaml:"max_age_hours,omitempty"`
	DisableStderr   bool   `yaml:"disable_stderr,omitempty"`
}

type OriginatorConfig struct {
	// Maps an executable path to the originator kind it starts
	// (e.g. /usr/bin/login: LOGIN). Replaces the built in table
	// when set.
	Triggers map[string]string `yaml:"triggers,omitempty"`
}

type PumpConfig struct {
	// Anomaly log lines per second (unresolvable handles etc).
	AnomalyLogRate  float64 `yaml:"anomaly_log_rate,omitempty"`
	AnomalyLogBurst int     `yaml:"anomaly_log_burst,omitempty"`
}

type MetricsConfig struct {
	BindAddress string `yaml:"bind_address,omitempty"`
}

type Version struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	BuildTime string `yaml:"build_time,omitempty"`
	Commit    string `yaml:"commit,omitempty"`
}

func GetVersion() *Version {
	return &Version{
		Name:      "proctree",
		Version:   VERSION,
		BuildTime: build_time,
		Commit:    commit_hash,
	}
}

func GetDefaultConfig() *Config {
	return &Config{
		Tree: &TreeConfig{
			RetentionWindow: DEFAULT_RETENTION_WINDOW,
			MaxCallChain:    DEFAULT_MAX_CALL_CHAIN,
		},
		Logging: &LoggingConfig{
			Level: "info",
		},
		Originator: &OriginatorConfig{},
		Pump: &PumpConfig{
			AnomalyLogRate:  1,
			AnomalyLogBurst: 10,
		},
		Metrics: &MetricsConfig{},
	}
}

// Fill in any sections and fields the loaded config left out.
func mergeDefaults(config_obj *Config) {
	defaults := GetDefaultConfig()

	if config_obj.Tree == nil {
		config_obj.Tree = defaults.Tree
	}
	if config_obj.Tree.RetentionWindow == 0 {
		config_obj.Tree.RetentionWindow = DEFAULT_RETENTION_WINDOW
	}
	if config_obj.Tree.MaxCallChain == 0 {
		config_obj.Tree.MaxCallChain = DEFAULT_MAX_CALL_CHAIN
	}

	if config_obj.Logging == nil {
		config_obj.Logging = defaults.Logging
	}
	if config_obj.Originator == nil {
		config_obj.Originator = defaults.Originator
	}

	if config_obj.Pump == nil {
		config_obj.Pump = defaults.Pump
	}
	if config_obj.Pump.AnomalyLogRate == 0 {
		config_obj.Pump.AnomalyLogRate = defaults.Pump.AnomalyLogRate
	}
	if config_obj.Pump.AnomalyLogBurst == 0 {
		config_obj.Pump.AnomalyLogBurst = defaults.Pump.AnomalyLogBurst
	}

	if config_obj.Metrics == nil {
		config_obj.Metrics = defaults.Metrics
	}
}

func ParseConfigFromString(serialized []byte) (*Config, error) {
	result := &Config{}
	err := yaml.UnmarshalStrict(serialized, result)
	if err != nil {
		return nil, errors.Wrap(err, "ParseConfigFromString")
	}
	mergeDefaults(result)
	return result, nil
}

func Encode(config_obj *Config) ([]byte, error) {
	return yaml.Marshal(config_obj)
}

func read_config_from_file(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to read config file %v", filename)
	}
	return ParseConfigFromString(data)
}
