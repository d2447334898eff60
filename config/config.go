package config

import (
	"flag"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr = ":8080"
	defaultDataDir  = "./wal/accounts"
)

// Config holds the process configuration.
type Config struct {
	HTTPAddr         string `yaml:"http_addr"`
	DataDir          string `yaml:"data_dir"`
	SegmentThreshold int    `yaml:"segment_threshold,omitempty"`
	MaxSegments      int    `yaml:"max_segments,omitempty"`
	NoSync           bool   `yaml:"no_sync,omitempty"`
}

// Flags holds command-line switches parsed alongside the config path.
type Flags struct {
	ConfigPath string
	Setup      bool
}

// Get parses flags and loads the configuration, preferring the yaml file
// when -config is given and falling back to flag values otherwise.
func Get() (Config, Flags, error) {
	configPath := flag.String("config", "", "path to yaml config")
	setup := flag.Bool("setup", false, "run the interactive config wizard")
	httpAddr := flag.String("http", defaultHTTPAddr, "http listen address")
	dataDir := flag.String("datadir", defaultDataDir, "directory for account event logs")
	noSync := flag.Bool("nosync", false, "disable fsync on append (testing only)")
	flag.Parse()

	flags := Flags{ConfigPath: *configPath, Setup: *setup}

	if *configPath != "" {
		cfg, err := getYaml(*configPath)
		return cfg, flags, err
	}

	return Config{
		HTTPAddr: *httpAddr,
		DataDir:  *dataDir,
		NoSync:   *noSync,
	}, flags, nil
}

// Load reads a yaml config from path, applying defaults for absent fields.
func Load(path string) (Config, error) {
	return getYaml(path)
}

func getYaml(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}

	cfg := Config{
		HTTPAddr: defaultHTTPAddr,
		DataDir:  defaultDataDir,
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir
	}

	return cfg, nil
}
