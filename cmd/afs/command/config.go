package command

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds defaults read from a YAML file. Command line flags take
// precedence over every value set here.
//
//	log_level: debug
//	log_format: json
//	encoding: Shift_JIS
//	timezone: Asia/Tokyo
//	batch_workers: 4
//	direct_writes: false
type Config struct {
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
	Encoding     string `yaml:"encoding"`
	Timezone     string `yaml:"timezone"`
	BatchWorkers int    `yaml:"batch_workers"`
	DirectWrites bool   `yaml:"direct_writes"`
}

// LoadConfig reads the YAML file at path. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open config: %s", err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("cannot parse config %s: %s", path, err)
	}
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("invalid timezone in %s: %s", path, err)
		}
	}
	if cfg.BatchWorkers < 0 {
		return nil, fmt.Errorf("invalid batch_workers in %s: %d", path, cfg.BatchWorkers)
	}
	return &cfg, nil
}
