package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultIngestURL is where a locally running ingest service listens.
const DefaultIngestURL = "http://localhost:8088"

type Config struct {
	IngestURL    string            `yaml:"ingest_url"`
	TrainersFile string            `yaml:"trainers_file,omitempty"`
	Trainers     map[string]string `yaml:"trainers,omitempty"`
	path         string
}

func Default() *Config {
	return &Config{
		IngestURL: DefaultIngestURL,
		Trainers:  make(map[string]string),
	}
}

// DefaultPath returns $HOME/.bagile/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".bagile", "config.yaml"), nil
}

func Load(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		cfgFile = path
	}

	cfg := Default()
	cfg.path = cfgFile

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.IngestURL == "" {
		cfg.IngestURL = DefaultIngestURL
	}

	return cfg, nil
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	return c.path
}
