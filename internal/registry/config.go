package registry

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"xds/internal/instance"
)

// Config locates the model and config documents a registry bootstraps from.
type Config struct {
	// ModelsDir holds the specification documents, one kind each.
	ModelsDir string `yaml:"models_dir"`
	// ConfigsDir holds instance documents, including env.<Env>.yaml.
	ConfigsDir string `yaml:"configs_dir"`
	// Env selects the environment document.
	Env string `yaml:"env"`
	// Identity stamps the audit fields of constructed instances.
	Identity string `yaml:"identity"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	return ParseConfig(data)
}

// ParseConfig decodes YAML config data and fills defaults.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills in default values for unset fields.
func (c *Config) applyDefaults() {
	if c.ModelsDir == "" {
		c.ModelsDir = "models"
	}

	if c.ConfigsDir == "" {
		c.ConfigsDir = "configs"
	}

	if c.Env == "" {
		c.Env = "dev"
	}

	if c.Identity == "" {
		c.Identity = instance.DefaultIdentity
	}
}
