package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/release-tag-resolver/pkg/tags"
)

type Config struct {
	Project     string                `yaml:"project"`
	Repo        string                `yaml:"repo"`
	GitHub      string                `yaml:"github"`
	Output      string                `yaml:"output"`
	LogLevel    string                `yaml:"log_level"`
	LogFormat   string                `yaml:"log_format"`
	Workers     int                   `yaml:"workers"`
	Conventions map[string]tags.Rules `yaml:"conventions"`
	Token       string                `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Project:   "linux",
		Repo:      ".",
		Output:    "table",
		LogLevel:  "warn",
		LogFormat: "human",
		Workers:   4,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MergeFlags(cfg *Config, flags *pflag.FlagSet) *Config {
	if v, err := flags.GetString("project"); err == nil && v != "" {
		cfg.Project = v
	}
	if v, err := flags.GetString("repo"); err == nil && v != "" {
		cfg.Repo = v
	}
	if v, err := flags.GetString("github"); err == nil && v != "" {
		cfg.GitHub = v
	}
	if v, err := flags.GetString("github-token"); err == nil && v != "" {
		cfg.Token = v
	}
	if v, err := flags.GetString("output"); err == nil && v != "" {
		cfg.Output = v
	}
	if v, err := flags.GetString("log-level"); err == nil && v != "" {
		cfg.LogLevel = v
	}
	if v, err := flags.GetInt("workers"); err == nil && v > 0 {
		cfg.Workers = v
	}
	return cfg
}

// Convention compiles the naming rules for the configured project. Rules in
// the config file override the shipped ones.
func (c *Config) Convention() (*tags.Convention, error) {
	if r, ok := c.Conventions[c.Project]; ok {
		return tags.Compile(c.Project, r)
	}
	if r, ok := tags.Builtin(c.Project); ok {
		return tags.Compile(c.Project, r)
	}
	return nil, fmt.Errorf("no naming convention for project %q (known: %v)", c.Project, tags.BuiltinNames())
}
