package tools

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the yaml config of one database handle
type Config struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Server   string `yaml:"server"`
	Port     int    `yaml:"port"`
	DBName   string `yaml:"dbname"`

	Log LogConfig `yaml:"log"`

	// specialized types, keyed by the collection or graph name they stand for
	CollectionTypes []CollectionTypeConfig `yaml:"collectionTypes"`
	GraphTypes      []GraphDefinition      `yaml:"graphTypes"`
}

// CollectionTypeConfig declares a specialized collection type
type CollectionTypeConfig struct {
	Name string `yaml:"name"`
	// Edge marks an edge collection type, document otherwise
	Edge bool `yaml:"edge"`
	// Defaults are merged into the creation payload
	Defaults map[string]interface{} `yaml:"defaults"`
}

// DefaultConfig returns the config of a local server with the _system database
func DefaultConfig() Config {
	return Config{
		Username: "root",
		Server:   "http://localhost",
		Port:     8529,
		DBName:   "_system",
		Log: LogConfig{
			Enabled: true,
			Level:   "info",
			Output:  "stdout",
		},
	}
}

// Endpoint joins server and port
func (c Config) Endpoint() string {
	return c.Server + ":" + strconv.Itoa(c.Port)
}

// Validate checks the fields needed to reach the server
func (c Config) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("server is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	if c.DBName == "" {
		return fmt.Errorf("dbname is required")
	}
	seen := make(map[string]struct{})
	for _, ct := range c.CollectionTypes {
		if ct.Name == "" {
			return fmt.Errorf("collection type without name")
		}
		if _, ok := seen[ct.Name]; ok {
			return fmt.Errorf("collection type %s declared twice", ct.Name)
		}
		seen[ct.Name] = struct{}{}
	}
	for _, gt := range c.GraphTypes {
		if gt.Name == "" {
			return fmt.Errorf("graph type without name")
		}
	}
	return nil
}

// LoadConfig reads the yaml file at path on top of DefaultConfig
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	yamlData, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(yamlData, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
