package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/pggraphql/internal/schema"
)

const (
	maxWalkDepth = 25
)

// Config represents the configuration from pggraphql.yaml.
type Config struct {
	// SchemaDir is the directory holding the CUE schema definition.
	SchemaDir string `mapstructure:"schema_dir"`

	// Naming selects default-name inflection: "inflect" or "none".
	Naming string `mapstructure:"naming"`

	Database DatabaseConfig `mapstructure:"database"`
	Compile  CompileConfig  `mapstructure:"compile"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// CompileConfig holds compile command settings.
type CompileConfig struct {
	// Pretty indents JSON output.
	Pretty bool `mapstructure:"pretty"`
}

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > config file > defaults. Flags are applied by the caller.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	// 1. Set defaults first (lowest precedence)
	setDefaults(v)

	// 2. Set up environment variable binding
	v.SetEnvPrefix("PGGRAPHQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 3. Find and load config file
	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	// 4. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	if _, ok := schema.InflectorByName(cfg.Naming); !ok {
		return nil, configPath, fmt.Errorf("invalid naming %q: must be inflect or none", cfg.Naming)
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("schema_dir", "schema")
	v.SetDefault("naming", "inflect")
	v.SetDefault("database.url", "")
	v.SetDefault("compile.pretty", false)
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for pggraphql.yaml or pggraphql.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range []string{"pggraphql.yaml", "pggraphql.yml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		// Check for repo boundary (.git file or directory)
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil // No config found, use defaults
}

// Inflector returns the configured naming inflector.
func (c *Config) Inflector() schema.Inflector {
	i, ok := schema.InflectorByName(c.Naming)
	if !ok {
		return schema.EnglishInflector{}
	}
	return i
}

// DSN returns the database connection string.
func (c *Config) DSN() (string, error) {
	if c.Database.URL == "" {
		return "", fmt.Errorf("database.url is required (flag --db or PGGRAPHQL_DATABASE_URL)")
	}
	return c.Database.URL, nil
}
