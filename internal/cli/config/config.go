// Package config loads the routable.yml project configuration: the database
// connection, the resources records come from, the connected route templates
// and the routable groups bound to them.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/conduit-lang/routable/internal/orm/schema"
	"github.com/conduit-lang/routable/internal/orm/store"
	"github.com/conduit-lang/routable/internal/routable"
	"github.com/conduit-lang/routable/internal/routing"
)

// Config represents the routable configuration
type Config struct {
	Database  DatabaseConfig         `mapstructure:"database"`
	BaseURL   string                 `mapstructure:"base_url"`
	MaxDepth  int                    `mapstructure:"max_depth"`
	Resources []ResourceConfig       `mapstructure:"resources"`
	Routes    []RouteConfig          `mapstructure:"routes"`
	Groups    []routable.GroupConfig `mapstructure:"groups"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

// ResourceConfig describes one stored resource
type ResourceConfig struct {
	Name          string               `mapstructure:"name"`
	Table         string               `mapstructure:"table"`
	PrimaryKey    string               `mapstructure:"primary_key"`
	Columns       []string             `mapstructure:"columns"`
	Computed      map[string]string    `mapstructure:"computed"`
	Relationships []RelationshipConfig `mapstructure:"relationships"`
}

// RelationshipConfig describes an association that can be included by find
type RelationshipConfig struct {
	Type       string `mapstructure:"type"`
	Target     string `mapstructure:"target"`
	Field      string `mapstructure:"field"`
	ForeignKey string `mapstructure:"foreign_key"`
}

// RouteConfig is a route template to connect
type RouteConfig struct {
	Pattern  string            `mapstructure:"pattern"`
	Defaults map[string]string `mapstructure:"defaults"`
}

var supportedDrivers = map[string]bool{"pgx": true, "sqlite3": true}

// Load reads the configuration from path, or from routable.yml / routable.yaml
// in the working directory when path is empty. ROUTABLE_* environment variables
// override file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database.driver", "pgx")
	v.SetDefault("database.url", "")
	v.SetDefault("base_url", "")
	v.SetDefault("max_depth", store.DefaultMaxDepth)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("routable")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ROUTABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no config file, run on defaults and environment
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DatabaseURL returns the connection string, preferring DATABASE_URL
func (c *Config) DatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return c.Database.URL
}

// BuildResources registers every configured resource
func (c *Config) BuildResources() (*schema.Registry, error) {
	reg := schema.NewRegistry()
	for _, rc := range c.Resources {
		res := schema.NewResource(rc.Name)
		if rc.Table != "" {
			res.WithTable(rc.Table)
		}
		if rc.PrimaryKey != "" {
			res.PrimaryKey = rc.PrimaryKey
		}
		res.WithColumns(rc.Columns...)

		names := make([]string, 0, len(rc.Computed))
		for name := range rc.Computed {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			res.AddComputed(name, rc.Computed[name])
		}

		for _, relc := range rc.Relationships {
			relType, err := schema.ParseRelationType(relc.Type)
			if err != nil {
				return nil, fmt.Errorf("resource %s: %w", rc.Name, err)
			}
			res.AddRelationship(&schema.Relationship{
				Type:           relType,
				TargetResource: relc.Target,
				FieldName:      relc.Field,
				ForeignKey:     relc.ForeignKey,
			})
		}

		if err := reg.Register(res); err != nil {
			return nil, err
		}
	}

	if err := reg.ValidateRelationships(); err != nil {
		return nil, err
	}
	return reg, nil
}

// BuildRoutes connects every configured route template
func (c *Config) BuildRoutes() (*routing.Registry, error) {
	routes := routing.NewRegistry(c.BaseURL)
	for _, rc := range c.Routes {
		if _, err := routes.Connect(rc.Pattern, rc.Defaults); err != nil {
			return nil, err
		}
	}
	return routes, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if !supportedDrivers[cfg.Database.Driver] {
		return fmt.Errorf("database.driver must be one of pgx, sqlite3, got: %s", cfg.Database.Driver)
	}
	if cfg.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got: %d", cfg.MaxDepth)
	}
	if cfg.BaseURL != "" && !strings.Contains(cfg.BaseURL, "://") {
		return fmt.Errorf("base_url must be absolute, got: %s", cfg.BaseURL)
	}
	for i, rc := range cfg.Resources {
		if rc.Name == "" {
			return fmt.Errorf("resources[%d] has no name", i)
		}
	}
	for i, rc := range cfg.Routes {
		if !strings.HasPrefix(rc.Pattern, "/") {
			return fmt.Errorf("routes[%d].pattern must start with '/', got: %s", i, rc.Pattern)
		}
	}
	for i, gc := range cfg.Groups {
		if gc.Name == "" {
			return fmt.Errorf("groups[%d] has no name", i)
		}
	}
	return nil
}
