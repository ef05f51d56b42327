/*
Package config loads service configuration.

SOURCES (later wins):
  1. Built-in defaults (setDefaults)
  2. YAML file passed with --config (optional)
  3. Environment, prefix LIFECALLER_, dots become underscores
     e.g. LIFECALLER_AUTH_SECRET, LIFECALLER_REDIS_ADDR

EXAMPLE FILE:
  server:
    port: 8080
    cors_origins: ["http://localhost:5173"]
  database:
    path: ./data/lifecaller.db
  redis:
    addr: localhost:6379
    ttl: 10m
  auth:
    secret: change-me
    roles:
      calculista: [simulate]
      admin: [simulate, supervise, manage_coefficients]
  policy:
    capability: simulate
    enforce_assignment: false
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lifecaller/simulator/auth"
	"github.com/lifecaller/simulator/simulation"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	Store    StoreConfig    `mapstructure:"store"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig configures the coefficient cache. An empty Addr disables it.
type RedisConfig struct {
	Addr string        `mapstructure:"addr"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type AuthConfig struct {
	Secret   string              `mapstructure:"secret"`
	TokenTTL time.Duration       `mapstructure:"token_ttl"`
	Roles    map[string][]string `mapstructure:"roles"`
}

type PolicyConfig struct {
	Capability        string `mapstructure:"capability"`
	EnforceAssignment bool   `mapstructure:"enforce_assignment"`
}

type StoreConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads configuration from path (may be empty) and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("lifecaller")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://localhost:8080"})

	v.SetDefault("database.path", "lifecaller.db")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.ttl", 10*time.Minute)

	// AutomaticEnv only sees keys viper already knows about.
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", 8*time.Hour)

	v.SetDefault("policy.capability", string(simulation.CapSimulate))
	v.SetDefault("policy.enforce_assignment", false)

	v.SetDefault("store.timeout", simulation.DefaultLookupTimeout)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Validate checks values that have no safe fallback.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.Policy.Capability == "" {
		return errors.New("policy.capability is required")
	}
	return nil
}

// RequireSecret fails when no signing secret is configured.
func (c *Config) RequireSecret() error {
	if c.Auth.Secret == "" {
		return errors.New("auth.secret is required (set LIFECALLER_AUTH_SECRET)")
	}
	return nil
}

// RoleMap returns the configured role table, or the defaults when none is set.
func (c *Config) RoleMap() auth.RoleMap {
	if len(c.Auth.Roles) == 0 {
		return auth.DefaultRoles()
	}
	m := make(auth.RoleMap, len(c.Auth.Roles))
	for role, caps := range c.Auth.Roles {
		for _, name := range caps {
			m[role] = append(m[role], simulation.Capability(name))
		}
	}
	return m
}

// AccessPolicy builds the simulation policy from the policy section.
func (c *Config) AccessPolicy() *simulation.Policy {
	var rules []simulation.RecordRule
	if c.Policy.EnforceAssignment {
		rules = append(rules, simulation.AssignmentRule{Override: simulation.CapSupervise})
	}
	return simulation.NewPolicy(simulation.Capability(c.Policy.Capability), rules...)
}
