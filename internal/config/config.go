package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Keycloak struct {
		URL                string `yaml:"url"`
		Realm              string `yaml:"realm"`
		ClientID           string `yaml:"client_id"`
		ClientSecret       string `yaml:"client_secret"`
		RefreshToken       string `yaml:"refresh_token"`
		MinValiditySeconds int    `yaml:"min_validity_seconds"`
	} `yaml:"keycloak"`

	API struct {
		BaseURL         string  `yaml:"base_url"`
		TimeoutSeconds  int     `yaml:"timeout_seconds"`
		CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
		RateLimit       float64 `yaml:"rate_limit"`
		RateBurst       int     `yaml:"rate_burst"`
	} `yaml:"api"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Calendar struct {
		FacilityID   string `yaml:"facility_id"`
		Timezone     string `yaml:"timezone"`
		DayStartHour int    `yaml:"day_start_hour"`
		DayEndHour   int    `yaml:"day_end_hour"`
	} `yaml:"calendar"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8081/api"
	}
	if cfg.Keycloak.URL == "" {
		cfg.Keycloak.URL = "http://localhost:8080"
	}
	if cfg.Keycloak.Realm == "" {
		cfg.Keycloak.Realm = "smiles"
	}
	if cfg.Keycloak.ClientID == "" {
		cfg.Keycloak.ClientID = "smiles-frontend"
	}

	return &cfg, nil
}

// TokenMinValidity is the lookahead within which a token is refreshed
// before an outgoing call.
func (c *Config) TokenMinValidity() time.Duration {
	if c.Keycloak.MinValiditySeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Keycloak.MinValiditySeconds) * time.Second
}

func (c *Config) APITimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	if c.API.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

// Location resolves the facility-local time zone, falling back to the
// process-local zone when unset or unknown.
func (c *Config) Location() *time.Location {
	if c.Calendar.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// BusinessHours returns the displayed grid window as [start, end) hours.
func (c *Config) BusinessHours() (int, int) {
	start, end := c.Calendar.DayStartHour, c.Calendar.DayEndHour
	if start <= 0 && end <= 0 {
		return 8, 18
	}
	if end <= start {
		return 8, 18
	}
	return start, end
}
