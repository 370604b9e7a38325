package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the NOC analyst service.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	ServiceDesk ServiceDeskConfig `yaml:"serviceDesk"`
	Storage     StorageConfig     `yaml:"storage"`
	Analysis    AnalysisConfig    `yaml:"analysis"`
	SLA         SLAConfig         `yaml:"sla"`
	Escalation  EscalationConfig  `yaml:"escalation"`
	Solutions   SolutionsConfig   `yaml:"solutions"`
	Logging     LoggingConfig     `yaml:"logging"`
	Cache       CacheConfig       `yaml:"cache"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// ServiceDeskConfig configures access to the service desk collaborator APIs.
type ServiceDeskConfig struct {
	BaseURL     string        `yaml:"baseURL"`
	CatalogPath string        `yaml:"catalogPath"`
	ChangesPath string        `yaml:"changesPath"`
	KBPath      string        `yaml:"kbPath"`
	HistoryPath string        `yaml:"historyPath"`
	Timeout     time.Duration `yaml:"timeout"`
}

// StorageConfig locates the ticket database and optional roster file.
type StorageConfig struct {
	TicketDBPath string `yaml:"ticketDBPath"`
	RosterPath   string `yaml:"rosterPath"`
}

// AnalysisConfig tunes the diagnosis pipeline.
type AnalysisConfig struct {
	StageTimeout      time.Duration `yaml:"stageTimeout"`
	ChangeWindowHours int           `yaml:"changeWindowHours"`
}

// SLAConfig sets resolution windows per priority.
type SLAConfig struct {
	Critical time.Duration `yaml:"critical"`
	High     time.Duration `yaml:"high"`
	Medium   time.Duration `yaml:"medium"`
	Low      time.Duration `yaml:"low"`
}

// EscalationConfig tunes the escalation sweep.
type EscalationConfig struct {
	Interval time.Duration `yaml:"interval"`
	Critical RuleConfig    `yaml:"critical"`
	High     RuleConfig    `yaml:"high"`
	Medium   RuleConfig    `yaml:"medium"`
	Low      RuleConfig    `yaml:"low"`
}

// RuleConfig is one priority's escalation rule.
type RuleConfig struct {
	MaxAge time.Duration `yaml:"maxAge"`
	Target string        `yaml:"target"`
}

// SolutionsConfig controls template-pack loading for the solution generator.
type SolutionsConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls Valkey-backed caching of collaborator lookups.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	CatalogTTL   time.Duration `yaml:"catalogTTL"`
	KnowledgeTTL time.Duration `yaml:"knowledgeTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("NOC_ANALYST_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		ServiceDesk: ServiceDeskConfig{
			CatalogPath: "/api/v1/catalog/resolve",
			ChangesPath: "/api/v1/changes/recent",
			KBPath:      "/api/v1/kb/search",
			HistoryPath: "/api/v1/incidents/search",
			Timeout:     5 * time.Second,
		},
		Storage: StorageConfig{
			TicketDBPath: "data/tickets.db",
		},
		Analysis: AnalysisConfig{
			StageTimeout:      5 * time.Second,
			ChangeWindowHours: 48,
		},
		SLA: SLAConfig{
			Critical: time.Hour,
			High:     4 * time.Hour,
			Medium:   8 * time.Hour,
			Low:      24 * time.Hour,
		},
		Escalation: EscalationConfig{
			Interval: time.Minute,
			Critical: RuleConfig{MaxAge: 30 * time.Minute, Target: "L3"},
			High:     RuleConfig{MaxAge: 60 * time.Minute, Target: "L2"},
			Medium:   RuleConfig{MaxAge: 120 * time.Minute, Target: "L2"},
			Low:      RuleConfig{MaxAge: 240 * time.Minute, Target: "L1"},
		},
		Solutions: SolutionsConfig{Path: ""},
		Logging:   LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			CatalogTTL:   5 * time.Minute,
			KnowledgeTTL: 2 * time.Minute,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NOC_ANALYST_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("NOC_ANALYST_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("NOC_ANALYST_SERVICE_DESK_URL"); v != "" {
		cfg.ServiceDesk.BaseURL = v
	}
	if v := os.Getenv("NOC_ANALYST_SERVICE_DESK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ServiceDesk.Timeout = d
		}
	}
	if v := os.Getenv("NOC_ANALYST_TICKET_DB"); v != "" {
		cfg.Storage.TicketDBPath = v
	}
	if v := os.Getenv("NOC_ANALYST_ROSTER_PATH"); v != "" {
		cfg.Storage.RosterPath = v
	}
	if v := os.Getenv("NOC_ANALYST_STAGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analysis.StageTimeout = d
		}
	}
	if v := os.Getenv("NOC_ANALYST_CHANGE_WINDOW_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.ChangeWindowHours = hours
		}
	}
	if v := os.Getenv("NOC_ANALYST_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Escalation.Interval = d
		}
	}
	if v := os.Getenv("NOC_ANALYST_SOLUTIONS_PATH"); v != "" {
		cfg.Solutions.Path = v
	}
	if v := os.Getenv("NOC_ANALYST_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NOC_ANALYST_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("NOC_ANALYST_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("NOC_ANALYST_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("NOC_ANALYST_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("NOC_ANALYST_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("NOC_ANALYST_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("NOC_ANALYST_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("NOC_ANALYST_CACHE_CATALOG_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.CatalogTTL = d
		}
	}
	if v := os.Getenv("NOC_ANALYST_CACHE_KNOWLEDGE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.KnowledgeTTL = d
		}
	}
}
