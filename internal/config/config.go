// Package config loads the orchestrator's configuration from an optional
// YAML file layered with environment-variable overrides: defaults first,
// then YAML (with ${VAR}/$VAR expansion), then explicit env vars.
package config

import (
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AdvisorConfig configures the external AI advisor oracle: which
// provider to call, how long to wait for it, how long to trust its
// recommendation, and the confidence floor below which the deterministic
// fallback takes over instead.
type AdvisorConfig struct {
	Provider        string        `yaml:"provider" default:"claude"`
	APIKey          string        `yaml:"api_key"`
	Model           string        `yaml:"model" default:"claude-3-haiku-20240307"`
	Timeout         time.Duration `yaml:"timeout" default:"30s"`
	CacheTTL        time.Duration `yaml:"cache_ttl" default:"24h"`
	MinConfidence   float64       `yaml:"min_confidence" default:"0.5"`
	HTMLSampleBytes int           `yaml:"html_sample_bytes" default:"6144"`
}

// RateLimitConfig configures the per-host adaptive rate limiter.
// GlobalRPS caps total outbound request rate across all hosts on top of
// the per-host minimum delays; 0 disables the global cap.
type RateLimitConfig struct {
	BaselineDelay  time.Duration `yaml:"baseline_delay" default:"2s"`
	CeilingDelay   time.Duration `yaml:"ceiling_delay" default:"60s"`
	CooldownWindow time.Duration `yaml:"cooldown_window" default:"5m"`
	MaxConcurrent  int           `yaml:"max_concurrent_per_host" default:"4"`
	GlobalRPS      float64       `yaml:"global_rps" default:"10"`
	GlobalBurst    int           `yaml:"global_burst" default:"5"`
}

// DedupConfig configures the fingerprint store used by the deduplicator.
type DedupConfig struct {
	StoreCapacity       int     `yaml:"store_capacity" default:"10000"`
	EvictionBatch       int     `yaml:"eviction_batch" default:"1000"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" default:"0.85"`
	UseRedis            bool    `yaml:"use_redis" default:"false"`
}

// RedisConfig configures the optional Redis-backed dedup/cache store.
type RedisConfig struct {
	URL      string        `yaml:"url" default:"redis://localhost:6379"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" default:"0"`
	Timeout  time.Duration `yaml:"timeout" default:"5s"`
}

// PostgresConfig configures the persistence backend.
type PostgresConfig struct {
	DSN            string        `yaml:"dsn"`
	MaxConns       int           `yaml:"max_conns" default:"10"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"10s"`
}

// Config is the root application configuration.
type Config struct {
	Server struct {
		Port         int           `yaml:"port" default:"8080"`
		Host         string        `yaml:"host" default:"0.0.0.0"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
	} `yaml:"server"`

	Workers struct {
		PoolSize      int           `yaml:"pool_size" default:"5"`
		QueueCapacity int           `yaml:"queue_capacity" default:"1000"`
		MaxRetries    int           `yaml:"max_retries" default:"3"`
		TaskDeadline  time.Duration `yaml:"task_deadline" default:"10m"`
		StopDrainWait time.Duration `yaml:"stop_drain_wait" default:"15s"`
	} `yaml:"workers"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Engines struct {
		RequestTimeout    time.Duration `yaml:"request_timeout" default:"30s"`
		PageLoadTimeout   time.Duration `yaml:"page_load_timeout" default:"30s"`
		SelectorWait      time.Duration `yaml:"selector_wait" default:"10s"`
		ProbeTimeout      time.Duration `yaml:"probe_timeout" default:"10s"`
		MaxPagesPerRun    int           `yaml:"max_pages_per_run" default:"10"`
		MaxHTTPRetries    int           `yaml:"max_http_retries" default:"3"`
		UserAgents        []string      `yaml:"user_agents"`
		BrowserPoolSize   int           `yaml:"browser_pool_size" default:"2"`
		StealthMode       bool          `yaml:"stealth_mode" default:"true"`
		Captcha           struct {
			Provider        string        `yaml:"provider" default:"2captcha"`
			APIKey          string        `yaml:"api_key"`
			Timeout         time.Duration `yaml:"timeout" default:"120s"`
			EnableAutoSolve bool          `yaml:"enable_auto_solve" default:"false"`
		} `yaml:"captcha"`
	} `yaml:"engines"`

	Advisor AdvisorConfig `yaml:"advisor"`

	Dedup DedupConfig `yaml:"dedup"`

	Telemetry struct {
		SeriesCapacity int `yaml:"series_capacity" default:"1000"`
		AlertDedupWindow time.Duration `yaml:"alert_dedup_window" default:"5m"`
	} `yaml:"telemetry"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`

		Adapters []struct {
			Name    string                 `yaml:"name"`
			Type    string                 `yaml:"type"`
			Enabled bool                   `yaml:"enabled"`
			Options map[string]interface{} `yaml:"options"`
		} `yaml:"adapters"`
	} `yaml:"logging"`

	Redis RedisConfig `yaml:"redis"`

	Postgres PostgresConfig `yaml:"postgres"`
}

// expandEnvVars expands ${VAR} and $VAR references in s using os.Getenv.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

// Load loads configuration from an optional YAML file and environment
// variables. A missing configPath is not an error; defaults and env
// vars still apply.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	applyDefaults(cfg)

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			yamlContent := expandEnvVars(string(data))
			if err := yaml.Unmarshal([]byte(yamlContent), cfg); err != nil {
				return nil, err
			}
		}
	}

	cfg.loadFromEnv()
	return cfg, nil
}

func applyDefaults(c *Config) {
	c.Server.Port = 8080
	c.Server.Host = "0.0.0.0"
	c.Server.ReadTimeout = 30 * time.Second
	c.Server.WriteTimeout = 30 * time.Second

	c.Workers.PoolSize = 5
	c.Workers.QueueCapacity = 1000
	c.Workers.MaxRetries = 3
	c.Workers.TaskDeadline = 10 * time.Minute
	c.Workers.StopDrainWait = 15 * time.Second

	c.RateLimit.BaselineDelay = 2 * time.Second
	c.RateLimit.CeilingDelay = 60 * time.Second
	c.RateLimit.CooldownWindow = 5 * time.Minute
	c.RateLimit.MaxConcurrent = 4
	c.RateLimit.GlobalRPS = 10
	c.RateLimit.GlobalBurst = 5

	c.Engines.RequestTimeout = 30 * time.Second
	c.Engines.PageLoadTimeout = 30 * time.Second
	c.Engines.SelectorWait = 10 * time.Second
	c.Engines.ProbeTimeout = 10 * time.Second
	c.Engines.MaxPagesPerRun = 10
	c.Engines.MaxHTTPRetries = 3
	c.Engines.BrowserPoolSize = 2
	c.Engines.StealthMode = true
	c.Engines.UserAgents = []string{
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
	c.Engines.Captcha.Provider = "2captcha"
	c.Engines.Captcha.Timeout = 120 * time.Second

	c.Advisor.Provider = "claude"
	c.Advisor.Model = "claude-3-haiku-20240307"
	c.Advisor.Timeout = 30 * time.Second
	c.Advisor.CacheTTL = 24 * time.Hour
	c.Advisor.MinConfidence = 0.5
	c.Advisor.HTMLSampleBytes = 6144

	c.Dedup.StoreCapacity = 10000
	c.Dedup.EvictionBatch = 1000
	c.Dedup.SimilarityThreshold = 0.85

	c.Telemetry.SeriesCapacity = 1000
	c.Telemetry.AlertDedupWindow = 5 * time.Minute

	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.Logging.Output = "stdout"

	c.Redis.URL = "redis://localhost:6379"
	c.Redis.Timeout = 5 * time.Second

	c.Postgres.MaxConns = 10
	c.Postgres.ConnectTimeout = 10 * time.Second
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("ADVISOR_API_KEY"); v != "" {
		c.Advisor.APIKey = v
	}
	if v := os.Getenv("ADVISOR_PROVIDER"); v != "" {
		c.Advisor.Provider = v
	}
	if v := os.Getenv("ADVISOR_MODEL"); v != "" {
		c.Advisor.Model = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("CAPTCHA_API_KEY"); v != "" {
		c.Engines.Captcha.APIKey = v
	}
	if v := os.Getenv("2CAPTCHA_API_KEY"); v != "" {
		c.Engines.Captcha.APIKey = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("WORKERS_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers.PoolSize = n
		}
	}
	if v := os.Getenv("WORKERS_QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers.QueueCapacity = n
		}
	}
}
