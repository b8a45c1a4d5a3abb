// Package config loads the engine's configuration from the environment and
// an optional heuristics YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable named in the external interfaces design: the
// crawl engine's own settings plus the media-analyzer bounds and relevance
// gate settings it hands down to those collaborators.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`

	DataLocation           string        `env:"DATA_LOCATION" envDefault:"./data"`
	ParallelConnections    int           `env:"PARALLEL_CONNECTIONS" envDefault:"10"`
	UserAgent              string        `env:"USER_AGENT" envDefault:"landcrawl/1.0"`
	DefaultTimeout         time.Duration `env:"DEFAULT_TIMEOUT" envDefault:"10s"`
	ArchivalTimeout        time.Duration `env:"ARCHIVAL_TIMEOUT" envDefault:"10s"`
	Archive                bool          `env:"ARCHIVE" envDefault:"true"`
	HeuristicsFile         string        `env:"HEURISTICS_FILE" envDefault:"./heuristics.yaml"`
	DynamicMediaExtraction bool          `env:"DYNAMIC_MEDIA_EXTRACTION" envDefault:"false"`

	// Media analyzer bounds, consumed by the external media-analysis
	// collaborator; the engine only carries and forwards these.
	MediaMinWidth   int           `env:"MEDIA_MIN_WIDTH" envDefault:"200"`
	MediaMinHeight  int           `env:"MEDIA_MIN_HEIGHT" envDefault:"200"`
	MediaMaxBytes   int64         `env:"MEDIA_MAX_BYTES" envDefault:"10485760"`
	MediaTimeout    time.Duration `env:"MEDIA_TIMEOUT" envDefault:"10s"`
	MediaMaxRetries int           `env:"MEDIA_MAX_RETRIES" envDefault:"2"`

	// Opaque relevance gate: an optional LLM pass applied on top of the
	// lexical scorer. Disabled by default; the engine must run correctly
	// with no key configured at all.
	RelevanceGateEnabled   bool   `env:"RELEVANCE_GATE_ENABLED" envDefault:"false"`
	RelevanceGateAPIKey    string `env:"RELEVANCE_GATE_API_KEY"`
	RelevanceGateModel     string `env:"RELEVANCE_GATE_MODEL" envDefault:"gpt-4o-mini"`
	RelevanceGateBaseURL   string `env:"RELEVANCE_GATE_BASE_URL"`
	RelevanceGateMaxPerRun int    `env:"RELEVANCE_GATE_MAX_PER_RUN" envDefault:"500"`
	RelevanceGateTextCap   int    `env:"RELEVANCE_GATE_TEXT_CAP" envDefault:"4000"`

	HealthPort int    `env:"HEALTH_PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads Config from the environment, applying a .env file first if
// present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Heuristic is one entry of the heuristics file: a host suffix and the
// regular expression used to rewrite a matching URL into its domain
// identity.
type Heuristic struct {
	Suffix string `yaml:"suffix"`
	Regex  string `yaml:"regex"`
}

// LoadHeuristics reads the YAML heuristics file named by c.HeuristicsFile.
// A missing file is not an error: heuristic domain-identity rewriting is
// optional, and its absence just means every domain resolves to its bare
// host.
func (c *Config) LoadHeuristics() ([]Heuristic, error) {
	data, err := os.ReadFile(c.HeuristicsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("read heuristics file: %w", err)
	}

	var entries []Heuristic
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse heuristics file: %w", err)
	}

	return entries, nil
}
