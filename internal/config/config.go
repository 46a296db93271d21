package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the service configuration. The `mapstructure` tags are used by
// Viper to map keys from config.yaml and the environment onto the struct.
type Config struct {
	Server struct {
		Port         string        `mapstructure:"port"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
		IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	} `mapstructure:"server"`

	Log struct {
		Level  string `mapstructure:"level"`
		Pretty bool   `mapstructure:"pretty"`
	} `mapstructure:"log"`

	AI struct {
		APIKey         string `mapstructure:"api_key"`
		ChatModel      string `mapstructure:"chat_model"`
		VisionModel    string `mapstructure:"vision_model"`
		ImageModel     string `mapstructure:"image_model"`
		StatementModel string `mapstructure:"statement_model"`
		FollowUpModel  string `mapstructure:"follow_up_model"`
	} `mapstructure:"ai"`

	Storage struct {
		Bucket               string        `mapstructure:"bucket"`
		GeneratedImagePrefix string        `mapstructure:"generated_image_prefix"`
		FileExplorerPrefix   string        `mapstructure:"file_explorer_prefix"`
		SignedURLTTL         time.Duration `mapstructure:"signed_url_ttl"`
	} `mapstructure:"storage"`

	Store struct {
		Driver   string `mapstructure:"driver"`
		BigQuery struct {
			ProjectID string `mapstructure:"project_id"`
			Dataset   string `mapstructure:"dataset"`
		} `mapstructure:"bigquery"`
		Mongo struct {
			URI      string `mapstructure:"uri"`
			Database string `mapstructure:"database"`
		} `mapstructure:"mongo"`
	} `mapstructure:"store"`

	Auth struct {
		JWTSecret string        `mapstructure:"jwt_secret"`
		TokenTTL  time.Duration `mapstructure:"token_ttl"`
		Required  bool          `mapstructure:"required"`
	} `mapstructure:"auth"`

	Cleanup struct {
		GeneratedImageDelay time.Duration `mapstructure:"generated_image_delay"`
		AnalyzedImageDelay  time.Duration `mapstructure:"analyzed_image_delay"`
		SourcePDFDelay      time.Duration `mapstructure:"source_pdf_delay"`
		SweepAge            time.Duration `mapstructure:"sweep_age"`
		SweepLimit          int           `mapstructure:"sweep_limit"`
	} `mapstructure:"cleanup"`

	Extraction struct {
		PollInterval time.Duration `mapstructure:"poll_interval"`
		MaxPolls     int           `mapstructure:"max_polls"`
	} `mapstructure:"extraction"`

	Notion struct {
		Token      string `mapstructure:"token"`
		DatabaseID string `mapstructure:"database_id"`
	} `mapstructure:"notion"`
}

// Store drivers.
const (
	DriverBigQuery = "bigquery"
	DriverMongo    = "mongo"
	// DriverMemory keeps turns and accounts in process. Local development only.
	DriverMemory = "memory"
)

// envAliases binds the conventional variable names the deployment already uses.
var envAliases = map[string]string{
	"server.port":               "PORT",
	"ai.api_key":                "GOOGLE_API_KEY",
	"storage.bucket":            "GCS_BUCKET",
	"auth.jwt_secret":           "JWT_SECRET",
	"store.mongo.uri":           "MONGODB_URI",
	"store.bigquery.project_id": "GOOGLE_CLOUD_PROJECT",
	"notion.token":              "NOTION_TOKEN",
	"notion.database_id":        "NOTION_DATABASE_ID",
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Minute)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)

	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.chat_model", "gemini-2.0-flash")
	v.SetDefault("ai.vision_model", "gemini-2.0-flash")
	v.SetDefault("ai.image_model", "gemini-2.0-flash-preview-image-generation")
	v.SetDefault("ai.statement_model", "gemini-2.0-flash")
	v.SetDefault("ai.follow_up_model", "gemini-2.5-flash")

	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.generated_image_prefix", "imageBot_generated_image")
	v.SetDefault("storage.file_explorer_prefix", "file-explorer")
	v.SetDefault("storage.signed_url_ttl", 15*time.Minute)

	v.SetDefault("store.driver", DriverBigQuery)
	v.SetDefault("store.bigquery.project_id", "")
	v.SetDefault("store.bigquery.dataset", "imagexbot")
	v.SetDefault("store.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo.database", "imagexbot")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", time.Duration(0))
	v.SetDefault("auth.required", false)

	v.SetDefault("cleanup.generated_image_delay", 5*time.Minute)
	v.SetDefault("cleanup.analyzed_image_delay", 2*time.Minute)
	v.SetDefault("cleanup.source_pdf_delay", 10*time.Second)
	v.SetDefault("cleanup.sweep_age", 5*time.Minute)
	v.SetDefault("cleanup.sweep_limit", 30)

	v.SetDefault("extraction.poll_interval", 5*time.Second)
	v.SetDefault("extraction.max_polls", 60)

	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")
}

// Load reads config.yaml (if present) from the working directory or
// /etc/imagexbot and applies environment overrides on top of the defaults.
func Load() (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/imagexbot")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("Load: reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper binds environment variables and decodes the configuration.
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("IMAGEXBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range envAliases {
		if err := v.BindEnv(key, "IMAGEXBOT_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("FromViper: binding %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("FromViper: could not map the configuration to the struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverBigQuery, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("Validate: unknown store driver %q", c.Store.Driver)
	}
	if c.Extraction.PollInterval <= 0 {
		return fmt.Errorf("Validate: extraction.poll_interval must be positive")
	}
	if c.Extraction.MaxPolls <= 0 {
		return fmt.Errorf("Validate: extraction.max_polls must be positive")
	}
	return nil
}
