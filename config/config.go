package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// ClientEnvPrefix marks variables that are also exposed to browser builds.
// Prefixed names win over plain names so one .env file can serve both.
const ClientEnvPrefix = "VITE_"

// Config holds runtime settings for the gateway and the recorder client.
type Config struct {
	Port string `mapstructure:"port" yaml:"port"`
	// AppURL is the public origin of the front end, used for auth email redirects.
	AppURL string `mapstructure:"app_url" yaml:"app_url"`

	SupabaseURL        string `mapstructure:"supabase_url" yaml:"supabase_url"`
	SupabaseKey        string `mapstructure:"supabase_key" yaml:"supabase_key"`
	SupabaseServiceKey string `mapstructure:"supabase_service_key" yaml:"supabase_service_key"`
	SupabaseJWTSecret  string `mapstructure:"supabase_jwt_secret" yaml:"supabase_jwt_secret"`

	BackendURL     string        `mapstructure:"backend_url" yaml:"backend_url"`
	BackendTimeout time.Duration `mapstructure:"backend_timeout" yaml:"backend_timeout"`

	StorageDriver string        `mapstructure:"storage_driver" yaml:"storage_driver"` // "supabase" or "s3"
	StorageBucket string        `mapstructure:"storage_bucket" yaml:"storage_bucket"`
	SignedURLTTL  time.Duration `mapstructure:"signed_url_ttl" yaml:"signed_url_ttl"`

	S3Region       string `mapstructure:"s3_region" yaml:"s3_region"`
	S3Endpoint     string `mapstructure:"s3_endpoint" yaml:"s3_endpoint"`
	S3AccessKey    string `mapstructure:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey    string `mapstructure:"s3_secret_key" yaml:"s3_secret_key"`
	S3UsePathStyle bool   `mapstructure:"s3_use_path_style" yaml:"s3_use_path_style"`

	// DatabaseURL switches history to a direct SQL connection instead of PostgREST.
	DatabaseURL    string `mapstructure:"database_url" yaml:"database_url"`
	DatabaseDriver string `mapstructure:"database_driver" yaml:"database_driver"` // "pgx" or "sqlite"

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Port = "3000"
	c.AppURL = "http://localhost:3000"
	c.BackendURL = "http://localhost:8000"
	c.StorageDriver = "supabase"
	c.StorageBucket = "audio-uploads"
	c.SignedURLTTL = 10 * time.Minute
	c.S3Region = "us-east-1"
	c.DatabaseDriver = "pgx"
	c.LogLevel = "info"
}

// envNames lists the variables read for each key, highest priority first.
// Every name may also carry the ClientEnvPrefix, which wins over the plain name.
var envNames = map[string][]string{
	"port":                 {"PORT"},
	"app_url":              {"APP_URL"},
	"supabase_url":         {"SUPABASE_URL"},
	"supabase_key":         {"SUPABASE_KEY", "SUPABASE_ANON_KEY"},
	"supabase_service_key": {"SUPABASE_SERVICE_KEY"},
	"supabase_jwt_secret":  {"SUPABASE_JWT_SECRET"},
	"backend_url":          {"BACKEND_URL"},
	"backend_timeout":      {"BACKEND_TIMEOUT"},
	"storage_driver":       {"STORAGE_DRIVER"},
	"storage_bucket":       {"STORAGE_BUCKET"},
	"signed_url_ttl":       {"SIGNED_URL_TTL"},
	"s3_region":            {"S3_REGION"},
	"s3_endpoint":          {"S3_ENDPOINT"},
	"s3_access_key":        {"S3_ACCESS_KEY"},
	"s3_secret_key":        {"S3_SECRET_KEY"},
	"s3_use_path_style":    {"S3_USE_PATH_STYLE"},
	"database_url":         {"DATABASE_URL"},
	"database_driver":      {"DATABASE_DRIVER"},
	"log_level":            {"LOG_LEVEL"},
}

// Load builds a Config from defaults, then the optional YAML file named by
// CONFIG_FILE, then the environment.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, names := range envNames {
		if err := v.BindEnv(append([]string{key}, withClientPrefix(names)...)...); err != nil {
			return nil, err
		}
	}
	if err := v.BindEnv(append([]string{"config_file"}, withClientPrefix([]string{"CONFIG_FILE"})...)...); err != nil {
		return nil, err
	}

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook,
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	cfg.SupabaseURL = strings.TrimRight(cfg.SupabaseURL, "/")
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	var d Config
	d.LoadDefaults()

	v.SetDefault("port", d.Port)
	v.SetDefault("app_url", d.AppURL)
	v.SetDefault("backend_url", d.BackendURL)
	v.SetDefault("storage_driver", d.StorageDriver)
	v.SetDefault("storage_bucket", d.StorageBucket)
	v.SetDefault("signed_url_ttl", d.SignedURLTTL)
	v.SetDefault("s3_region", d.S3Region)
	v.SetDefault("database_driver", d.DatabaseDriver)
	v.SetDefault("log_level", d.LogLevel)
}

func withClientPrefix(names []string) []string {
	out := make([]string, 0, 2*len(names))
	for _, name := range names {
		out = append(out, ClientEnvPrefix+name, name)
	}
	return out
}

var durationType = reflect.TypeOf(time.Duration(0))

// secondsToDurationHook reads a bare number, from the environment or the file,
// as seconds ("120" is two minutes).
func secondsToDurationHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != durationType || from == durationType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.String:
		secs, err := strconv.Atoi(strings.TrimSpace(data.(string)))
		if err != nil {
			return data, nil
		}
		return time.Duration(secs) * time.Second, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(reflect.ValueOf(data).Int()) * time.Second, nil
	}
	return data, nil
}

// Validate checks the settings every entry point needs.
func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL must be set")
	}
	if c.SupabaseKey == "" && c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_KEY or SUPABASE_SERVICE_KEY must be set")
	}
	switch c.StorageDriver {
	case "supabase", "s3":
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	switch c.DatabaseDriver {
	case "pgx", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q", c.DatabaseDriver)
	}
	return nil
}

// ServerKey returns the key used by the gateway: the service key when present,
// otherwise the anonymous key.
func (c *Config) ServerKey() string {
	if c.SupabaseServiceKey != "" {
		return c.SupabaseServiceKey
	}
	return c.SupabaseKey
}

// ClientKey returns the anonymous key when present, otherwise the service key.
func (c *Config) ClientKey() string {
	if c.SupabaseKey != "" {
		return c.SupabaseKey
	}
	return c.SupabaseServiceKey
}
