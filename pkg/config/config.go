package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/matiasinsaurralde/relatorio/pkg/types"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	// envPrefix is prepended to every environment override, e.g. RELATORIO_OPENAI_TOKEN:
	envPrefix = "RELATORIO"

	defaultListenAddr    = ":8080"
	defaultLogLevel      = "debug"
	defaultMaxUploadSize = 32 << 20
	defaultMaxPhotoWidth = 1600
	defaultWorkers       = 4
	defaultCleanTimeout  = 60 * time.Second
)

// Config is the main configuration struct:
type Config struct {
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	LogLevel   string `mapstructure:"log_level" json:"log_level"`
	// StorePath is the JSON file holding generated report records:
	StorePath string `mapstructure:"store_path" json:"store_path"`
	// OutputPath is the directory where .docx files are written:
	OutputPath string `mapstructure:"output_path" json:"output_path"`
	// LayoutPath optionally points to a YAML layout profile, the embedded one is used otherwise:
	LayoutPath    string `mapstructure:"layout_path" json:"layout_path"`
	MaxUploadSize int64  `mapstructure:"max_upload_size" json:"max_upload_size"`
	MaxPhotoWidth int    `mapstructure:"max_photo_width" json:"max_photo_width"`
	// Workers bounds concurrent photo preparation:
	Workers       int           `mapstructure:"workers" json:"workers"`
	CleanerConfig CleanerConfig `mapstructure:"cleaner" json:"cleaner"`
	OpenAIConfig  OpenAIConfig  `mapstructure:"openai" json:"openai"`
	GeminiConfig  GeminiConfig  `mapstructure:"gemini" json:"gemini"`
}

// CleanerConfig selects the LLM used to clean up narratives.
// Timeout takes a duration string like "90s" or a bare number of seconds:
type CleanerConfig struct {
	Provider types.CleanerProvider `mapstructure:"provider" json:"provider"`
	Timeout  time.Duration         `mapstructure:"timeout" json:"timeout"`
}

// OpenAIConfig is the OpenAI configuration struct:
type OpenAIConfig struct {
	Token    string `mapstructure:"token" json:"token"`
	Model    string `mapstructure:"model" json:"model"`
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
}

// GeminiConfig is the Gemini configuration struct:
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key" json:"api_key"`
	Model  string `mapstructure:"model" json:"model"`
}

var errInvalidConfig = errors.New("invalid configuration")

// Default returns a configuration with every default applied and no paths set:
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg, viper.DecodeHook(decodeHook()))
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", defaultListenAddr)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("store_path", "")
	v.SetDefault("output_path", "")
	v.SetDefault("layout_path", "")
	v.SetDefault("max_upload_size", defaultMaxUploadSize)
	v.SetDefault("max_photo_width", defaultMaxPhotoWidth)
	v.SetDefault("workers", defaultWorkers)
	v.SetDefault("cleaner.provider", string(types.CleanerProviderNone))
	v.SetDefault("cleaner.timeout", defaultCleanTimeout)
	v.SetDefault("openai.token", "")
	v.SetDefault("openai.model", "")
	v.SetDefault("openai.endpoint", "")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "")
}

// Load takes a file, parses it and returns a config.
// A missing file is not an error, defaults and environment overrides still apply:
func Load(fileName string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fileName != "" {
		v.SetConfigFile(fileName)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading %s: %w", fileName, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// decodeHook extends viper's default hooks so durations given as plain numbers mean seconds:
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func secondsToDurationHook(from, to reflect.Type, data any) (any, error) {
	if to != durationType || from == durationType {
		return data, nil
	}
	switch v := data.(type) {
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case float32:
		return time.Duration(float64(v) * float64(time.Second)), nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case string:
		// Environment overrides arrive as strings, "60" is seconds too:
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return time.Duration(n * float64(time.Second)), nil
		}
	}
	return data, nil
}

// Validate checks the values that can't be fixed up later by App.Init:
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level %q", errInvalidConfig, c.LogLevel)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("%w: max_upload_size must be positive", errInvalidConfig)
	}
	if c.MaxPhotoWidth <= 0 {
		return fmt.Errorf("%w: max_photo_width must be positive", errInvalidConfig)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", errInvalidConfig)
	}
	switch c.CleanerConfig.Provider {
	case types.CleanerProviderNone, types.CleanerProviderOpenAI, types.CleanerProviderGemini:
	default:
		return fmt.Errorf("%w: unknown cleaner provider %q", errInvalidConfig, c.CleanerConfig.Provider)
	}
	return nil
}

// Level returns the parsed log level, debug when unset:
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.DebugLevel
	}
	return lvl
}
