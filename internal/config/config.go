package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Registry    RegistryConfig    `yaml:"registry" mapstructure:"registry"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Captcha     CaptchaConfig     `yaml:"captcha" mapstructure:"captcha"`
	Anticaptcha AnticaptchaConfig `yaml:"anticaptcha" mapstructure:"anticaptcha"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Input       InputConfig       `yaml:"input" mapstructure:"input"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// RegistryConfig points at the cadastral registry endpoints.
type RegistryConfig struct {
	// BaseURL is the account-back API root.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// PortalURL is the public portal page fetched first to seed cookies.
	PortalURL string `yaml:"portal_url" mapstructure:"portal_url"`
	// DictionaryTTLHours controls how long a stored dictionary snapshot is
	// reused before it is re-fetched.
	DictionaryTTLHours int `yaml:"dictionary_ttl_hours" mapstructure:"dictionary_ttl_hours"`
}

// HTTPConfig configures the shared session.
type HTTPConfig struct {
	ProxyURL           string            `yaml:"proxy_url" mapstructure:"proxy_url"`
	TimeoutSecs        int               `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	InsecureSkipVerify bool              `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
	RateLimit          float64           `yaml:"rate_limit" mapstructure:"rate_limit"`
	Headers            map[string]string `yaml:"headers" mapstructure:"headers"`
}

// CaptchaConfig configures challenge recognition and the gate retry budget.
type CaptchaConfig struct {
	// Provider selects the recognition backend: "command" or "anticaptcha".
	Provider string `yaml:"provider" mapstructure:"provider"`
	// CommandPath is the recognizer binary for the command provider.
	CommandPath string `yaml:"command_path" mapstructure:"command_path"`
	// MaxAttempts bounds the solve→verify loop per protected action.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	// InitialBackoffMs is the base delay between attempts.
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	// MaxBackoffSecs caps the delay between attempts.
	MaxBackoffSecs int `yaml:"max_backoff_secs" mapstructure:"max_backoff_secs"`
}

// AnticaptchaConfig holds anti-captcha.com credentials.
type AnticaptchaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PipelineConfig configures executor behavior.
type PipelineConfig struct {
	// MaxRedo bounds how many times a single step may signal Redo.
	MaxRedo int `yaml:"max_redo" mapstructure:"max_redo"`
	// SkipFailed keeps a task running when one cadastral number fails;
	// when false the first failure aborts the whole run.
	SkipFailed bool `yaml:"skip_failed" mapstructure:"skip_failed"`
}

// StoreConfig configures the local run-history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// InputConfig locates task files.
type InputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// OutputConfig locates generated spreadsheets.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CADASTRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("registry.base_url", "https://lk.rosreestr.ru/account-back")
	v.SetDefault("registry.portal_url", "https://lk.rosreestr.ru/eservices/real-estate-objects-online")
	v.SetDefault("registry.dictionary_ttl_hours", 24)
	v.SetDefault("http.proxy_url", "")
	v.SetDefault("http.timeout_secs", 30)
	// The registry serves an incomplete certificate chain.
	v.SetDefault("http.insecure_skip_verify", true)
	v.SetDefault("http.rate_limit", 2.0)
	v.SetDefault("http.headers", defaultHeaders())
	v.SetDefault("captcha.provider", "command")
	v.SetDefault("captcha.command_path", "captcha-recognizer")
	v.SetDefault("captcha.max_attempts", 10)
	v.SetDefault("captcha.initial_backoff_ms", 500)
	v.SetDefault("captcha.max_backoff_secs", 15)
	v.SetDefault("anticaptcha.key", "")
	v.SetDefault("anticaptcha.base_url", "")
	v.SetDefault("pipeline.max_redo", 10)
	v.SetDefault("pipeline.skip_failed", false)
	v.SetDefault("store.path", "cadastre.db")
	v.SetDefault("input.dir", "input")
	v.SetDefault("output.dir", "output")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// defaultHeaders is the browser header template the registry expects.
func defaultHeaders() map[string]string {
	return map[string]string{
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7",
		"Connection":      "keep-alive",
		"Pragma":          "no-cache",
		"Referer":         "https://lk.rosreestr.ru/eservices/real-estate-objects-online",
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
