// Package config loads the agent configuration from a YAML file, .env files
// and DIALER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/grez-lucas/dialer-helper/internal/api"
	"github.com/grez-lucas/dialer-helper/internal/dialer/agent"
	"github.com/grez-lucas/dialer-helper/internal/dialer/browser"
	"github.com/grez-lucas/dialer-helper/internal/dialer/detect"
	"github.com/grez-lucas/dialer-helper/internal/dialer/fill"
	"github.com/grez-lucas/dialer-helper/internal/dialer/locate"
)

// EnvPrefix prefixes every environment override, e.g. DIALER_LOGGER_LEVEL.
const EnvPrefix = "DIALER"

// Config holds the entire agent configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Timing   TimingConfig   `mapstructure:"timing" yaml:"timing"`
	Rules    []RuleConfig   `mapstructure:"rules" yaml:"rules"`
	Settings SettingsConfig `mapstructure:"settings" yaml:"settings"`
	DialCode DialCodeConfig `mapstructure:"dial_code" yaml:"dial_code"`
	API      APIConfig      `mapstructure:"api" yaml:"api"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig selects the browser and tab to attach to.
type BrowserConfig struct {
	ControlURL string `mapstructure:"control_url" yaml:"control_url"`
	Bin        string `mapstructure:"bin" yaml:"bin"`
	Headless   bool   `mapstructure:"headless" yaml:"headless"`
	PageURL    string `mapstructure:"page_url" yaml:"page_url"`
	// FrameSettle is how long a frame's DOM must be quiet before the
	// discover script inspects it.
	FrameSettle time.Duration `mapstructure:"frame_settle" yaml:"frame_settle"`
}

// TimingConfig holds every delay of detection and filling.
type TimingConfig struct {
	MaxRetries       int             `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelays      []time.Duration `mapstructure:"retry_delays" yaml:"retry_delays"`
	DropdownWait     time.Duration   `mapstructure:"dropdown_wait" yaml:"dropdown_wait"`
	KeyStepDelay     time.Duration   `mapstructure:"key_step_delay" yaml:"key_step_delay"`
	Debounce         time.Duration   `mapstructure:"debounce" yaml:"debounce"`
	PollInterval     time.Duration   `mapstructure:"poll_interval" yaml:"poll_interval"`
	InitialDelay     time.Duration   `mapstructure:"initial_delay" yaml:"initial_delay"`
	HandoffDelay     time.Duration   `mapstructure:"handoff_delay" yaml:"handoff_delay"`
	OnDemandClear    time.Duration   `mapstructure:"on_demand_clear" yaml:"on_demand_clear"`
	OnDemandDropdown time.Duration   `mapstructure:"on_demand_dropdown" yaml:"on_demand_dropdown"`
}

// RuleConfig is one locator rule. The table replaces the built-in one.
type RuleConfig struct {
	Label      string `mapstructure:"label" yaml:"label"`
	Pattern    string `mapstructure:"pattern" yaml:"pattern"`
	Confidence int    `mapstructure:"confidence" yaml:"confidence"`
}

// SettingsConfig locates the user settings file.
type SettingsConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// DialCodeConfig controls filling the phone input after a selection.
type DialCodeConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Selector string `mapstructure:"selector" yaml:"selector"`
}

// APIConfig controls the local HTTP endpoint.
type APIConfig struct {
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
	Addr      string  `mapstructure:"addr" yaml:"addr"`
	FillRate  float64 `mapstructure:"fill_rate" yaml:"fill_rate"`
	FillBurst int     `mapstructure:"fill_burst" yaml:"fill_burst"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "dialer")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.control_url", "")
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.page_url", "")
	v.SetDefault("browser.frame_settle", "500ms")

	// -- Timing --
	ft := fill.DefaultTiming()
	dt := detect.DefaultTiming()
	ot := agent.DefaultOnDemandTiming()
	v.SetDefault("timing.max_retries", ft.MaxRetries)
	v.SetDefault("timing.retry_delays", ft.RetryDelays)
	v.SetDefault("timing.dropdown_wait", ft.DropdownWait)
	v.SetDefault("timing.key_step_delay", ft.KeyStepDelay)
	v.SetDefault("timing.debounce", dt.Debounce)
	v.SetDefault("timing.poll_interval", dt.PollInterval)
	v.SetDefault("timing.initial_delay", dt.InitialDelay)
	v.SetDefault("timing.handoff_delay", dt.HandoffDelay)
	v.SetDefault("timing.on_demand_clear", ot.ClearDelay)
	v.SetDefault("timing.on_demand_dropdown", ot.DropdownDelay)

	// -- Rules --
	v.SetDefault("rules", defaultRules())

	// -- Settings --
	v.SetDefault("settings.file", "~/.config/dialer-helper/settings.yaml")

	// -- Dial code --
	v.SetDefault("dial_code.enabled", true)
	v.SetDefault("dial_code.selector", locate.SelectorNationalNumberID)

	// -- API --
	v.SetDefault("api.enabled", false)
	v.SetDefault("api.addr", "127.0.0.1:8765")
	v.SetDefault("api.fill_rate", 2.0)
	v.SetDefault("api.fill_burst", 1)
}

func defaultRules() []RuleConfig {
	rules := locate.DefaultRules()
	out := make([]RuleConfig, len(rules))
	for i, r := range rules {
		out[i] = RuleConfig{Label: r.Label, Pattern: r.Pattern, Confidence: r.Confidence}
	}
	return out
}

// Load reads path, or dialer.yaml from the working directory or
// ~/.config/dialer-helper when path is empty. A missing default file is not
// an error.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	v := viper.New()
	SetDefaults(v)

	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("expand config path: %w", err)
		}
		v.SetConfigFile(expanded)
	} else {
		v.SetConfigName("dialer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := homedir.Expand("~/.config/dialer-helper"); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return NewConfigFromViper(v)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	for _, p := range []*string{&cfg.Settings.File, &cfg.Logger.LogFile} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = filepath.Clean(expanded)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFiles loads .env.local then .env. Variables already set win, so
// .env.local overrides .env.
func loadEnvFiles() error {
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Timing.MaxRetries < 1 {
		return fmt.Errorf("timing.max_retries must be at least 1")
	}
	if len(c.Timing.RetryDelays) == 0 {
		return fmt.Errorf("timing.retry_delays must not be empty")
	}
	for _, d := range c.Timing.RetryDelays {
		if d < 0 {
			return fmt.Errorf("timing.retry_delays must not be negative")
		}
	}
	if c.Timing.PollInterval <= 0 {
		return fmt.Errorf("timing.poll_interval must be a positive duration")
	}
	if len(c.Rules) == 0 {
		return fmt.Errorf("rules must not be empty")
	}
	if _, err := c.LocateRules(); err != nil {
		return err
	}
	if c.DialCode.Enabled && c.DialCode.Selector == "" {
		return fmt.Errorf("dial_code.selector is required when dial_code.enabled is set")
	}
	if c.Settings.File == "" {
		return fmt.Errorf("settings.file is required")
	}
	return nil
}

// LocateRules validates and converts the rule table.
func (c *Config) LocateRules() ([]locate.Rule, error) {
	rules := make([]locate.Rule, 0, len(c.Rules))
	for _, rc := range c.Rules {
		r, err := locate.NewRule(rc.Label, rc.Pattern, rc.Confidence)
		if err != nil {
			return nil, fmt.Errorf("rules: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func (c *Config) FillTiming() fill.Timing {
	return fill.Timing{
		MaxRetries:   c.Timing.MaxRetries,
		RetryDelays:  append([]time.Duration(nil), c.Timing.RetryDelays...),
		DropdownWait: c.Timing.DropdownWait,
		KeyStepDelay: c.Timing.KeyStepDelay,
	}
}

func (c *Config) DetectTiming() detect.Timing {
	return detect.Timing{
		Debounce:     c.Timing.Debounce,
		PollInterval: c.Timing.PollInterval,
		InitialDelay: c.Timing.InitialDelay,
		HandoffDelay: c.Timing.HandoffDelay,
	}
}

func (c *Config) OnDemandTiming() agent.OnDemandTiming {
	return agent.OnDemandTiming{
		ClearDelay:    c.Timing.OnDemandClear,
		DropdownDelay: c.Timing.OnDemandDropdown,
	}
}

func (c *Config) BrowserOptions() browser.Options {
	return browser.Options{
		ControlURL: c.Browser.ControlURL,
		Bin:        c.Browser.Bin,
		Headless:   c.Browser.Headless,
		PageURL:    c.Browser.PageURL,
	}
}

func (c *Config) APIConfig(debug bool) api.Config {
	return api.Config{
		Addr:      c.API.Addr,
		FillRate:  c.API.FillRate,
		FillBurst: c.API.FillBurst,
		Debug:     debug,
	}
}

// DialCodeSelector returns the phone input selector, or "" when disabled.
func (c *Config) DialCodeSelector() string {
	if !c.DialCode.Enabled {
		return ""
	}
	return c.DialCode.Selector
}
