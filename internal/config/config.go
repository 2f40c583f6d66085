// Package config resolves vongform's runtime configuration.
//
// Values come from, in order of precedence: command-line flags, environment
// variables, an optional YAML config file, and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vongform/vongform/internal/kv"
	"github.com/vongform/vongform/internal/overrides"
	"github.com/vongform/vongform/internal/store"
)

// Flag names, which double as config file keys.
const (
	FlagOutput      = "output"
	FlagRepository  = "repository"
	FlagConsulAddr  = "consul-addr"
	FlagConsulToken = "consul-token"
	FlagKey         = "key"
	FlagTimeout     = "timeout"
	FlagLogLevel    = "log-level"
	FlagConcurrency = "concurrency"
	FlagConfig      = "config"
)

// Environment variables with fixed names. Other settings are read from
// VONGFORM_<FLAG> (e.g. VONGFORM_LOG_LEVEL).
const (
	EnvOutputDir   = "VONGFORM_OUTPUT_DIR"
	EnvRepository  = "VONGFORM_DEFAULT_REPOSITORY"
	EnvConsulAddr  = "CONSUL_HTTP_ADDR"
	EnvConsulToken = "CONSUL_HTTP_TOKEN"
	EnvConfig      = "VONGFORM_CONFIG"
)

// Defaults.
const (
	DefaultOutputDir = "chart"
	DefaultTimeout   = 30 * time.Second
	DefaultLogLevel  = "info"
)

// Config holds the resolved settings for one run.
type Config struct {
	// ConsulAddr is the base URL of the Consul agent.
	ConsulAddr string

	// ConsulToken is sent as X-Consul-Token when non-empty.
	ConsulToken string

	// Key is the KV key holding the manifest.
	Key string

	// OutputDir is where the umbrella chart is written.
	OutputDir string

	// Repository is applied to every dependency the run sets a version on.
	// Nil when neither the flag nor the environment provide one.
	Repository *string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// Concurrency bounds the parallel override fetches.
	Concurrency int

	// ConfigFile is the config file that was read, if any.
	ConfigFile string
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP(FlagOutput, "o", DefaultOutputDir, "output the umbrella chart to this directory (env "+EnvOutputDir+")")
	fs.StringP(FlagRepository, "r", "", "chart repository URL for dependencies being set (env "+EnvRepository+")")
	fs.String(FlagConsulAddr, kv.DefaultAddr, "Consul HTTP address (env "+EnvConsulAddr+")")
	fs.String(FlagConsulToken, "", "Consul ACL token (env "+EnvConsulToken+")")
	fs.String(FlagKey, store.DefaultKey, "KV key holding the manifest (env VONGFORM_KEY)")
	fs.Duration(FlagTimeout, DefaultTimeout, "timeout for each Consul request (env VONGFORM_TIMEOUT)")
	fs.String(FlagLogLevel, DefaultLogLevel, "log level: debug, info, warn, error (env VONGFORM_LOG_LEVEL)")
	fs.Int(FlagConcurrency, overrides.DefaultConcurrency, "parallel override fetches (env VONGFORM_CONCURRENCY)")
	fs.String(FlagConfig, "", "config file (env "+EnvConfig+")")
}

// Load resolves the configuration from fs, the environment and the config
// file. fs may be nil, in which case only the environment, the config file
// and the defaults apply.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VONGFORM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(FlagOutput, DefaultOutputDir)
	v.SetDefault(FlagConsulAddr, kv.DefaultAddr)
	v.SetDefault(FlagKey, store.DefaultKey)
	v.SetDefault(FlagTimeout, DefaultTimeout)
	v.SetDefault(FlagLogLevel, DefaultLogLevel)
	v.SetDefault(FlagConcurrency, overrides.DefaultConcurrency)

	bindings := map[string]string{
		FlagOutput:      EnvOutputDir,
		FlagRepository:  EnvRepository,
		FlagConsulAddr:  EnvConsulAddr,
		FlagConsulToken: EnvConsulToken,
		FlagConfig:      EnvConfig,
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	explicit := v.GetString(FlagConfig)
	configureConfigFile(v, explicit)
	if err := readConfigFile(v, explicit != ""); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{
		ConsulAddr:  v.GetString(FlagConsulAddr),
		ConsulToken: v.GetString(FlagConsulToken),
		Key:         v.GetString(FlagKey),
		OutputDir:   v.GetString(FlagOutput),
		Timeout:     v.GetDuration(FlagTimeout),
		LogLevel:    v.GetString(FlagLogLevel),
		Concurrency: v.GetInt(FlagConcurrency),
		ConfigFile:  v.ConfigFileUsed(),
	}
	if repo := v.GetString(FlagRepository); repo != "" {
		cfg.Repository = &repo
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the resolved values.
func (c *Config) Validate() error {
	var errs []error
	if c.ConsulAddr == "" {
		errs = append(errs, errors.New("consul address is empty"))
	}
	if c.Key == "" {
		errs = append(errs, errors.New("manifest key is empty"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output directory is empty"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", c.Concurrency))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func configureConfigFile(v *viper.Viper, explicitPath string) {
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		return
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range configSearchDirs() {
		v.AddConfigPath(dir)
	}
}

func readConfigFile(v *viper.Viper, strict bool) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) && !strict {
			return nil
		}
		return err
	}
	return nil
}

func configSearchDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "vongform"))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", "vongform"))
	}
	return dirs
}
