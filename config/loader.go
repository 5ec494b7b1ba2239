package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultEnvPrefix = "POOLSUP"

// Loader reads a YAML file over the defaults, then applies environment
// overrides and validates the result
type Loader struct {
	envPrefix     string
	defaultConfig func() *Config
}

func NewLoader() *Loader {
	return &Loader{
		envPrefix:     defaultEnvPrefix,
		defaultConfig: DefaultConfig,
	}
}

func (l *Loader) SetEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load loads filename, an empty filename means defaults and environment only
func (l *Loader) Load(filename string) (*Config, error) {
	if filename == "" {
		return l.finish(l.defaultConfig())
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filename)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	return l.LoadFromReader(bytes.NewReader(data))
}

// LoadFromReader parses YAML from r
func (l *Loader) LoadFromReader(r io.Reader) (*Config, error) {
	config := l.defaultConfig()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return l.finish(config)
}

func (l *Loader) finish(config *Config) (*Config, error) {
	if err := l.loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// loadFromEnv applies <PREFIX>_<SECTION>_<KEY> overrides
func (l *Loader) loadFromEnv(config *Config) error {
	if val, ok := l.lookup("LOG_LEVEL"); ok {
		config.Log.Level = val
	}

	if val, ok := l.lookup("POOL_NAME"); ok {
		config.Pool.Name = val
	}
	if err := l.intVar("POOL_SIZE", &config.Pool.Size); err != nil {
		return err
	}
	if val, ok := l.lookup("POOL_REPLACEMENT"); ok {
		config.Pool.Replacement = val
	}

	if err := l.intVar("SUPERVISION_MAX_RETRIES", &config.Supervision.MaxRetries); err != nil {
		return err
	}
	if err := l.durationVar("SUPERVISION_WINDOW", &config.Supervision.Window); err != nil {
		return err
	}
	if val, ok := l.lookup("SUPERVISION_DEFAULT"); ok {
		config.Supervision.Default = val
	}

	if val, ok := l.lookup("WORKER_SELF_STOP_RATIO"); ok {
		ratio, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("%w: %s_WORKER_SELF_STOP_RATIO: %v", ErrEnvironmentVar, l.envPrefix, err)
		}
		config.Worker.SelfStopRatio = ratio
	}

	if err := l.durationVar("SCHEDULE_ONCE", &config.Schedule.Once); err != nil {
		return err
	}
	if err := l.durationVar("SCHEDULE_EVERY_DELAY", &config.Schedule.EveryDelay); err != nil {
		return err
	}
	if err := l.durationVar("SCHEDULE_EVERY_INTERVAL", &config.Schedule.EveryInterval); err != nil {
		return err
	}

	if val, ok := l.lookup("MAILBOX_KIND"); ok {
		config.Mailbox.Kind = val
	}
	if err := l.intVar("MAILBOX_CAPACITY", &config.Mailbox.Capacity); err != nil {
		return err
	}

	if val, ok := l.lookup("BOOTSTRAP_START_POOL"); ok {
		config.Bootstrap.StartPool = strings.ToLower(val) == "true"
	}
	if err := l.intVar("BOOTSTRAP_WORK_ITEMS", &config.Bootstrap.WorkItems); err != nil {
		return err
	}
	return l.durationVar("BOOTSTRAP_QUIESCENCE", &config.Bootstrap.Quiescence)
}

func (l *Loader) lookup(key string) (string, bool) {
	val := os.Getenv(l.envPrefix + "_" + key)
	return val, val != ""
}

func (l *Loader) intVar(key string, out *int) error {
	val, ok := l.lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("%w: %s_%s: %v", ErrEnvironmentVar, l.envPrefix, key, err)
	}
	*out = n
	return nil
}

func (l *Loader) durationVar(key string, out *time.Duration) error {
	val, ok := l.lookup(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("%w: %s_%s: %v", ErrEnvironmentVar, l.envPrefix, key, err)
	}
	*out = d
	return nil
}
