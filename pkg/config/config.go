// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Global Koanf instance, initialized once at startup.
var (
	k    *koanf.Koanf
	once sync.Once
)

var validate = validator.New()

// InitGlobalConfig initializes the global Koanf instance.
// This should be called early in the application lifecycle, before Load.
func InitGlobalConfig() {
	once.Do(func() {
		k = koanf.New(".")
	})
}

// Manager handles loading and accessing application configuration.
type Manager struct {
	koanfInstance *koanf.Koanf
	currentConfig Config
	mu            sync.RWMutex // protects currentConfig during runtime updates
}

// NewManager creates a new Manager.
// It initializes the global Koanf instance if not already done.
func NewManager() *Manager {
	InitGlobalConfig()
	return &Manager{
		koanfInstance: k,
	}
}

// DefaultConfig returns a new Config struct populated with hardcoded default values.
// These serve as the baseline configuration if no other sources override them.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
		Client: DefaultClientConfig(),
		Poll:   DefaultPollConfig(),
	}
}

// Load loads configuration from defaults, the config file, SCRIBE_*
// environment variables and flags, in that order of precedence. --debug is
// applied last and forces log.level to debug.
func (m *Manager) Load(flags *pflag.FlagSet, customConfigFilePath string) error {
	if err := m.LoadWithSources(DefaultSources(customConfigFilePath, flags)); err != nil {
		return err
	}
	if flags == nil {
		return nil
	}
	if debug, err := flags.GetBool("debug"); err == nil && debug {
		return m.UpdateRuntimeValue("log.level", "debug")
	}
	return nil
}

// LoadWithSources loads the given sources in ascending priority order,
// unmarshals the merged result and validates it.
func (m *Manager) LoadWithSources(sources []ConfigSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ordered := make([]ConfigSource, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	for _, src := range ordered {
		if err := src.Load(m.koanfInstance); err != nil {
			return fmt.Errorf("config source %s: %w", src.Name(), err)
		}
	}

	var newCfg Config
	if err := m.koanfInstance.UnmarshalWithConf("", &newCfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("error unmarshaling final config: %w", err)
	}
	m.postProcessConfig(&newCfg)

	if err := newCfg.Validate(); err != nil {
		return err
	}
	m.currentConfig = newCfg
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentConfig
}

// UpdateRuntimeValue sets a single key and re-derives the current config.
// The update is rejected, and nothing changes, if the result fails validation.
func (m *Manager) UpdateRuntimeValue(key string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous := m.koanfInstance.Get(key)
	existed := m.koanfInstance.Exists(key)
	if err := m.koanfInstance.Set(key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	var newCfg Config
	err := m.koanfInstance.UnmarshalWithConf("", &newCfg, koanf.UnmarshalConf{Tag: "koanf"})
	if err == nil {
		m.postProcessConfig(&newCfg)
		err = newCfg.Validate()
	}
	if err != nil {
		if existed {
			_ = m.koanfInstance.Set(key, previous)
		} else {
			m.koanfInstance.Delete(key)
		}
		return fmt.Errorf("update %s: %w", key, err)
	}

	m.currentConfig = newCfg
	return nil
}

// postProcessConfig normalizes values after unmarshaling.
func (m *Manager) postProcessConfig(cfg *Config) {
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.Client.Endpoint = strings.TrimSpace(cfg.Client.Endpoint)
}

// Validate checks the configuration against its struct constraints.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", configKey(fe.Namespace()), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// configKey turns a validator namespace such as "Config.Poll.MaxAttempts"
// into the koanf key "poll.max_attempts".
func configKey(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = toSnake(p)
	}
	return strings.Join(parts, ".")
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DefaultConfigAsMap converts the DefaultConfig struct to a map[string]interface{}
// for Koanf's confmap.Provider. This is a bit manual but ensures Koanf knows all keys.
func DefaultConfigAsMap() map[string]interface{} {
	def := DefaultConfig()
	return map[string]interface{}{
		// Log configuration
		"log.level":  def.Log.Level,
		"log.format": def.Log.Format,
		"log.file":   def.Log.File,

		// Client configuration
		"client.endpoint":   def.Client.Endpoint,
		"client.timeout":    def.Client.Timeout,
		"client.user_agent": def.Client.UserAgent,

		// Poll configuration
		"poll.interval":      def.Poll.Interval,
		"poll.max_attempts":  def.Poll.MaxAttempts,
		"poll.check_retries": def.Poll.CheckRetries,
	}
}

// BindFlags defines command-line flags corresponding to configuration settings.
// These flags allow overriding config file / environment variable settings.
// This function should be called when setting up Cobra commands.
func BindFlags(flags *pflag.FlagSet) {
	var flagvar bool
	flags.BoolVar(&flagvar, "debug", false, "Enable debug logging")

	// Note: the --config / -c flag for the config file path is defined
	// directly on the root Cobra command's PersistentFlags.
}
