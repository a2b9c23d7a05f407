// pkg/config/source.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigSource loads values into koanf. Sources are applied in ascending
// Priority; later sources override earlier ones.
//
//   - DefaultSource (10): DefaultConfig
//   - FileSource (20): YAML file, --config or DefaultConfigFile
//   - EnvSource (30): SCRIBE_* variables
//   - FlagSource (40): --log.*, --client.* and --poll.* flags
type ConfigSource interface {
	Name() string
	Priority() int
	Load(k *koanf.Koanf) error
}

// EnvPrefix is the prefix of environment variables read by EnvSource.
const EnvPrefix = "SCRIBE_"

// isKnownKey reports whether key is a settable key such as "poll.max_attempts".
func isKnownKey(key string) bool {
	_, ok := DefaultConfigAsMap()[key]
	return ok
}

// DefaultConfigFile is the config file read when --config is not given,
// e.g. ~/.config/scribe/config.yaml. It is empty if the user config
// directory cannot be determined.
func DefaultConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "scribe", "config.yaml")
}

// DefaultSource seeds every key with its DefaultConfig value.
type DefaultSource struct{}

func (s *DefaultSource) Name() string  { return "defaults" }
func (s *DefaultSource) Priority() int { return 10 }

func (s *DefaultSource) Load(k *koanf.Koanf) error {
	if err := k.Load(confmap.Provider(DefaultConfigAsMap(), "."), nil); err != nil {
		return fmt.Errorf("error loading defaults: %w", err)
	}
	return nil
}

// FileSource loads a YAML config file. A missing Optional file is skipped;
// a missing explicit file is an error. Keys that scribe does not know are
// rejected so that typos like "poll.intreval" do not go unnoticed.
type FileSource struct {
	Path     string
	Optional bool
}

func (s *FileSource) Name() string  { return "file:" + s.Path }
func (s *FileSource) Priority() int { return 20 }

func (s *FileSource) Load(k *koanf.Koanf) error {
	if s.Path == "" {
		return nil
	}

	if _, err := os.Stat(s.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) && s.Optional {
			return nil
		}
		return fmt.Errorf("config file %s: %w", s.Path, err)
	}

	fk := koanf.New(".")
	if err := fk.Load(file.Provider(s.Path), yaml.Parser()); err != nil {
		return fmt.Errorf("error loading config file %s: %w", s.Path, err)
	}

	var unknown []string
	for _, key := range fk.Keys() {
		if !isKnownKey(key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("config file %s: unknown keys %s", s.Path, strings.Join(unknown, ", "))
	}

	return k.Merge(fk)
}

// EnvSource reads SCRIBE_<SECTION>_<KEY> variables. The first underscore
// after the prefix separates the section from the key:
//
//	SCRIBE_LOG_LEVEL -> log.level
//	SCRIBE_POLL_MAX_ATTEMPTS -> poll.max_attempts
//
// Variables that do not name a config key are ignored.
type EnvSource struct {
	Prefix string
}

// envKey maps an environment variable name to a koanf key.
func envKey(prefix, name string) string {
	return strings.Replace(strings.ToLower(strings.TrimPrefix(name, prefix)), "_", ".", 1)
}

func (s *EnvSource) Name() string  { return "env" }
func (s *EnvSource) Priority() int { return 30 }

func (s *EnvSource) Load(k *koanf.Koanf) error {
	prefix := s.Prefix
	if prefix == "" {
		prefix = EnvPrefix
	}

	if err := k.Load(env.Provider(prefix, ".", func(name string) string {
		key := envKey(prefix, name)
		if !isKnownKey(key) {
			return ""
		}
		return key
	}), nil); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}
	return nil
}

// FlagSource loads flags named after config keys (--poll.interval). An
// unchanged flag only fills a key that no earlier source set. Other flags
// (--output, --debug, ...) are not configuration and are skipped.
type FlagSource struct {
	Flags *pflag.FlagSet
}

func (s *FlagSource) Name() string  { return "flags" }
func (s *FlagSource) Priority() int { return 40 }

func (s *FlagSource) Load(k *koanf.Koanf) error {
	if s.Flags == nil {
		return nil
	}

	provider := posflag.ProviderWithFlag(s.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
		if !isKnownKey(f.Name) {
			return "", nil
		}
		return f.Name, posflag.FlagVal(s.Flags, f)
	})
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("error loading command-line flags: %w", err)
	}
	return nil
}

// DefaultSources returns the sources used by Manager.Load. An empty
// configPath falls back to the optional DefaultConfigFile.
func DefaultSources(configPath string, flags *pflag.FlagSet) []ConfigSource {
	fileSource := &FileSource{Path: configPath}
	if configPath == "" {
		fileSource = &FileSource{Path: DefaultConfigFile(), Optional: true}
	}
	return []ConfigSource{
		&DefaultSource{},
		fileSource,
		&EnvSource{Prefix: EnvPrefix},
		&FlagSource{Flags: flags},
	}
}
