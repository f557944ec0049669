package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// FileNames are the config file names searched for, in order.
var FileNames = []string{"weslink.yaml", "weslink.yml"}

// EnvPrefix prefixes environment overrides: WESLINK_SOURCES_DIR.
const EnvPrefix = "WESLINK_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// flagKeys maps flag names whose config key is not the snake_case form.
var flagKeys = map[string]string{
	"state":       "state_path",
	"condition":   "conditions",
	"constant":    "constants",
	"entry-point": "entry_points",
	"bundle":      "bundles",
}

// configKeys holds the koanf key of every Config field.
var configKeys = func() map[string]bool {
	keys := make(map[string]bool)
	t := reflect.TypeFor[Config]()
	for i := range t.NumField() {
		if tag := t.Field(i).Tag.Get("koanf"); tag != "" && tag != "-" {
			keys[tag] = true
		}
	}
	return keys
}()

func defaults() map[string]any {
	return map[string]any{
		"root":         DefaultRoot,
		"sources_dir":  DefaultSourcesDir,
		"package_name": DefaultPackageName,
		"dialect":      DefaultDialect,
		"state_path":   DefaultStateFile,
		"format":       DefaultFormat,
		"verbose":      false,
	}
}

// configExistsIn reports the config file in dir, or "".
func configExistsIn(dir string) string {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// FindProjectRoot walks up from startDir to the nearest directory holding a
// config file. It returns "" when none is found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Load loads configuration from defaults, the config file, environment
// variables and flags, in increasing precedence. cfgFile selects the config
// file explicitly; otherwise one is searched for upward from the working
// directory. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	projectRoot := cwd
	if cfgFile != "" {
		abs, err := filepath.Abs(cfgFile)
		if err != nil {
			return nil, err
		}
		cfgFile = abs
		projectRoot = filepath.Dir(abs)
	} else if root := FindProjectRoot(cwd); root != "" {
		projectRoot = root
		cfgFile = configExistsIn(root)
	}

	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment: WESLINK_SOURCES_DIR -> sources_dir
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those set explicitly
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			// command-local flags such as --limit are not configuration
			if !configKeys[key] {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
			ErrorUnused:      true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ProjectRoot = projectRoot
	cfg.File = cfgFile
	cfg.resolvePaths(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// resolvePaths makes path options absolute. Paths given as flags are
// relative to the working directory, all others to the project root.
func (c *Config) resolvePaths(flags *pflag.FlagSet) {
	fromFlag := func(name string) bool {
		return flags != nil && flags.Changed(name)
	}
	resolve := func(p, flag string) string {
		if p == "" || p == ":memory:" || filepath.IsAbs(p) {
			return p
		}
		if fromFlag(flag) {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return filepath.Clean(p)
		}
		return filepath.Join(c.ProjectRoot, p)
	}

	c.SourcesDir = resolve(c.SourcesDir, "sources-dir")
	c.Output = resolve(c.Output, "output")
	c.SourceMap = resolve(c.SourceMap, "sourcemap")
	c.StatePath = resolve(c.StatePath, "state")
	for i, b := range c.Bundles {
		c.Bundles[i] = resolve(b, "bundle")
	}
}
