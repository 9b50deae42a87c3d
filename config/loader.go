package config

import (
	"cmp"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/scribegate/logger"
)

// FileSystem is what the loader needs from the disk.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem reads the actual disk. LoadEnv never overrides variables
// already set in the process.
type RealFileSystem struct{}

func (*RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (*RealFileSystem) LoadEnv(path string) error { return godotenv.Load(path) }

// LoaderConfig holds the loader's inputs. Empty paths are searched for.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	// EnvPrefix defaults to the upper-cased service name plus "_".
	EnvPrefix string
}

type LoaderOption func(*LoaderConfig)

func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile names the YAML file. It must exist.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile names the .env file. A missing one is skipped.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// Resolver finds the config and .env files of a service.
type Resolver struct {
	FileSystem FileSystem
}

type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles keeps explicit paths and otherwise takes the first existing
// candidate, looking next to the service's cmd directory before the
// working directory.
func (r *Resolver) ResolveFiles(serviceName string, lc LoaderConfig) ResolvedFiles {
	return ResolvedFiles{
		ConfigFile: cmp.Or(lc.ConfigFile, r.first(candidates(serviceName, "config.yml"), "./config/config.yml")),
		EnvFile:    cmp.Or(lc.EnvFile, r.first(candidates(serviceName, ".env."+serviceName, ".env"))),
	}
}

func candidates(serviceName string, names ...string) []string {
	var paths []string
	for _, name := range names {
		for _, dir := range []string{"./cmd/" + serviceName, "../cmd/" + serviceName, "../../cmd/" + serviceName} {
			paths = append(paths, dir+"/"+name)
		}
	}
	for _, name := range names {
		paths = append(paths, "./"+name, "../"+name)
	}
	return paths
}

func (r *Resolver) first(paths []string, more ...string) string {
	for _, p := range append(paths, more...) {
		if r.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

// LoadConfig fills cfg, a pointer to a struct with mapstructure tags,
// from the YAML file, then the .env file, then prefixed environment
// variables, each overriding the one before.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	lc := LoaderConfig{FileSystem: &RealFileSystem{}, EnvPrefix: envPrefix(serviceName)}
	for _, opt := range opts {
		opt(&lc)
	}
	files := (&Resolver{FileSystem: lc.FileSystem}).ResolveFiles(serviceName, lc)

	v := viper.New()
	if files.ConfigFile != "" {
		if !lc.FileSystem.Exists(files.ConfigFile) {
			return fmt.Errorf("config: file %s not found", files.ConfigFile)
		}
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", files.ConfigFile, err)
		}
	}
	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			logger.WithComponent("config").Warn("Ignoring unreadable env file", map[string]interface{}{
				"path": files.EnvFile, "error": err.Error(),
			})
		}
	}
	for key, env := range envBindings(reflect.TypeOf(cfg), lc.EnvPrefix) {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("config: bind %s: %w", env, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", serviceName, err)
	}
	return nil
}

func envPrefix(serviceName string) string {
	return strings.ToUpper(strings.ReplaceAll(serviceName, "-", "_")) + "_"
}

// envBindings maps every leaf key of t to its variable: prefix plus the
// key upper-cased with dots as underscores.
func envBindings(t reflect.Type, prefix string) map[string]string {
	out := make(map[string]string)
	for _, key := range leafKeys(t, "") {
		out[key] = prefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	}
	return out
}

var timeType = reflect.TypeFor[time.Time]()

// leafKeys lists the dotted mapstructure keys of t's fields. Squashed and
// embedded structs contribute their fields at the parent's level.
func leafKeys(t reflect.Type, parent string) []string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	var keys []string
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		key := cmp.Or(name, strings.ToLower(f.Name))
		if parent != "" {
			key = parent + "." + key
		}

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		switch {
		case ft.Kind() != reflect.Struct || ft == timeType:
			keys = append(keys, key)
		case strings.Contains(opts, "squash") || (f.Anonymous && name == ""):
			keys = append(keys, leafKeys(ft, parent)...)
		default:
			keys = append(keys, leafKeys(ft, key)...)
		}
	}
	return keys
}
