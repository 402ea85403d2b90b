package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/vango-dev/hashpage"
	herrors "github.com/vango-dev/hashpage/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "hashpage.toml"

	// EnvPrefix prefixes environment overrides, e.g. HASHPAGE_VERSION.
	EnvPrefix = "HASHPAGE"

	// DefaultAddr is the default serve address.
	DefaultAddr = "localhost:3000"

	// DefaultBridge is the default bridge path.
	DefaultBridge = "/_bridge"

	// DefaultStore keeps the cache in memory.
	DefaultStore = "memory"
)

// Config is the complete hashpage.toml configuration.
type Config struct {
	// Pages is the URL prefix of page fragments.
	Pages string `mapstructure:"pages" toml:"pages" validate:"required"`

	// Widgets is the URL prefix of local widgets (default: Pages + "/widget").
	Widgets string `mapstructure:"widgets" toml:"widgets,omitempty"`

	// Scope namespaces stored keys.
	Scope string `mapstructure:"scope" toml:"scope" validate:"required,startswith=/"`

	// El selects the application root.
	El string `mapstructure:"el" toml:"el,omitempty"`

	Debug   bool   `mapstructure:"debug" toml:"debug,omitempty"`
	Version string `mapstructure:"version" toml:"version,omitempty"`

	// Expire is the cache lifetime in seconds.
	Expire int `mapstructure:"expire" toml:"expire" validate:"gte=0"`

	// NotFound is the fallback view for pages that cannot be fetched.
	NotFound string `mapstructure:"notfound" toml:"notfound,omitempty"`

	App string `mapstructure:"app" toml:"app" validate:"required"`

	// Remote is the URL prefix of "@" widgets.
	Remote string `mapstructure:"remote" toml:"remote,omitempty" validate:"omitempty,url"`

	// Store selects the cache backend: memory, badger:DIR or sqlite:FILE.
	Store string `mapstructure:"store" toml:"store" validate:"required,store"`

	// Source is where fragments are read from: a directory, file://,
	// http(s)://, s3://bucket/prefix or gs://bucket/prefix.
	Source string `mapstructure:"source" toml:"source" validate:"required"`

	Serve ServeConfig `mapstructure:"serve" toml:"serve"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServeConfig configures `hashpage serve`.
type ServeConfig struct {
	Addr string `mapstructure:"addr" toml:"addr" validate:"required,hostname_port"`

	// Bridge is the WebSocket path.
	Bridge string `mapstructure:"bridge" toml:"bridge" validate:"required,startswith=/"`

	// Metrics exposes /metrics.
	Metrics bool `mapstructure:"metrics" toml:"metrics"`

	// RateLimit caps upstream HTTP fetches per second. Zero disables it.
	RateLimit float64 `mapstructure:"rate_limit" toml:"rate_limit,omitempty" validate:"gte=0"`

	// Watch evicts cached fragments when files under a directory source change.
	Watch bool `mapstructure:"watch" toml:"watch,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Pages:  "page",
		Scope:  "/",
		Expire: hashpage.DefaultExpire,
		App:    "hashpage",
		Store:  DefaultStore,
		Source: ".",
		Serve: ServeConfig{
			Addr:    DefaultAddr,
			Bridge:  DefaultBridge,
			Metrics: true,
		},
	}
}

// NewViper returns a viper instance with defaults and environment
// overrides registered. Commands bind their flags to it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	d := New()
	v.SetDefault("pages", d.Pages)
	v.SetDefault("widgets", "")
	v.SetDefault("scope", d.Scope)
	v.SetDefault("el", "")
	v.SetDefault("debug", false)
	v.SetDefault("version", "")
	v.SetDefault("expire", d.Expire)
	v.SetDefault("notfound", "")
	v.SetDefault("app", d.App)
	v.SetDefault("remote", "")
	v.SetDefault("store", d.Store)
	v.SetDefault("source", d.Source)
	v.SetDefault("serve.addr", d.Serve.Addr)
	v.SetDefault("serve.bridge", d.Serve.Bridge)
	v.SetDefault("serve.metrics", d.Serve.Metrics)
	v.SetDefault("serve.rate_limit", 0.0)
	v.SetDefault("serve.watch", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path, or hashpage.toml in the working directory when path is
// empty, into v and returns the validated result. A missing default file is
// not an error; a missing explicit one is.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(ConfigFileName, ".toml"))
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, herrors.New("H001").
				WithDetail(err.Error()).
				Wrap(err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, herrors.New("H002").WithDetail(err.Error()).Wrap(err)
	}
	cfg.configPath = v.ConfigFileUsed()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in values derived from other fields.
func (c *Config) applyDefaults() {
	c.Pages = strings.TrimRight(c.Pages, "/")
	if c.Widgets == "" {
		c.Widgets = c.Pages + "/widget"
	}
	if c.Expire == 0 {
		c.Expire = hashpage.DefaultExpire
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("store", func(fl validator.FieldLevel) bool {
		_, _, err := ParseStore(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return herrors.New("H002").Wrap(err)
	}
	f := fields[0]
	e := herrors.New("H002").WithDetailf("%s fails %q (value %v)", strings.ToLower(f.Namespace()), f.Tag(), f.Value())
	if f.Tag() == "store" {
		e = herrors.New("H003").WithDetailf("store %q", f.Value())
	}
	return e.Wrap(err)
}

// Options converts the configuration to runtime options.
func (c *Config) Options() hashpage.Options {
	return hashpage.Options{
		Pages:    c.Pages,
		Widgets:  c.Widgets,
		Scope:    c.Scope,
		El:       c.El,
		Debug:    c.Debug,
		Version:  c.Version,
		Expire:   c.Expire,
		NotFound: c.NotFound,
		App:      c.App,
		Remote:   c.Remote,
	}
}

// StoreKind names a cache backend.
type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreBadger StoreKind = "badger"
	StoreSQLite StoreKind = "sqlite"
)

// ParseStore splits a store setting into its kind and argument.
// "badger" without a directory is an in-memory Badger instance.
func ParseStore(s string) (StoreKind, string, error) {
	kind, arg, _ := strings.Cut(strings.TrimSpace(s), ":")
	switch StoreKind(kind) {
	case StoreMemory:
		if arg != "" {
			break
		}
		return StoreMemory, "", nil
	case StoreBadger:
		return StoreBadger, arg, nil
	case StoreSQLite:
		if arg == "" {
			break
		}
		return StoreSQLite, arg, nil
	}
	return "", "", herrors.New("H003").WithDetailf("store %q", s)
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return herrors.Newf(herrors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration as TOML. Existing files are overwritten.
func (c *Config) SaveTo(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return herrors.New("H002").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return herrors.New("H001").WithDetail(path).Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from, or "".
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}
