// Package config loads the settings shared by the seeding and clearing
// commands from defaults, an optional YAML file, a .env file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/lessonseed/internal/storage"
)

// Store drivers.
const (
	DriverREST     = "rest"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// EnvPrefix marks environment variables that map onto any config key:
// LESSONSEED_STORE__DRIVER sets store.driver.
const EnvPrefix = "LESSONSEED_"

// Config holds every setting the commands read.
type Config struct {
	Store   StoreConfig   `koanf:"store"`
	Tables  TablesConfig  `koanf:"tables"`
	Lessons LessonsConfig `koanf:"lessons"`
	Seed    SeedConfig    `koanf:"seed"`
	Clear   ClearConfig   `koanf:"clear"`
	Log     LogConfig     `koanf:"log"`
}

// StoreConfig selects and configures the backend.
type StoreConfig struct {
	Driver         string        `koanf:"driver" validate:"oneof=rest postgres sqlite"`
	URL            string        `koanf:"url" validate:"required_if=Driver rest"`
	AnonKey        string        `koanf:"anon_key"`
	ServiceRoleKey string        `koanf:"service_role_key"`
	DatabaseURL    string        `koanf:"database_url" validate:"required_if=Driver postgres"`
	SQLitePath     string        `koanf:"sqlite_path" validate:"required_if=Driver sqlite"`
	Timeout        time.Duration `koanf:"timeout" validate:"gt=0"`
}

// APIKey returns the key sent to the table API. The service-role key wins
// over the anonymous key because writes must get past row-level security.
func (s StoreConfig) APIKey() string {
	if s.ServiceRoleKey != "" {
		return s.ServiceRoleKey
	}
	return s.AnonKey
}

type TablesConfig struct {
	Courses string `koanf:"courses"`
	Lessons string `koanf:"lessons"`
}

// Tables converts the names for the storage packages.
func (t TablesConfig) Tables() storage.Tables {
	return storage.Tables{Courses: t.Courses, Lessons: t.Lessons}
}

// LessonsConfig says where lesson definitions come from. With no file the
// built-in catalog is used; with a git URL the file is read from the checkout.
type LessonsConfig struct {
	File      string   `koanf:"file"`
	GitURL    string   `koanf:"git_url"`
	GitDir    string   `koanf:"git_dir"`
	Languages []string `koanf:"languages"`
}

type SeedConfig struct {
	Upsert        bool `koanf:"upsert"`
	CreateCourses bool `koanf:"create_courses"`
}

type ClearConfig struct {
	Table string `koanf:"table"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	tables := storage.DefaultTables()
	return Config{
		Store: StoreConfig{
			Driver:     DriverREST,
			SQLitePath: "lessonseed.db",
			Timeout:    2 * time.Minute,
		},
		Tables:  TablesConfig{Courses: tables.Courses, Lessons: tables.Lessons},
		Lessons: LessonsConfig{GitDir: ".lessonseed/repos"},
		Clear:   ClearConfig{Table: "user_lesson_progress"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// envKeys maps the variables the web app already uses onto config keys.
var envKeys = map[string]string{
	"NEXT_PUBLIC_SUPABASE_URL":      "store.url",
	"NEXT_PUBLIC_SUPABASE_ANON_KEY": "store.anon_key",
	"SUPABASE_SERVICE_ROLE_KEY":     "store.service_role_key",
	"DATABASE_URL":                  "store.database_url",
}

// flagKeys maps flag names onto config keys. Flags mapped to "" only steer
// loading and are not config values.
var flagKeys = map[string]string{
	"config":         "",
	"env-file":       "",
	"driver":         "store.driver",
	"sqlite-path":    "store.sqlite_path",
	"timeout":        "store.timeout",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"lessons":        "lessons.file",
	"git-url":        "lessons.git_url",
	"git-dir":        "lessons.git_dir",
	"language":       "lessons.languages",
	"upsert":         "seed.upsert",
	"create-courses": "seed.create_courses",
	"table":          "clear.table",
}

// RegisterFlags adds the flags both commands accept.
func RegisterFlags(f *pflag.FlagSet) {
	d := Default()
	f.String("config", "", "Path to a YAML config file")
	f.String("env-file", ".env", "Path to a .env file; a missing default file is ignored")
	f.String("driver", d.Store.Driver, "Store backend: rest, postgres or sqlite")
	f.String("sqlite-path", d.Store.SQLitePath, "SQLite database file for the sqlite driver")
	f.Duration("timeout", d.Store.Timeout, "Overall deadline for the run")
	f.String("log-level", d.Log.Level, "Log level: debug, info, warn or error")
	f.String("log-format", d.Log.Format, "Log format: text or json")
}

// RegisterSeedFlags adds the flags of the seeding command.
func RegisterSeedFlags(f *pflag.FlagSet) {
	f.String("lessons", "", "Lesson catalog file (.json, .yaml, .yml); built-in lessons when empty")
	f.String("git-url", "", "Git repository holding the lesson catalog file")
	f.String("git-dir", Default().Lessons.GitDir, "Directory git checkouts are cached in")
	f.StringSlice("language", nil, "Only seed these language codes (repeatable)")
	f.Bool("upsert", false, "Update lessons already stored at the same course and number")
	f.Bool("create-courses", false, "Create missing courses first (sqlite driver only)")
}

// RegisterClearFlags adds the flags of the clearing command.
func RegisterClearFlags(f *pflag.FlagSet) {
	f.String("table", Default().Clear.Table, "Table to delete every row from")
}

// Load builds the configuration from an already parsed flag set.
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path, _ := f.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if path, _ := f.GetString("env-file"); path != "" {
		if err := godotenv.Load(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) || f.Changed("env-file") {
				return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Load(posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[fl.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(f, fl)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envValue(key, value string) (string, interface{}) {
	if k, ok := envKeys[key]; ok {
		return k, value
	}
	if !strings.HasPrefix(key, EnvPrefix) {
		return "", nil
	}
	k := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, EnvPrefix), "__", "."))
	if k == "lessons.languages" {
		return k, splitAndTrim(value)
	}
	return k, value
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every problem that would make a run fail before it
// touches the network.
func (c *Config) Validate() error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		errs = append(errs, err)
	}

	if c.Seed.CreateCourses && c.Store.Driver != DriverSQLite {
		errs = append(errs, fmt.Errorf("seed.create_courses needs the %s driver", DriverSQLite))
	}

	if c.Store.Driver == DriverREST {
		if c.Store.URL != "" {
			if err := validate.Var(c.Store.URL, "url"); err != nil {
				errs = append(errs, fmt.Errorf("store.url %q is not a URL", c.Store.URL))
			}
		}
		if c.Store.APIKey() == "" {
			errs = append(errs, errors.New("missing store credentials: set NEXT_PUBLIC_SUPABASE_ANON_KEY or SUPABASE_SERVICE_ROLE_KEY"))
		}
	}

	for _, table := range []string{c.Tables.Courses, c.Tables.Lessons, c.Clear.Table} {
		if err := storage.ValidateTable(table); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
