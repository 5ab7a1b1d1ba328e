package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/limaJavier/smartclassroom/pkg/model"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Session   SessionConfig   `mapstructure:"session"`
	Timetable TimetableConfig `mapstructure:"timetable"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	AllowOrigins []string `mapstructure:"allow_origins"`
	BodyLimit    int64    `mapstructure:"body_limit"` // Bytes accepted per request
}

type UploadConfig struct {
	Dir         string `mapstructure:"dir"`
	MaxFiles    int    `mapstructure:"max_files"`
	MaxFileSize int64  `mapstructure:"max_file_size"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "memory" or "redis"
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// AdminConfig seeds the first administrator on an empty store. An empty username disables it.
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Name     string `mapstructure:"name"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// TimetableConfig holds server-wide rule defaults; request rules are layered on top
type TimetableConfig struct {
	MaxClassesPerDay        int      `mapstructure:"max_classes_per_day"`
	LunchBreak              string   `mapstructure:"lunch_break"`
	NoRepeatSubjectSameDay  bool     `mapstructure:"no_repeat_subject_same_day"`
	BalanceSubjects         bool     `mapstructure:"balance_subjects"`
	PreferMorningForCore    bool     `mapstructure:"prefer_morning_for_core"`
	EnforceMaxClassesPerDay bool     `mapstructure:"enforce_max_classes_per_day"`
	TimeSlots               []string `mapstructure:"time_slots"`
	Days                    []string `mapstructure:"days"`
}

// Rules converts the configuration into generator rules
func (c TimetableConfig) Rules() model.Rules {
	return model.Rules{
		MaxClassesPerDay:        c.MaxClassesPerDay,
		LunchBreak:              c.LunchBreak,
		NoRepeatSubjectSameDay:  c.NoRepeatSubjectSameDay,
		BalanceSubjects:         c.BalanceSubjects,
		PreferMorningForCore:    c.PreferMorningForCore,
		EnforceMaxClassesPerDay: c.EnforceMaxClassesPerDay,
		TimeSlots:               c.TimeSlots,
		Days:                    c.Days,
	}
}

// Load reads configuration with precedence: environment (CLASSROOM_*) > config file > defaults
func Load(path string) (*Config, error) {
	v := viper.New()

	//** Defaults
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("server.body_limit", 110<<20)

	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_files", 20)
	v.SetDefault("upload.max_file_size", 5<<20)

	v.SetDefault("store.driver", "memory")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "classroom:")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("session.ttl", "24h")

	v.SetDefault("admin.username", "")
	v.SetDefault("admin.name", "")
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")

	defaults := model.DefaultRules()
	v.SetDefault("timetable.max_classes_per_day", defaults.MaxClassesPerDay)
	v.SetDefault("timetable.lunch_break", defaults.LunchBreak)
	v.SetDefault("timetable.no_repeat_subject_same_day", defaults.NoRepeatSubjectSameDay)
	v.SetDefault("timetable.balance_subjects", defaults.BalanceSubjects)
	v.SetDefault("timetable.prefer_morning_for_core", defaults.PreferMorningForCore)
	v.SetDefault("timetable.enforce_max_classes_per_day", defaults.EnforceMaxClassesPerDay)
	v.SetDefault("timetable.time_slots", defaults.TimeSlots)
	v.SetDefault("timetable.days", defaults.Days)

	//** Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	//** Environment
	v.SetEnvPrefix("CLASSROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("cannot read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port must be between 1 and 65535")
	}
	if c.Store.Driver != "memory" && c.Store.Driver != "redis" {
		return fmt.Errorf("invalid config: store.driver must be \"memory\" or \"redis\", got %q", c.Store.Driver)
	}
	if c.Upload.Dir == "" {
		return fmt.Errorf("invalid config: upload.dir cannot be empty")
	}
	if c.Upload.MaxFiles <= 0 {
		return fmt.Errorf("invalid config: upload.max_files must be positive")
	}
	if len(c.Timetable.TimeSlots) == 0 || len(c.Timetable.Days) == 0 {
		return fmt.Errorf("invalid config: timetable.time_slots and timetable.days cannot be empty")
	}
	if c.Admin.Username != "" && len(c.Admin.Password) < 6 {
		return fmt.Errorf("invalid config: admin.password must be at least 6 characters long")
	}
	return nil
}
