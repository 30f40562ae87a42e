package config

import (
	"flag"
	"io"
	"os"
	"strings"

	"codeberg.org/mutker/resmon/internal/errors"
	"github.com/spf13/viper"
)

const (
	DefaultInterval  = 1.0
	DefaultKeepCount = 50
	DefaultListen    = ":9720"
	DefaultJournalDB = "/var/lib/resmon/journal.db"
	DefaultLogLevel  = "info"

	// Valid update interval range in seconds
	MinInterval = 0.1
	MaxInterval = 60.0
)

type Config struct {
	Interval  float64 `mapstructure:"interval"`
	KeepCount int     `mapstructure:"keep_count"`
	Listen    string  `mapstructure:"listen"`
	GPUIndex  int     `mapstructure:"gpu_index"`
	Journal   bool    `mapstructure:"journal"`
	JournalDB string  `mapstructure:"journal_db"`
	LogLevel  string  `mapstructure:"log_level"`
	Debug     bool    `mapstructure:"debug"`
	Verbose   bool    `mapstructure:"verbose"`
}

func Load() (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("keep_count", DefaultKeepCount)
	v.SetDefault("listen", DefaultListen)
	v.SetDefault("gpu_index", 0)
	v.SetDefault("journal", false)
	v.SetDefault("journal_db", DefaultJournalDB)
	v.SetDefault("log_level", DefaultLogLevel)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	if err := bindFlags(v); err != nil {
		return nil, err
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func readConfigFile(v *viper.Viper) error {
	errFactory := errors.New()

	// RESMON_CONFIG points at an explicit config file; an empty value
	// disables file loading entirely (used by tests).
	if path, ok := os.LookupEnv("RESMON_CONFIG"); ok {
		if path == "" {
			return nil
		}
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}

		return nil
	}

	v.SetConfigName("resmon")
	v.SetConfigType("toml")
	v.AddConfigPath("/etc")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	return nil
}

func bindFlags(v *viper.Viper) error {
	errFactory := errors.New()

	fs := flag.NewFlagSet("resmon", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Float64("interval", DefaultInterval, "Sampling interval in seconds")
	fs.Int("keep-count", DefaultKeepCount, "Number of completed task summaries to retain")
	fs.String("listen", DefaultListen, "HTTP listen address for the event stream")
	fs.Int("gpu-index", 0, "Accelerator device index to sample")
	fs.Bool("journal", false, "Record completed task summaries to the journal database")
	fs.String("journal-db", DefaultJournalDB, "Path to the journal database")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")

	if err := fs.Parse(commandLineArgs()); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	// Only flags the caller actually set override file values
	fs.Visit(func(f *flag.Flag) {
		v.Set(flagKey(f.Name), f.Value.String())
	})

	return nil
}

// commandLineArgs strips the test runner's own flags so Load stays
// usable from package tests.
func commandLineArgs() []string {
	args := make([]string, 0, len(os.Args)-1)
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, "-test.") || strings.HasPrefix(arg, "--test.") {
			continue
		}
		args = append(args, arg)
	}

	return args
}

func flagKey(name string) string {
	switch name {
	case "keep-count":
		return "keep_count"
	case "gpu-index":
		return "gpu_index"
	case "journal-db":
		return "journal_db"
	case "log-level":
		return "log_level"
	default:
		return name
	}
}

// Validate checks the loaded configuration and returns a validation
// error for the first out-of-range value it finds.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval < MinInterval || c.Interval > MaxInterval {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}

	if c.KeepCount < 1 {
		return errFactory.WithData(errors.ErrInvalidKeepCount, c.KeepCount)
	}

	if c.GPUIndex < 0 {
		return errFactory.WithData(errors.ErrInvalidArgument, c.GPUIndex)
	}

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.Journal && c.JournalDB == "" {
		return errFactory.New(errors.ErrInvalidConfig).WithMessage("journal enabled without a database path")
	}

	return nil
}
