package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Durability selects the write concern used by insert operations.
type Durability string

const (
	// DurabilityFast sends unacknowledged writes.
	DurabilityFast Durability = "fast"
	// DurabilityDurable waits for a journaled acknowledgement.
	DurabilityDurable Durability = "durable"
)

// Server is one benchmark target.
type Server struct {
	Label string `mapstructure:"label" validate:"required"`
	URI   string `mapstructure:"uri" validate:"required"`
}

// Config holds every setting of a benchmark invocation. It is built once at
// startup and passed by value, it is never mutated afterwards.
type Config struct {
	Threads          int           `mapstructure:"threads" validate:"gte=1"`
	Runs             int           `mapstructure:"runs" validate:"gte=1"`
	Records          int           `mapstructure:"records" validate:"gte=1"`
	Servers          []Server      `mapstructure:"servers" validate:"required,min=1,dive"`
	Server           string        `mapstructure:"server"`
	Database         string        `mapstructure:"database" validate:"required"`
	Collection       string        `mapstructure:"collection" validate:"required"`
	IndexFields      []string      `mapstructure:"indexFields" validate:"required,min=1,dive,required"`
	Durability       Durability    `mapstructure:"durability" validate:"oneof=fast durable"`
	OperationTimeout time.Duration `mapstructure:"operationTimeout" validate:"gte=0"`
	ConnectTimeout   time.Duration `mapstructure:"connectTimeout" validate:"gte=0"`
	MinComments      int           `mapstructure:"minComments" validate:"gte=0"`
	MaxComments      int           `mapstructure:"maxComments" validate:"gtefield=MinComments"`
	Seed             int64         `mapstructure:"seed"`
	OutputPrefix     string        `mapstructure:"outputPrefix"`
	LogLevel         string        `mapstructure:"logLevel" validate:"oneof=debug info warn error"`
}

// Validate checks the decoded configuration.
func (c Config) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// SelectedServers returns the servers to benchmark, in configuration order.
// An empty Server filter selects all of them.
func (c Config) SelectedServers() ([]Server, error) {
	if c.Server == "" {
		return c.Servers, nil
	}
	for _, s := range c.Servers {
		if s.Label == c.Server {
			return []Server{s}, nil
		}
	}
	return nil, fmt.Errorf("server %q is not configured", c.Server)
}

// SlotsPerRun is the number of results a complete server run produces.
func (c Config) SlotsPerRun() int {
	return 3*c.Threads + 1
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("threads", 1)
	v.SetDefault("runs", 3)
	v.SetDefault("records", 1000)
	v.SetDefault("servers", []map[string]interface{}{
		{"label": "local", "uri": "mongodb://localhost:27017"},
	})
	v.SetDefault("database", "benchmarking")
	v.SetDefault("collection", "posts")
	v.SetDefault("indexFields", []string{"author", "tags", "comments.author"})
	v.SetDefault("durability", string(DurabilityFast))
	v.SetDefault("operationTimeout", 0)
	v.SetDefault("connectTimeout", 10*time.Second)
	v.SetDefault("minComments", 0)
	v.SetDefault("maxComments", 10)
	v.SetDefault("seed", 0)
	v.SetDefault("outputPrefix", "benchmark")
	v.SetDefault("logLevel", "info")
}

// Load builds a Config from defaults, an optional YAML file, MONGOBENCH_*
// environment variables and the given flags, in increasing precedence.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("mongobench")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" || bindErr != nil {
				return
			}
			// viper keys are case-insensitive, "index-fields" binds to indexFields
			bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", ""), f)
		})
		if bindErr != nil {
			return Config{}, bindErr
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
