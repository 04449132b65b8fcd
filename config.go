package depot

import (
	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config tunes a World. Every field can be set from the environment through
// LoadConfig.
type Config struct {
	// TableCapacity is the initial row capacity of new tables and sparse sets.
	TableCapacity int `config:"DEPOT_TABLE_CAPACITY"`
	// EntityCapacity pre-sizes the entity allocator.
	EntityCapacity int `config:"DEPOT_ENTITY_CAPACITY"`
	// LogLevel is a zerolog level name applied to the world's logger.
	LogLevel string `config:"DEPOT_LOG_LEVEL"`
	// BorrowChecks enables the runtime check for conflicting live query
	// iterations.
	BorrowChecks bool `config:"DEPOT_BORROW_CHECKS"`
}

func DefaultConfig() Config {
	return Config{
		TableCapacity:  0,
		EntityCapacity: 0,
		LogLevel:       zerolog.InfoLevel.String(),
		BorrowChecks:   true,
	}
}

// LoadConfig reads DEPOT_* environment variables over DefaultConfig.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := config.FromEnv().To(&cfg); err != nil {
		return Config{}, eris.Wrap(err, "failed to load depot config from environment")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.TableCapacity < 0 {
		return eris.Errorf("table capacity must not be negative, got %d", c.TableCapacity)
	}
	if c.EntityCapacity < 0 {
		return eris.Errorf("entity capacity must not be negative, got %d", c.EntityCapacity)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c Config) level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, eris.Wrapf(err, "invalid log level %q", c.LogLevel)
	}
	return lvl, nil
}

type worldOptions struct {
	config Config
	logger zerolog.Logger
}

// WorldOption configures NewWorld.
type WorldOption func(*worldOptions)

func WithConfig(cfg Config) WorldOption {
	return func(o *worldOptions) {
		o.config = cfg
	}
}

// WithLogger routes world events to logger. The default logger discards them.
func WithLogger(logger zerolog.Logger) WorldOption {
	return func(o *worldOptions) {
		o.logger = logger
	}
}
