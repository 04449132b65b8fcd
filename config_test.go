package depot

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"gotest.tools/v3/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("DEPOT_TABLE_CAPACITY", "64")
	t.Setenv("DEPOT_ENTITY_CAPACITY", "1024")
	t.Setenv("DEPOT_LOG_LEVEL", "debug")
	t.Setenv("DEPOT_BORROW_CHECKS", "false")

	cfg, err := LoadConfig()
	assert.NilError(t, err)
	assert.Equal(t, cfg.TableCapacity, 64)
	assert.Equal(t, cfg.EntityCapacity, 1024)
	assert.Equal(t, cfg.LogLevel, "debug")
	assert.Equal(t, cfg.BorrowChecks, false)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"default", func(*Config) {}, ""},
		{"negative table capacity", func(c *Config) { c.TableCapacity = -1 }, "table capacity"},
		{"negative entity capacity", func(c *Config) { c.EntityCapacity = -5 }, "entity capacity"},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NilError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestWorldLogging(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	w := Factory.NewWorld(cfg, WithLogger(zerolog.New(&buf)))

	w.Spawn(Position{}, Velocity{})
	out := buf.String()
	assert.Assert(t, strings.Contains(out, `"message":"component registered"`), out)
	assert.Assert(t, strings.Contains(out, `"message":"archetype created"`), out)
	assert.Assert(t, strings.Contains(out, `"world_id":`), out)

	buf.Reset()
	quiet := Factory.NewWorld(DefaultConfig(), WithLogger(zerolog.New(&buf)))
	quiet.Spawn(Position{})
	assert.Equal(t, buf.Len(), 0)
}
