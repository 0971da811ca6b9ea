package config_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/entitlekit/pkg/config"
)

type defaultsConfig struct {
	Name  string `env:"CFG_TEST_DEFAULT_NAME" envDefault:"fallback"`
	Count int    `env:"CFG_TEST_DEFAULT_COUNT" envDefault:"42"`
}

type cachedConfig struct {
	Value string `env:"CFG_TEST_CACHED"`
}

type requiredConfig struct {
	Secret string `env:"CFG_TEST_REQUIRED,required"`
}

type validatedConfig struct {
	Limit int `env:"CFG_TEST_LIMIT" envDefault:"-1"`
}

func (c validatedConfig) Validate() error {
	if c.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	return nil
}

func TestLoad_Defaults(t *testing.T) {
	var cfg defaultsConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "fallback", cfg.Name)
	assert.Equal(t, 42, cfg.Count)
}

func TestLoad_CachesPerType(t *testing.T) {
	t.Setenv("CFG_TEST_CACHED", "first")

	var a cachedConfig
	require.NoError(t, config.Load(&a))

	t.Setenv("CFG_TEST_CACHED", "second")
	var b cachedConfig
	require.NoError(t, config.Load(&b))

	assert.Equal(t, "first", b.Value)
}

func TestLoad_NilPointer(t *testing.T) {
	assert.ErrorIs(t, config.Load[defaultsConfig](nil), config.ErrNilPointer)
}

func TestParse_Required(t *testing.T) {
	_, err := config.Parse[requiredConfig]()
	assert.ErrorIs(t, err, config.ErrParsingConfig)

	t.Setenv("CFG_TEST_REQUIRED", "s3cr3t")
	cfg, err := config.Parse[requiredConfig]()
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", cfg.Secret)
}

func TestParse_Validator(t *testing.T) {
	_, err := config.Parse[validatedConfig]()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	t.Setenv("CFG_TEST_LIMIT", "5")
	cfg, err := config.Parse[validatedConfig]()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Limit)
}

func TestMustLoad_Panics(t *testing.T) {
	type mustConfig struct {
		Secret string `env:"CFG_TEST_MUST_REQUIRED,required"`
	}
	assert.Panics(t, func() {
		var cfg mustConfig
		config.MustLoad(&cfg)
	})
}
