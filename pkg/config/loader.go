package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Validator is implemented by configuration types that check their own values.
type Validator interface {
	Validate() error
}

type entry struct {
	once  sync.Once
	value any
	err   error
}

var (
	cache   sync.Map // reflect.Type -> *entry
	dotenvs sync.Once
)

// Load fills v from the environment. Each type is parsed and validated once;
// a failed load is cached as well so every caller sees the same error.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenvs.Do(func() {
		// the .env file is optional
		_ = godotenv.Load()
	})

	key := reflect.TypeOf(v).Elem()
	e, _ := cache.LoadOrStore(key, &entry{})
	ent := e.(*entry)
	ent.once.Do(func() {
		var cfg T
		cfg, ent.err = Parse[T]()
		if ent.err == nil {
			ent.value = cfg
		}
	})
	if ent.err != nil {
		return ent.err
	}

	cfg, ok := ent.value.(T)
	if !ok {
		return ErrConfigNotLoaded
	}
	*v = cfg
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration %T: %v", *v, err))
	}
}

// Parse reads T from the current environment without caching.
func Parse[T any]() (T, error) {
	var cfg T
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Join(ErrParsingConfig, err)
	}
	if val, ok := any(&cfg).(Validator); ok {
		if err := val.Validate(); err != nil {
			return cfg, errors.Join(ErrInvalidConfig, err)
		}
	}
	return cfg, nil
}
