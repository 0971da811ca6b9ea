// Package config loads environment-driven configuration structs.
//
// Values are read with github.com/caarlos0/env/v11 after a one-time attempt to
// load a .env file with github.com/joho/godotenv. Each configuration type is
// parsed once per process and cached; later Load calls for the same type
// return the cached copy.
//
// A configuration type may implement Validator. Validate runs after parsing
// and its error is returned from Load, so invalid values stop startup instead
// of surfacing on the first request.
//
//	type SweeperConfig struct {
//		Interval time.Duration `env:"SWEEPER_INTERVAL" envDefault:"10m"`
//	}
//
//	var cfg SweeperConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
package config
