// Package config loads fixture configuration from YAML files, .env files and
// environment variables.
//
// It uses Viper for file and environment handling and godotenv for .env
// files. A missing file is not an error: the target struct keeps its zero
// values and callers apply their own defaults.
//
// # Usage
//
//	var cfg fixture.Config
//	files, err := config.LoadConfig("fixture", &cfg)
//
// Environment variables prefixed with the upper-cased name override file
// values, so FIXTURE_CLEANUP_ORDER sets cleanup_order. <NAME>_CONFIG points
// at an explicit file.
package config
