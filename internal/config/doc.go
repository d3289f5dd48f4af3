// Package config loads the application configuration from a YAML file,
// filling in defaults for anything unset. Secrets (API keys) stay in the
// environment; the file only names which env variable to read.
package config
