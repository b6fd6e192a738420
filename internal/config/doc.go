// Package config builds the immutable build configuration from literal
// defaults, an optional YAML file, a .env file, environment variables and CLI
// flags, with precedence: CLI flags > environment > YAML config > defaults.
// The result is passed explicitly to every consumer; the package keeps no
// global state.
package config
