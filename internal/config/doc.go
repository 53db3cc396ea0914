// Package config handles application configuration loading and validation.
//
// Values are layered: built-in defaults, then an optional YAML file named by
// CONFIG_FILE, then environment variables (including .env and .env.local).
// The merged result is validated using struct tags.
package config
