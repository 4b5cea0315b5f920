// Package config loads application settings from the environment and an
// optional config file, and validates them before any component starts.
package config
