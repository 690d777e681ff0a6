// Package config loads experiment definitions files and the CLI environment.
package config
