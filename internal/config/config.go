package config

import "os"

// Get returns the value of an environment variable or a fallback when unset
// or empty. Environment (plus an optional .env file loaded by the composition
// roots) is the only configuration source.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
