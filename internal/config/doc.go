// Package config loads, normalizes, and validates shortsmith configuration.
//
// Settings come from a TOML file (default ~/.config/shortsmith/config.toml or
// ./shortsmith.toml) layered over repository defaults, with credentials
// falling back to environment variables. Command-specific requirements are
// checked with the Require* helpers so a missing credential surfaces as a
// configuration error before any record is touched.
package config
