/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package config loads configuration of the caches (and their logging) from YAML/JSON files
// and environment variables. Each component provides its own Config implementing config.Config.
package config
