// Package config loads manavault's settings.
//
// Resolution order, later sources winning:
//
//  1. Built-in defaults (see Default)
//  2. ~/.config/manavault/config.toml, or the path passed to Load
//  3. Environment: MANAVAULT_API_URL, MANAVAULT_CACHE_PATH,
//     MANAVAULT_LOG_PATH, MANAVAULT_THEME, MANAVAULT_DEBUG. LoadDotEnv fills
//     these from a .env file first without clobbering the real environment.
//  4. Command-line flags, applied by the caller
//
// A missing config file is not an error. Example:
//
//	api_url = "http://shop.local:8080"
//	cache_path = "~/.cache/manavault.db"
//	refresh_interval_seconds = 15
//	theme = "Kanagawa"
//
// Paths starting with ~ are expanded and made absolute.
package config
