// Package config loads the coach's TOML configuration file.
//
// # Overview
//
// The config file tells the coach where the Sense Coach service lives, how long
// to wait for it, which country to analyse notices for, and where to write
// its own log. Every field is optional.
//
// # Configuration Discovery
//
// Load follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/sensecoach/config.toml
//  3. If the file does not exist, return Default()
//  4. If the file exists but a field is blank, keep that field's default
//
// # Default Values
//
//   - API URL: https://sense-coach-api.onrender.com
//   - Timeout: 30 seconds
//   - Country: 네덜란드
//   - Log file: ~/.local/share/sensecoach/coach.log
//
// # TOML Format
//
//	api_url = "http://127.0.0.1:8000"
//	timeout_seconds = 10
//	country = "독일"
//	user_id = "family-laptop"
//	log_file = "~/.cache/coach.log"
//
// user_id overrides the device id stored in prefs. Leave it out to let the
// coach generate one on first run.
//
// # Error Handling
//
// Load returns errors for path expansion failures, unreadable files, TOML
// parse errors, and a negative timeout_seconds. A missing file is not an
// error.
package config
