// Package config loads taskcal settings.
//
// Later layers override earlier ones:
//
//	defaults < user file < project file < TASKCAL_* environment < flags
//
// The user file is ~/.taskcal/taskcal.toml, falling back to taskcal/taskcal.toml
// under the OS config directory (%APPDATA%, ~/Library/Application Support or
// $XDG_CONFIG_HOME). The project file is the first of taskcal.toml,
// .taskcal.toml and .taskcal/taskcal.toml found in the project directory.
//
// Every setting is declared once in the settings table, which binds its TOML
// key, environment variable and optional flag; LoadDir records which layer set
// each key so "taskcal config --sources" can explain the result.
package config
