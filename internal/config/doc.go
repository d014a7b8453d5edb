// Package config loads bindkit settings.
//
// Settings come from three layers, lowest priority first: built-in defaults,
// a TOML or YAML file chosen by extension, and BINDKIT_* environment
// variables. A Watcher reloads the file on change and publishes the result
// through Settings, an observable model, so running components can watch
// paths such as "log.level" like any other model property.
package config
