// Package config loads the cronalarmd configuration file.
//
// JSON and YAML are both accepted; YAML is converted to JSON first so the
// same strict decoder (unknown fields rejected) applies to both. Watch
// reloads the file on change and publishes validated configs to
// subscribers.
package config
