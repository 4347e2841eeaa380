// Package config defines the lookout monitor settings and provides helpers to
// load, validate and save them in YAML format.
//
// Durations are Go duration strings ("50ms", "30s"). Alarm timings are plain
// integer milliseconds to match how operators tune them.
package config
