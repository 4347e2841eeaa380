// Package version carries build metadata injected through -ldflags and the
// `version` subcommand shared by both binaries.
package version
