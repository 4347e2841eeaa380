// Package common holds helpers shared by the monitor binaries.
//
// It provides a control-plane gRPC client with per-call timeouts and a helper
// that detects the current system actor (hostname/username) so control
// requests can be attributed in the monitor's log.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
