// Package integration runs the monitor end to end: a real UDP orientation
// source, the engine, the SQLite journal and the gRPC control plane.
package integration
