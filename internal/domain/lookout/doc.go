// Package lookout contains the domain types shared by the engine, its
// adapters and the control plane: orientation samples, alarm settings,
// informational events and status snapshots.
package lookout
