// Package monitor runs the lookout monitor: it wires the orientation source,
// activity gate, alert player, journal and control plane around the engine
// and drives the engine from a fixed-period polling loop.
package monitor
