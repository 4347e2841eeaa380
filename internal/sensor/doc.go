// Package sensor provides head orientation sources for the lookout monitor.
//
// Every source reads on its own goroutine and keeps only the latest sample.
// Poll returns that sample, or ErrUnavailable when nothing fresh arrived
// within the staleness limit, so the polling loop never blocks on I/O.
package sensor
