// Package client implements the lookout-ctl commands.
//
// Each run dials the monitor's control plane once and either prints the
// engine snapshot, requests a recenter or switches the activity override.
package client
