// Package center persists the fixed-mode forward reference.
//
// The FileRepository stores the last captured center as JSON on disk so a
// restart does not require the operator to recenter before flying again.
package center
