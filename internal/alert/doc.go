// Package alert implements the audible alert players used by the lookout
// engine. Command runs an external audio player per alert; Log only writes
// log lines and suits headless runs and tests.
package alert
