// Package activity decides whether the operator is engaged in the monitored
// activity. Lookout reminders only run while a gate reports active.
package activity
