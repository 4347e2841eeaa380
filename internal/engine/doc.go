// Package engine is the lookout detection and alert escalation core.
//
// An Engine owns one state record per configured alarm and advances all of
// them once per Tick: it checks the activity signal, folds the orientation
// sample into the baseline, derives relative angles and then, in
// configuration order, runs each alarm's lookout tracker, the widest-alarm
// cascade and the escalation scheduler. Side effects leave the engine only
// through the Alerter and EventSink interfaces.
package engine
