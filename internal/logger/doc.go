// Package logger wraps zap for the lookout monitor:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level parsing and adjustment,
//   - leveled helpers taking a context (Infof, WarnKV, ...).
//
// Every service receives a context and logs through the logger it carries,
// so names and fields added upstream appear on every line.
package logger
