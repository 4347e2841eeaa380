package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// coreWithLevel wraps a zapcore.Core and replaces its level check.
type coreWithLevel struct {
	zapcore.Core

	// level is the minimum level this core lets through.
	level zapcore.Level
}

// Enabled reports whether l passes the overriding level.
func (c *coreWithLevel) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l)
}

// Check adds the core to the checked entry when the entry level passes.
//
//nolint:gocritic // AddCore requires ent to be passed by value.
func (c *coreWithLevel) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}

	return ce
}

// With keeps the overriding level on derived cores.
//
//nolint:ireturn,nolintlint // zapcore.Core is the integration point.
func (c *coreWithLevel) With(fields []zapcore.Field) zapcore.Core {
	return &coreWithLevel{
		c.Core.With(fields),
		c.level,
	}
}

// WithLevel returns an option that pins a derived logger to lvl regardless of
// the global level. The monitor uses it for the periodic state dump so the
// dump can be switched on without lowering the level of everything else.
//
//nolint:ireturn,nolintlint // zap.Option is the integration point.
func WithLevel(lvl zapcore.Level) zap.Option {
	return zap.WrapCore(
		func(core zapcore.Core) zapcore.Core {
			return &coreWithLevel{core, lvl}
		})
}

// Pinned returns a child of the global logger that ignores the global level
// and logs everything at or above lvl.
func Pinned(lvl zapcore.Level) *zap.SugaredLogger {
	return global.Desugar().WithOptions(WithLevel(lvl)).Sugar()
}
