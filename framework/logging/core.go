package logging

import "go.uber.org/zap/zapcore"

type appenderCore struct {
	zapcore.LevelEnabler
	appender Appender
	fields   []zapcore.Field
}

// NewCore adapts an Appender into a zapcore.Core.
func NewCore(a Appender, level zapcore.LevelEnabler) zapcore.Core {
	return &appenderCore{LevelEnabler: level, appender: a}
}

func (c *appenderCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

func (c *appenderCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *appenderCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	return c.appender.Write(Event{
		Time:    ent.Time,
		Level:   ent.Level.CapitalString(),
		Logger:  ent.LoggerName,
		Message: ent.Message,
		Fields:  enc.Fields,
	})
}

func (c *appenderCore) Sync() error { return nil }
