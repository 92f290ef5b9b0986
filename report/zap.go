/*
mailstore - A local mail-store library for RFC 2822 messages.
Copyright © 2026 mailstore contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package report

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Zap adapts l into a *zap.Logger backed by the same Output, for callers
// that already use zap-based tooling (e.g. a caller wiring this module's
// reports into a larger zap-structured service log). zap levels map onto
// this module's as: Debug and below to DEBUG, Info to NOTICE, Warn to
// WARNING, Error to ERROR, and anything above Error to INTERNAL.
func (l Logger) Zap() *zap.Logger {
	return zap.New(zapCore{l: l})
}

type zapCore struct {
	l      Logger
	fields []zapcore.Field
}

func (c zapCore) Enabled(lvl zapcore.Level) bool {
	return fromZapLevel(lvl) >= c.l.Level || fromZapLevel(lvl) >= c.l.Log
}

func (c zapCore) With(fields []zapcore.Field) zapcore.Core {
	c.fields = append(append([]zapcore.Field{}, c.fields...), fields...)
	return c
}

func (c zapCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c zapCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	m := map[string]interface{}{}
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range append(append([]zapcore.Field{}, c.fields...), fields...) {
		f.AddTo(enc)
	}
	for k, v := range enc.Fields {
		m[k] = v
	}
	c.l.emit(fromZapLevel(ent.Level), ent.Message, m)
	return nil
}

func (c zapCore) Sync() error { return nil }

func fromZapLevel(lvl zapcore.Level) Level {
	switch {
	case lvl <= zapcore.DebugLevel:
		return DEBUG
	case lvl <= zapcore.InfoLevel:
		return NOTICE
	case lvl <= zapcore.WarnLevel:
		return WARNING
	case lvl <= zapcore.ErrorLevel:
		return ERROR
	default:
		return INTERNAL
	}
}
