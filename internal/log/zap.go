// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package log adapts go.uber.org/zap to the pion logging interfaces.
package log

import (
	"github.com/pion/logging"
	"go.uber.org/zap"
)

// ZapFactory is a logging.LoggerFactory based on go.uber.org/zap. Every
// scope becomes a named child logger.
type ZapFactory struct {
	logger *zap.Logger
}

// NewZapFactory creates a LoggerFactory from a zap.Logger.
func NewZapFactory(logger *zap.Logger) *ZapFactory {
	return &ZapFactory{logger: logger}
}

// NewLogger returns a leveled logger for scope.
func (f *ZapFactory) NewLogger(scope string) logging.LeveledLogger {
	return &Zap{logger: f.logger.Named(scope).Sugar()}
}

// Zap is a logging.LeveledLogger based on go.uber.org/zap. zap has no trace
// level, so trace messages are logged at debug with a trace field.
type Zap struct {
	logger *zap.SugaredLogger
}

// Trace logs a trace message
func (l *Zap) Trace(msg string) {
	l.logger.Debugw(msg, "trace", true)
}

// Tracef formats and logs a trace message
func (l *Zap) Tracef(format string, args ...interface{}) {
	l.logger.With("trace", true).Debugf(format, args...)
}

// Debug logs a debug message
func (l *Zap) Debug(msg string) {
	l.logger.Debug(msg)
}

// Debugf formats and logs a debug message
func (l *Zap) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// Info logs an info message
func (l *Zap) Info(msg string) {
	l.logger.Info(msg)
}

// Infof formats and logs an info message
func (l *Zap) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

// Warn logs a warning
func (l *Zap) Warn(msg string) {
	l.logger.Warn(msg)
}

// Warnf formats and logs a warning
func (l *Zap) Warnf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

// Error logs an error
func (l *Zap) Error(msg string) {
	l.logger.Error(msg)
}

// Errorf formats and logs an error
func (l *Zap) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}
