// Package logging defines the ServiceLogger contract the consumer, pipeline
// and producer log through, and bridges it to slog and Watermill.
package logging

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
)

// LogFields holds structured key/value pairs attached to a log line.
type LogFields map[string]any

// ServiceLogger is the logging contract of the ingestion loop. It mirrors
// Watermill's LoggerAdapter so transports and the loop share one logger.
type ServiceLogger interface {
	With(fields LogFields) ServiceLogger
	Debug(msg string, fields LogFields)
	Info(msg string, fields LogFields)
	Error(msg string, err error, fields LogFields)
	Trace(msg string, fields LogFields)
}

var slogLevels = map[slog.Level]slog.Level{
	slog.LevelDebug: slog.LevelDebug,
	slog.LevelInfo:  slog.LevelInfo,
	slog.LevelWarn:  slog.LevelWarn,
	slog.LevelError: slog.LevelError,
}

// NewSlogServiceLogger wraps a slog.Logger as a ServiceLogger.
func NewSlogServiceLogger(log *slog.Logger) ServiceLogger {
	if log == nil {
		panic("avroflow: slog logger cannot be nil")
	}
	return FromWatermill(watermill.NewSlogLoggerWithLevelMapping(log, slogLevels))
}

// FromWatermill wraps a Watermill LoggerAdapter as a ServiceLogger.
func FromWatermill(adapter watermill.LoggerAdapter) ServiceLogger {
	if adapter == nil {
		panic("avroflow: watermill logger cannot be nil")
	}
	return adapterLogger{adapter: adapter}
}

// NewWatermillAdapter converts a ServiceLogger into the LoggerAdapter handed
// to Watermill publishers and subscribers. Adapters built by FromWatermill are
// unwrapped rather than wrapped twice.
func NewWatermillAdapter(log ServiceLogger) watermill.LoggerAdapter {
	if log == nil {
		panic("avroflow: ServiceLogger cannot be nil")
	}
	if wrapped, ok := log.(adapterLogger); ok {
		return wrapped.adapter
	}
	return serviceAdapter{log: log}
}

type adapterLogger struct {
	adapter watermill.LoggerAdapter
}

func (l adapterLogger) With(fields LogFields) ServiceLogger {
	if len(fields) == 0 {
		return l
	}
	return adapterLogger{adapter: l.adapter.With(watermill.LogFields(fields))}
}

func (l adapterLogger) Debug(msg string, fields LogFields) {
	l.adapter.Debug(msg, watermillFields(fields))
}

func (l adapterLogger) Info(msg string, fields LogFields) {
	l.adapter.Info(msg, watermillFields(fields))
}

func (l adapterLogger) Error(msg string, err error, fields LogFields) {
	l.adapter.Error(msg, err, watermillFields(fields))
}

func (l adapterLogger) Trace(msg string, fields LogFields) {
	l.adapter.Trace(msg, watermillFields(fields))
}

type serviceAdapter struct {
	log ServiceLogger
}

func (a serviceAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Error(msg, err, serviceFields(fields))
}

func (a serviceAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info(msg, serviceFields(fields))
}

func (a serviceAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, serviceFields(fields))
}

func (a serviceAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Trace(msg, serviceFields(fields))
}

func (a serviceAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return serviceAdapter{log: a.log.With(serviceFields(fields))}
}

func watermillFields(fields LogFields) watermill.LogFields {
	if len(fields) == 0 {
		return nil
	}
	return watermill.LogFields(fields)
}

func serviceFields(fields watermill.LogFields) LogFields {
	if len(fields) == 0 {
		return nil
	}
	return LogFields(fields)
}
