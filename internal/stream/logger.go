package stream

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"

	"github.com/pathwatch/pathwatch/internal/logging"
)

// zerologAdapter bridges watermill's logging into the application logger.
type zerologAdapter struct {
	fields watermill.LogFields
}

// NewLoggerAdapter returns a watermill.LoggerAdapter backed by the global
// application logger.
func NewLoggerAdapter() watermill.LoggerAdapter {
	return &zerologAdapter{}
}

func (a *zerologAdapter) Error(msg string, err error, fields watermill.LogFields) {
	event := logging.Error().Err(err)
	a.apply(event, fields)
	event.Msg(msg)
}

func (a *zerologAdapter) Info(msg string, fields watermill.LogFields) {
	event := logging.Info()
	a.apply(event, fields)
	event.Msg(msg)
}

func (a *zerologAdapter) Debug(msg string, fields watermill.LogFields) {
	event := logging.Debug()
	a.apply(event, fields)
	event.Msg(msg)
}

func (a *zerologAdapter) Trace(msg string, fields watermill.LogFields) {
	event := logging.Debug()
	a.apply(event, fields)
	event.Msg(msg)
}

func (a *zerologAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &zerologAdapter{fields: a.fields.Add(fields)}
}

func (a *zerologAdapter) apply(event *zerolog.Event, fields watermill.LogFields) {
	for k, v := range a.fields {
		event.Interface(k, v)
	}
	for k, v := range fields {
		event.Interface(k, v)
	}
}
