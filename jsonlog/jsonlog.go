// Package jsonlog wraps a jsontok.Sink with zerolog trace-level logging, for
// diagnosing token streams during development without touching the value
// parser downstream of the sink.
package jsonlog

import (
	"github.com/rs/zerolog"

	"github.com/streamtok/jsontok"
)

const previewLen = 32

// Wrap returns a Sink that logs one Trace-level event per token via logger,
// then forwards the call unmodified to sink. String values longer than
// previewLen are truncated in the logged event only; sink always receives
// the full value.
func Wrap(logger zerolog.Logger, sink jsontok.Sink) jsontok.Sink {
	return func(kind jsontok.Kind, value any, offset int64) {
		logger.Trace().
			Str("kind", kind.String()).
			Int64("offset", offset).
			Interface("value", preview(value)).
			Msg("token")
		sink(kind, value, offset)
	}
}

func preview(value any) any {
	s, ok := value.(string)
	if !ok || len(s) <= previewLen {
		return value
	}
	return s[:previewLen] + "..."
}
