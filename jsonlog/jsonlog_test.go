package jsonlog

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/streamtok/jsontok"
)

type observedCall struct {
	kind   jsontok.Kind
	value  any
	offset int64
}

func TestWrapForwardsCallsUnmodifiedAndInOrder(t *testing.T) {
	input := []byte(`{"a": [1, 2.5, "hello world this is a long string value", null, true]}`)

	var direct []observedCall
	directSink := func(kind jsontok.Kind, value any, offset int64) {
		direct = append(direct, observedCall{kind, value, offset})
	}

	var wrapped []observedCall
	wrappedSink := func(kind jsontok.Kind, value any, offset int64) {
		wrapped = append(wrapped, observedCall{kind, value, offset})
	}
	logger := zerolog.New(io.Discard)

	tokA := jsontok.New(jsontok.Options{Sink: directSink})
	require.NoError(t, tokA.Write(input))
	require.NoError(t, tokA.End())

	tokB := jsontok.New(jsontok.Options{Sink: Wrap(logger, wrappedSink)})
	require.NoError(t, tokB.Write(input))
	require.NoError(t, tokB.End())

	require.Equal(t, direct, wrapped)
}

func TestPreviewTruncatesLongStringsOnly(t *testing.T) {
	require.Equal(t, "short", preview("short"))
	long := "this string is much longer than the preview threshold allows"
	got, ok := preview(long).(string)
	require.True(t, ok)
	require.Less(t, len(got), len(long))
	require.Equal(t, 3, preview(3))
}
