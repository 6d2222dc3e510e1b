package jsontok

import (
	"encoding/json"
	"testing"
)

var benchInput = []byte(`
[
	[1, 2, "foo", {
		"key1": {
			"key2": [
				"foo",
				"bar日本国ampU\n\fblahblah",
				"amp"
			]
		},
		"key2": [
			1e45,
			-55,
			9999,
			"foobaramp"
		]
	}]
]
`)

func BenchmarkStdlib(b *testing.B) {
	// Not a fair comparison since the stdlib also builds a parse tree, but
	// useful to check the tokenizer isn't pathologically slower.
	for i := 0; i < b.N; i++ {
		var j any
		if err := json.Unmarshal(benchInput, &j); err != nil {
			b.Fatalf("unexpected Unmarshal error: %v", err)
		}
	}
}

func BenchmarkTokenize(b *testing.B) {
	for i := 0; i < b.N; i++ {
		tok := New(Options{})
		if err := tok.Write(benchInput); err != nil {
			b.Fatalf("unexpected write error: %v", err)
		}
		if err := tok.End(); err != nil {
			b.Fatalf("unexpected end error: %v", err)
		}
	}
}

func BenchmarkTokenizeFixedCapacity(b *testing.B) {
	for i := 0; i < b.N; i++ {
		tok := New(Options{StringBufferSize: 16, NumberBufferSize: 8})
		if err := tok.Write(benchInput); err != nil {
			b.Fatalf("unexpected write error: %v", err)
		}
		if err := tok.End(); err != nil {
			b.Fatalf("unexpected end error: %v", err)
		}
	}
}

func BenchmarkTokenizeByteAtATime(b *testing.B) {
	for i := 0; i < b.N; i++ {
		tok := New(Options{})
		for _, c := range benchInput {
			if err := tok.Write([]byte{c}); err != nil {
				b.Fatalf("unexpected write error: %v", err)
			}
		}
		if err := tok.End(); err != nil {
			b.Fatalf("unexpected end error: %v", err)
		}
	}
}
