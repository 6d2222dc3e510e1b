package jsontok

import (
	"unicode/utf8"

	"github.com/streamtok/jsontok/internal/bstring"
)

// Tokenizer is a single-threaded, resumable JSON lexical scanner. It
// consumes UTF-8 byte chunks of arbitrary size via Write and emits tokens to
// its Sink as soon as each is recognized, without buffering the whole
// input. It knows nothing of arrays, objects, or nesting; a higher-level
// value parser is expected to stack the emitted tokens.
//
// A Tokenizer is not safe for concurrent use, and must not be reentered
// from within its own Sink.
type Tokenizer struct {
	sink         Sink
	numberParser NumberParser

	state     state
	streamPos int64

	stringBuf bstring.Store
	numberBuf bstring.Store

	// tokenStart is the absolute stream offset of the byte that began the
	// literal currently being accumulated (string, number, or keyword).
	tokenStart int64

	unicodeAcc [4]byte

	highSurrogate    rune
	hasHighSurrogate bool

	splitChar       [4]byte
	bytesInSequence int
	bytesRemaining  int

	err error
}

// New returns a Tokenizer configured by opts.
func New(opts Options) *Tokenizer {
	sink := opts.Sink
	if sink == nil {
		sink = func(Kind, any, int64) {}
	}
	numberParser := opts.NumberParser
	if numberParser == nil {
		numberParser = defaultNumberParser
	}

	var stringBuf bstring.Store
	if opts.StringBufferSize > 4 {
		stringBuf = bstring.NewFixedCapacity(opts.StringBufferSize)
	} else {
		stringBuf = bstring.NewGrowable()
	}

	var numberBuf bstring.Store
	if opts.NumberBufferSize > 0 {
		numberBuf = bstring.NewFixedCapacity(opts.NumberBufferSize)
	} else {
		numberBuf = bstring.NewGrowable()
	}

	return &Tokenizer{
		sink:         sink,
		numberParser: numberParser,
		stringBuf:    stringBuf,
		numberBuf:    numberBuf,
	}
}

// WriteAny accepts a dynamically-typed input: a []byte or a string (whose
// UTF-8 bytes are written). Anything else, including other byte-valued
// sequences, fails with ErrInputType. Prefer Write when the input is already
// a []byte.
func (t *Tokenizer) WriteAny(v any) error {
	switch x := v.(type) {
	case []byte:
		return t.Write(x)
	case string:
		return t.Write([]byte(x))
	default:
		return ErrInputType
	}
}

// Write feeds the next chunk of input to the tokenizer. Tokens recognized
// within p are reported to the Sink before Write returns. Once Write or End
// has returned a non-nil error, the Tokenizer is poisoned and must not be
// used again.
func (t *Tokenizer) Write(p []byte) error {
	if t.err != nil {
		return t.err
	}
	if err := t.dispatch(p); err != nil {
		t.err = err
		return err
	}
	t.streamPos += int64(len(p))
	return nil
}

// End finalizes the stream. It succeeds if the tokenizer is in START, or in
// a number state whose grammar is already a valid terminal (flushing the
// pending number first); any other state means more input was required and
// End fails with IncompleteInputError.
func (t *Tokenizer) End() error {
	if t.err != nil {
		return t.err
	}
	switch t.state {
	case stateStart:
		return nil
	case stateNumberAfterInitialZero, stateNumberAfterInitialNonZero,
		stateNumberAfterDecimal, stateNumberAfterEAndDigit:
		t.emitNumber()
		t.state = stateStart
		return nil
	default:
		err := &IncompleteInputError{State: t.state.String()}
		t.err = err
		return err
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexDigitValue(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	default:
		return int(b-'A') + 10
	}
}

// dispatch runs the byte-at-a-time state machine over p. base is the
// absolute stream offset of p[0].
func (t *Tokenizer) dispatch(p []byte) error {
	base := t.streamPos
	L := len(p)
	i := 0

	for i < L {
		b := p[i]

		switch t.state {
		case stateStart:
			switch {
			case b == ' ' || b == '\t' || b == '\n' || b == '\r':
				i++
			case b == '{':
				t.sink(LeftBrace, "{", base+int64(i))
				i++
			case b == '}':
				t.sink(RightBrace, "}", base+int64(i))
				i++
			case b == '[':
				t.sink(LeftBracket, "[", base+int64(i))
				i++
			case b == ']':
				t.sink(RightBracket, "]", base+int64(i))
				i++
			case b == ':':
				t.sink(Colon, ":", base+int64(i))
				i++
			case b == ',':
				t.sink(Comma, ",", base+int64(i))
				i++
			case b == 't':
				t.tokenStart = base + int64(i)
				t.state = stateTrue1
				i++
			case b == 'f':
				t.tokenStart = base + int64(i)
				t.state = stateFalse1
				i++
			case b == 'n':
				t.tokenStart = base + int64(i)
				t.state = stateNull1
				i++
			case b == '"':
				t.tokenStart = base + int64(i)
				t.stringBuf.Reset()
				t.state = stateStringDefault
				i++
			case b == '0':
				t.tokenStart = base + int64(i)
				t.numberBuf.Reset()
				t.numberBuf.AppendByte(b)
				t.state = stateNumberAfterInitialZero
				i++
			case isDigit(b): // 1-9
				t.tokenStart = base + int64(i)
				t.numberBuf.Reset()
				t.numberBuf.AppendByte(b)
				t.state = stateNumberAfterInitialNonZero
				i++
			case b == '-':
				t.tokenStart = base + int64(i)
				t.numberBuf.Reset()
				t.numberBuf.AppendByte(b)
				t.state = stateNumberAfterInitialMinus
				i++
			default:
				return t.unexpectedByte(b, i)
			}

		case stateTrue1:
			if b != 'r' {
				return t.unexpectedByte(b, i)
			}
			i++
			t.state = stateTrue2
		case stateTrue2:
			if b != 'u' {
				return t.unexpectedByte(b, i)
			}
			i++
			t.state = stateTrue3
		case stateTrue3:
			if b != 'e' {
				return t.unexpectedByte(b, i)
			}
			i++
			t.sink(True, true, t.tokenStart)
			t.state = stateStart

		case stateFalse1:
			if b != 'a' {
				return t.unexpectedByte(b, i)
			}
			i++
			t.state = stateFalse2
		case stateFalse2:
			if b != 'l' {
				return t.unexpectedByte(b, i)
			}
			i++
			t.state = stateFalse3
		case stateFalse3:
			if b != 's' {
				return t.unexpectedByte(b, i)
			}
			i++
			t.state = stateFalse4
		case stateFalse4:
			if b != 'e' {
				return t.unexpectedByte(b, i)
			}
			i++
			t.sink(False, false, t.tokenStart)
			t.state = stateStart

		case stateNull1:
			if b != 'u' {
				return t.unexpectedByte(b, i)
			}
			i++
			t.state = stateNull2
		case stateNull2:
			if b != 'l' {
				return t.unexpectedByte(b, i)
			}
			i++
			t.state = stateNull3
		case stateNull3:
			if b != 'l' {
				return t.unexpectedByte(b, i)
			}
			i++
			t.sink(Null, nil, t.tokenStart)
			t.state = stateStart

		case stateStringDefault:
			switch {
			case b == '"':
				t.sink(String, t.stringBuf.String(), t.tokenStart)
				i++
				t.state = stateStart
			case b == '\\':
				i++
				t.state = stateStringAfterBackslash
			case b >= 0x80:
				seqLen := utf8LeadByteLen(b)
				avail := L - i
				if seqLen <= avail {
					t.stringBuf.AppendBytes(p[i : i+seqLen])
					i += seqLen
				} else {
					copy(t.splitChar[:], p[i:L])
					t.bytesInSequence = seqLen
					t.bytesRemaining = seqLen - avail
					i = L
					t.state = stateStringIncompleteChar
				}
			case b >= 0x20:
				t.stringBuf.AppendByte(b)
				i++
			default:
				return t.unexpectedByte(b, i)
			}

		case stateStringIncompleteChar:
			// Only ever entered at i == 0, at the start of a new chunk. A
			// single chunk boundary may not supply every remaining byte
			// (an adversarial one-byte-at-a-time feed), so this only
			// completes the character once bytesRemaining reaches zero.
			have := t.bytesRemaining
			if L < have {
				have = L
			}
			copy(t.splitChar[t.bytesInSequence-t.bytesRemaining:], p[:have])
			t.bytesRemaining -= have
			if t.bytesRemaining == 0 {
				t.stringBuf.AppendBytes(t.splitChar[:t.bytesInSequence])
				t.state = stateStringDefault
			}
			i = have

		case stateStringAfterBackslash:
			switch b {
			case '"':
				t.stringBuf.AppendByte('"')
				i++
				t.state = stateStringDefault
			case '\\':
				t.stringBuf.AppendByte('\\')
				i++
				t.state = stateStringDefault
			case '/':
				t.stringBuf.AppendByte('/')
				i++
				t.state = stateStringDefault
			case 'b':
				t.stringBuf.AppendByte(0x08)
				i++
				t.state = stateStringDefault
			case 'f':
				t.stringBuf.AppendByte(0x0C)
				i++
				t.state = stateStringDefault
			case 'n':
				t.stringBuf.AppendByte(0x0A)
				i++
				t.state = stateStringDefault
			case 'r':
				t.stringBuf.AppendByte(0x0D)
				i++
				t.state = stateStringDefault
			case 't':
				t.stringBuf.AppendByte(0x09)
				i++
				t.state = stateStringDefault
			case 'u':
				i++
				t.state = stateStringUnicodeDigit1
			default:
				return t.unexpectedByte(b, i)
			}

		case stateStringUnicodeDigit1:
			if !isHexDigit(b) {
				return t.unexpectedByte(b, i)
			}
			t.unicodeAcc[0] = b
			i++
			t.state = stateStringUnicodeDigit2
		case stateStringUnicodeDigit2:
			if !isHexDigit(b) {
				return t.unexpectedByte(b, i)
			}
			t.unicodeAcc[1] = b
			i++
			t.state = stateStringUnicodeDigit3
		case stateStringUnicodeDigit3:
			if !isHexDigit(b) {
				return t.unexpectedByte(b, i)
			}
			t.unicodeAcc[2] = b
			i++
			t.state = stateStringUnicodeDigit4
		case stateStringUnicodeDigit4:
			if !isHexDigit(b) {
				return t.unexpectedByte(b, i)
			}
			t.unicodeAcc[3] = b
			i++
			t.finishUnicodeEscape()
			t.state = stateStringDefault

		case stateNumberAfterInitialMinus:
			switch {
			case b == '0':
				t.numberBuf.AppendByte(b)
				i++
				t.state = stateNumberAfterInitialZero
			case isDigit(b):
				t.numberBuf.AppendByte(b)
				i++
				t.state = stateNumberAfterInitialNonZero
			default:
				return t.unexpectedByte(b, i)
			}

		case stateNumberAfterInitialZero:
			switch {
			case b == '.':
				t.numberBuf.AppendByte(b)
				i++
				t.state = stateNumberAfterFullStop
			case b == 'e' || b == 'E':
				t.numberBuf.AppendByte(b)
				i++
				t.state = stateNumberAfterE
			default:
				t.emitNumber()
				t.state = stateStart
				// push-back: reprocess b under START, no i++
			}

		case stateNumberAfterInitialNonZero:
			switch {
			case isDigit(b):
				t.numberBuf.AppendByte(b)
				i++
			case b == '.':
				t.numberBuf.AppendByte(b)
				i++
				t.state = stateNumberAfterFullStop
			case b == 'e' || b == 'E':
				t.numberBuf.AppendByte(b)
				i++
				t.state = stateNumberAfterE
			default:
				t.emitNumber()
				t.state = stateStart
			}

		case stateNumberAfterFullStop:
			if !isDigit(b) {
				return t.unexpectedByte(b, i)
			}
			t.numberBuf.AppendByte(b)
			i++
			t.state = stateNumberAfterDecimal

		case stateNumberAfterDecimal:
			switch {
			case isDigit(b):
				t.numberBuf.AppendByte(b)
				i++
			case b == 'e' || b == 'E':
				t.numberBuf.AppendByte(b)
				i++
				t.state = stateNumberAfterE
			default:
				t.emitNumber()
				t.state = stateStart
			}

		case stateNumberAfterE:
			switch {
			case b == '+' || b == '-':
				t.numberBuf.AppendByte(b)
				i++
				t.state = stateNumberAfterEAndSign
			case isDigit(b):
				t.numberBuf.AppendByte(b)
				i++
				t.state = stateNumberAfterEAndDigit
			default:
				return t.unexpectedByte(b, i)
			}

		case stateNumberAfterEAndSign:
			if !isDigit(b) {
				return t.unexpectedByte(b, i)
			}
			t.numberBuf.AppendByte(b)
			i++
			t.state = stateNumberAfterEAndDigit

		case stateNumberAfterEAndDigit:
			if isDigit(b) {
				t.numberBuf.AppendByte(b)
				i++
			} else {
				t.emitNumber()
				t.state = stateStart
			}
		}
	}

	return nil
}

func (t *Tokenizer) unexpectedByte(b byte, pos int) error {
	return &UnexpectedByteError{Byte: b, Position: pos, State: t.state.String()}
}

func (t *Tokenizer) emitNumber() {
	lit := t.numberBuf.String()
	val := t.numberParser([]byte(lit))
	t.sink(Number, val, t.tokenStart)
}

// utf8LeadByteLen classifies a UTF-8 lead byte into its sequence length:
// 194-223 is 2 bytes, 224-239 is 3 bytes, everything else (including the
// invalid ranges 128-193 and 245-255) is treated as 4 bytes.
func utf8LeadByteLen(b byte) int {
	switch {
	case b >= 194 && b <= 223:
		return 2
	case b >= 224 && b <= 239:
		return 3
	default:
		return 4
	}
}

// finishUnicodeEscape handles the fourth hex digit of a \uXXXX escape:
// surrogate-pair tracking and UTF-8 encoding into the string buffer.
func (t *Tokenizer) finishUnicodeEscape() {
	v := uint16(hexDigitValue(t.unicodeAcc[0]))<<12 |
		uint16(hexDigitValue(t.unicodeAcc[1]))<<8 |
		uint16(hexDigitValue(t.unicodeAcc[2]))<<4 |
		uint16(hexDigitValue(t.unicodeAcc[3]))

	var buf [4]byte

	if !t.hasHighSurrogate {
		if v >= 0xD800 && v <= 0xDBFF {
			t.highSurrogate = rune(v)
			t.hasHighSurrogate = true
			return
		}
		n := utf8.EncodeRune(buf[:], rune(v))
		t.stringBuf.AppendBytes(buf[:n])
		return
	}

	if v >= 0xDC00 && v <= 0xDFFF {
		cp := surrogatePairToCodepoint(t.highSurrogate, rune(v))
		n := utf8.EncodeRune(buf[:], cp)
		t.stringBuf.AppendBytes(buf[:n])
	} else {
		// Lone high surrogate: emit it alone and drop v from the pairing
		// logic entirely.
		t.stringBuf.AppendBytes(appendSurrogateUTF8(buf[:0], uint16(t.highSurrogate)))
	}
	t.hasHighSurrogate = false
}

func surrogatePairToCodepoint(high, low rune) rune {
	return 0x10000 + (high-0xD800)<<10 + (low - 0xDC00)
}

// appendSurrogateUTF8 appends the raw 3-byte UTF-8 encoding of a 16-bit code
// unit in the surrogate range, which utf8.EncodeRune refuses to produce
// (surrogates are not valid Unicode scalar values). Used only for the lone
// high-surrogate fallback in finishUnicodeEscape.
func appendSurrogateUTF8(dst []byte, v uint16) []byte {
	return append(dst,
		byte(0xE0|(v>>12)),
		byte(0x80|((v>>6)&0x3F)),
		byte(0x80|(v&0x3F)),
	)
}
