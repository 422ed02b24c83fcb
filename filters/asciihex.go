package filters

import (
	"context"

	"pdflib/ir/raw"
)

const hexDigits = "0123456789ABCDEF"

func isHexDigit(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	default:
		return 0, false
	}
}

func isHexWhitespace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\f', 0x00:
		return true
	default:
		return false
	}
}

// asciiHexEncodeState implements the ASCIIHexEncode session: each input byte
// emits two uppercase hex digits, with no EOD marker (that is the
// containing stream writer's responsibility).
type asciiHexEncodeState struct{}

func (asciiHexEncodeState) block(sess *FilterSession, p []byte) error {
	out := make([]byte, 0, len(p)*2)
	for _, b := range p {
		out = append(out, hexDigits[b>>4], hexDigits[b&0x0F])
	}
	return sess.write(out)
}

func (asciiHexEncodeState) end(sess *FilterSession) error { return nil }

// asciiHexDecodeState implements ASCIIHexDecode: whitespace is skipped,
// hex digit pairs emit bytes, and a trailing odd nibble is completed with an
// implicit zero low nibble at end.
type asciiHexDecodeState struct {
	haveHigh bool
	high     byte
}

func (d *asciiHexDecodeState) block(sess *FilterSession, p []byte) error {
	out := make([]byte, 0, len(p)/2+1)
	for _, b := range p {
		if isHexWhitespace(b) {
			continue
		}
		if b == '>' {
			break
		}
		nibble, ok := isHexDigit(b)
		if !ok {
			return InvalidStreamError{Filter: "ASCIIHexDecode", Reason: "non-hex, non-whitespace byte"}
		}
		if !d.haveHigh {
			d.high = nibble
			d.haveHigh = true
			continue
		}
		out = append(out, d.high<<4|nibble)
		d.haveHigh = false
	}
	return sess.write(out)
}

func (d *asciiHexDecodeState) end(sess *FilterSession) error {
	if d.haveHigh {
		if err := sess.write([]byte{d.high << 4}); err != nil {
			return err
		}
		d.haveHigh = false
	}
	return nil
}

type asciiHexDecoder struct{}

func (asciiHexDecoder) Name() string { return "ASCIIHexDecode" }

func (asciiHexDecoder) Decode(ctx context.Context, in []byte, params raw.Dictionary) ([]byte, error) {
	sink := &bufferSink{}
	sess := NewSession("ASCIIHexDecode", sink)
	if err := sess.beginDecode(); err != nil {
		return nil, err
	}
	state := &asciiHexDecodeState{}
	if err := state.block(sess, in); err != nil {
		sess.failEncodeDecode()
		return nil, err
	}
	if err := state.end(sess); err != nil {
		sess.failEncodeDecode()
		return nil, err
	}
	if err := sess.close(); err != nil {
		return nil, err
	}
	return sink.buf, nil
}

// NewASCIIHexDecoder returns the ASCIIHexDecode codec.
func NewASCIIHexDecoder() Decoder { return asciiHexDecoder{} }

// EncodeASCIIHex encodes data as an ASCIIHexEncode stream body, without the
// trailing EOD marker (callers append '>' when writing the containing stream).
func EncodeASCIIHex(data []byte) ([]byte, error) {
	sink := &bufferSink{}
	sess := NewSession("ASCIIHexEncode", sink)
	if err := sess.beginEncode(); err != nil {
		return nil, err
	}
	state := asciiHexEncodeState{}
	if err := state.block(sess, data); err != nil {
		sess.failEncodeDecode()
		return nil, err
	}
	if err := state.end(sess); err != nil {
		sess.failEncodeDecode()
		return nil, err
	}
	if err := sess.close(); err != nil {
		return nil, err
	}
	return sink.buf, nil
}
