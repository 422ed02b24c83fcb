package filters

import (
	"bytes"
	"context"

	"pdflib/ir/raw"
)

var ascii85Powers = [5]uint32{85 * 85 * 85 * 85, 85 * 85 * 85, 85 * 85, 85, 1}

func isAscii85Whitespace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\f', 0x00, 0x08, 0x7F:
		return true
	default:
		return false
	}
}

// ascii85EncodeState packs 4-byte groups into base-85 tuples, using the
// single-character 'z' shortcut for an all-zero full group.
type ascii85EncodeState struct {
	group [4]byte
	n     int
}

func (e *ascii85EncodeState) block(sess *FilterSession, p []byte) error {
	out := make([]byte, 0, len(p)*5/4+8)
	for _, b := range p {
		e.group[e.n] = b
		e.n++
		if e.n == 4 {
			out = append(out, encodeAscii85Group(e.group[:], 4)...)
			e.n = 0
		}
	}
	return sess.write(out)
}

func (e *ascii85EncodeState) end(sess *FilterSession) error {
	if e.n > 0 {
		for i := e.n; i < 4; i++ {
			e.group[i] = 0
		}
		if err := sess.write(encodeAscii85Group(e.group[:], e.n)); err != nil {
			return err
		}
		e.n = 0
	}
	return sess.write([]byte("~>"))
}

func encodeAscii85Group(group []byte, n int) []byte {
	tuple := uint32(group[0])<<24 | uint32(group[1])<<16 | uint32(group[2])<<8 | uint32(group[3])
	if n == 4 && tuple == 0 {
		return []byte{'z'}
	}
	var digits [5]byte
	for i := 0; i < 5; i++ {
		digits[i] = byte(tuple/ascii85Powers[i]%85) + '!'
	}
	return digits[:n+1]
}

// ascii85DecodeState unpacks base-85 tuples back into 4-byte groups.
type ascii85DecodeState struct {
	digits [5]byte
	n      int
	done   bool
}

func (d *ascii85DecodeState) block(sess *FilterSession, p []byte) error {
	out := make([]byte, 0, len(p)*4/5+4)
	for i := 0; i < len(p); i++ {
		if d.done {
			break
		}
		b := p[i]
		if isAscii85Whitespace(b) {
			continue
		}
		if b == '~' {
			d.done = true
			// Absorb the following '>' if present; the framework tolerates its absence.
			if i+1 < len(p) && p[i+1] == '>' {
				i++
			}
			break
		}
		if b == 'z' {
			if d.n != 0 {
				return ValueOutOfRangeError{Filter: "ASCII85Decode", Reason: "'z' shortcut not at group boundary"}
			}
			out = append(out, 0, 0, 0, 0)
			continue
		}
		if b < '!' || b > 'u' {
			return InvalidStreamError{Filter: "ASCII85Decode", Reason: "byte outside '!'..'u' range"}
		}
		d.digits[d.n] = b - '!'
		d.n++
		if d.n == 5 {
			bytes4, err := decodeAscii85Group(d.digits[:], 5)
			if err != nil {
				return err
			}
			out = append(out, bytes4...)
			d.n = 0
		}
	}
	return sess.write(out)
}

func decodeAscii85Group(digits []byte, n int) ([]byte, error) {
	var tuple uint64
	for i := 0; i < n; i++ {
		tuple = tuple*85 + uint64(digits[i])
	}
	if tuple > 0xFFFFFFFF {
		return nil, ValueOutOfRangeError{Filter: "ASCII85Decode", Reason: "tuple overflow"}
	}
	full := [4]byte{byte(tuple >> 24), byte(tuple >> 16), byte(tuple >> 8), byte(tuple)}
	return full[:n-1], nil
}

func (d *ascii85DecodeState) end(sess *FilterSession) error {
	if d.n == 0 {
		return nil
	}
	if d.n == 1 {
		return InvalidStreamError{Filter: "ASCII85Decode", Reason: "final group has a single digit"}
	}
	n := d.n
	// Pad the partial group with the maximum digit value ('u') for the
	// missing positions, then compensate per the base-85 partial-group rule.
	for i := n; i < 5; i++ {
		d.digits[i] = 'u' - '!'
	}
	bytes4, err := decodeAscii85Group(d.digits[:], 5)
	if err != nil {
		return err
	}
	return sess.write(bytes4[:n-1])
}

type ascii85Decoder struct{}

func (ascii85Decoder) Name() string { return "ASCII85Decode" }

func (ascii85Decoder) Decode(ctx context.Context, in []byte, params raw.Dictionary) ([]byte, error) {
	// The "<~" opening delimiter is a stream-level marker, not part of the
	// codec's base-85 alphabet; strip it here the way the containing stream
	// reader would before handing bytes to the codec.
	in = bytes.TrimPrefix(bytes.TrimLeft(in, " \t\r\n\f\x00"), []byte("<~"))
	sink := &bufferSink{}
	sess := NewSession("ASCII85Decode", sink)
	if err := sess.beginDecode(); err != nil {
		return nil, err
	}
	state := &ascii85DecodeState{}
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

// NewASCII85Decoder returns the ASCII85Decode codec.
func NewASCII85Decoder() Decoder { return ascii85Decoder{} }

// EncodeASCII85 encodes data as an ASCII85Encode stream body, including the
// terminating "~>" marker.
func EncodeASCII85(data []byte) ([]byte, error) {
	sink := &bufferSink{}
	sess := NewSession("ASCII85Encode", sink)
	if err := sess.beginEncode(); err != nil {
		return nil, err
	}
	state := &ascii85EncodeState{}
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
