package filters

import (
	"context"

	"pdflib/ir/raw"
)

// runLengthDecoder implements RunLengthDecode: each length byte 0-127 is
// followed by that many + 1 literal bytes; 129-255 is followed by a single
// byte to repeat 257-length times; 128 is the EOD marker.
type runLengthDecoder struct{}

func (runLengthDecoder) Name() string { return "RunLengthDecode" }

func (runLengthDecoder) Decode(ctx context.Context, in []byte, params raw.Dictionary) ([]byte, error) {
	sess := NewSession("RunLengthDecode", &bufferSink{})
	if err := sess.beginDecode(); err != nil {
		return nil, err
	}

	var out []byte
	i := 0
	for i < len(in) {
		if err := ctx.Err(); err != nil {
			sess.failEncodeDecode()
			return nil, err
		}
		length := in[i]
		i++
		switch {
		case length == 128:
			if err := sess.close(); err != nil {
				return nil, err
			}
			return out, nil
		case length < 128:
			n := int(length) + 1
			if i+n > len(in) {
				sess.failEncodeDecode()
				return nil, InvalidStreamError{Filter: "RunLengthDecode", Reason: "literal run truncated"}
			}
			out = append(out, in[i:i+n]...)
			i += n
		default:
			if i >= len(in) {
				sess.failEncodeDecode()
				return nil, InvalidStreamError{Filter: "RunLengthDecode", Reason: "repeat run missing byte"}
			}
			n := 257 - int(length)
			b := in[i]
			i++
			for k := 0; k < n; k++ {
				out = append(out, b)
			}
		}
	}

	if err := sess.close(); err != nil {
		return nil, err
	}
	return out, nil
}

// NewRunLengthDecoder returns the RunLengthDecode codec.
func NewRunLengthDecoder() Decoder { return runLengthDecoder{} }

// EncodeRunLength reports failure: RunLengthEncode is unsupported.
func EncodeRunLength(data []byte) ([]byte, error) {
	return nil, UnsupportedError{Filter: "RunLengthEncode", Encode: true}
}
