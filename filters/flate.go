package filters

import (
	"bytes"
	"compress/flate"
	"context"
	"io"

	"pdflib/ir/raw"
)

// flateDecoder implements FlateDecode/FlateEncode. Decoding buffers the
// whole input through compress/flate rather than streaming block-by-block,
// since predictor reversal is a post-pass that needs the complete
// decompressed payload before it can walk rows.
type flateDecoder struct{}

func (flateDecoder) Name() string { return "FlateDecode" }

func (flateDecoder) Decode(ctx context.Context, in []byte, params raw.Dictionary) ([]byte, error) {
	sess := NewSession("FlateDecode", &bufferSink{})
	if err := sess.beginDecode(); err != nil {
		return nil, err
	}

	r := flate.NewReader(bytes.NewReader(in))
	defer r.Close()

	var out bytes.Buffer
	buf := make([]byte, sessionScratchSize)
	for {
		if err := ctx.Err(); err != nil {
			sess.failEncodeDecode()
			return nil, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			out.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			sess.failEncodeDecode()
			return nil, FlateError{Op: "inflate", Err: err}
		}
	}
	if err := sess.close(); err != nil {
		return nil, err
	}

	decoded := out.Bytes()
	if params != nil {
		p := ParsePredictorParams(params)
		if p.Predictor > 1 {
			reversed, err := reversePredictor(decoded, p)
			if err != nil {
				return nil, err
			}
			decoded = reversed
		}
	}
	return decoded, nil
}

// NewFlateDecoder returns the FlateDecode codec.
func NewFlateDecoder() Decoder { return flateDecoder{} }

// EncodeFlate deflates data at the given compression level (flate.DefaultCompression
// if level is 0). Predictor application, if any, is the caller's responsibility
// before calling EncodeFlate, matching how encoding order runs predictor-then-compress.
func EncodeFlate(data []byte, level int) ([]byte, error) {
	if level == 0 {
		level = flate.DefaultCompression
	}
	sess := NewSession("FlateEncode", &bufferSink{})
	if err := sess.beginEncode(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	w, err := flate.NewWriter(&out, level)
	if err != nil {
		sess.failEncodeDecode()
		return nil, FlateError{Op: "deflate-init", Err: err}
	}
	if _, err := w.Write(data); err != nil {
		sess.failEncodeDecode()
		return nil, FlateError{Op: "deflate", Err: err}
	}
	if err := w.Close(); err != nil {
		sess.failEncodeDecode()
		return nil, FlateError{Op: "deflate-close", Err: err}
	}
	if err := sess.close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
