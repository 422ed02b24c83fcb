package filters

import (
	"context"

	"pdflib/ir/raw"
)

const (
	lzwClearCode = 256
	lzwEODCode   = 257
	lzwFirstCode = 258
	lzwTableSize = 4096
)

// lzwDecoder implements LZWDecode, the PDF/TIFF variant of the LZW
// compression algorithm: 9-bit codes growing to 12 bits as the table fills,
// a CLEAR code that resets the table and code width, and an EOD code that
// terminates the stream. Only decoding is supported; PDF writers essentially
// never emit LZWEncode in practice.
type lzwDecoder struct{}

func (lzwDecoder) Name() string { return "LZWDecode" }

func (lzwDecoder) Decode(ctx context.Context, in []byte, params raw.Dictionary) ([]byte, error) {
	earlyChange := 1
	if params != nil {
		p := ParsePredictorParams(params)
		earlyChange = p.EarlyChange
	}

	sess := NewSession("LZWDecode", &bufferSink{})
	if err := sess.beginDecode(); err != nil {
		return nil, err
	}

	dec := newLZWBitReader(in)
	table := newLZWTable()
	codeWidth := 9
	var out []byte
	var prev []byte

	for {
		if err := ctx.Err(); err != nil {
			sess.failEncodeDecode()
			return nil, err
		}
		code, ok := dec.readCode(codeWidth)
		if !ok {
			// PDF streams frequently omit the trailing EOD code; running out
			// of bits ends decoding just as an explicit EOD would.
			break
		}
		switch code {
		case lzwClearCode:
			table = newLZWTable()
			codeWidth = 9
			prev = nil
			continue
		case lzwEODCode:
			if err := sess.close(); err != nil {
				return nil, err
			}
			return applyLZWPredictor(out, params)
		}

		var entry []byte
		switch {
		case code < lzwClearCode:
			entry = []byte{byte(code)}
		case code < len(table):
			entry = table[code]
		case code == len(table) && prev != nil:
			// KwKwK case: the code being read is one past the last table
			// entry, meaning the encoder just referenced the entry it is
			// about to add.
			entry = append(append([]byte{}, prev...), prev[0])
		default:
			sess.failEncodeDecode()
			return nil, ValueOutOfRangeError{Filter: "LZWDecode", Reason: "code references undefined table entry"}
		}

		out = append(out, entry...)

		if prev != nil && len(table) < lzwTableSize {
			table = append(table, append(append([]byte{}, prev...), entry[0]))
		}
		prev = entry

		codeWidth = lzwCodeWidth(len(table), earlyChange)
	}

	if err := sess.close(); err != nil {
		return nil, err
	}
	return applyLZWPredictor(out, params)
}

func applyLZWPredictor(decoded []byte, params raw.Dictionary) ([]byte, error) {
	if params == nil {
		return decoded, nil
	}
	p := ParsePredictorParams(params)
	if p.Predictor <= 1 {
		return decoded, nil
	}
	return reversePredictor(decoded, p)
}

// lzwCodeWidth returns the bit width used for the NEXT code, given the
// table's current entry count. earlyChange (0 or 1) shifts the growth
// thresholds by one code, matching the historical Adobe LZW quirk that PDF
// preserved from the original TIFF variant.
func lzwCodeWidth(tableLen, earlyChange int) int {
	n := tableLen + earlyChange
	switch {
	case n >= 2048:
		return 12
	case n >= 1024:
		return 11
	case n >= 512:
		return 10
	default:
		return 9
	}
}

func newLZWTable() [][]byte {
	table := make([][]byte, lzwFirstCode, lzwTableSize)
	return table
}

// lzwBitReader reads fixed-width big-endian bit codes out of a byte stream.
type lzwBitReader struct {
	data []byte
	pos  int // bit position
}

func newLZWBitReader(data []byte) *lzwBitReader { return &lzwBitReader{data: data} }

func (r *lzwBitReader) readCode(width int) (int, bool) {
	if r.pos+width > len(r.data)*8 {
		return 0, false
	}
	code := 0
	for i := 0; i < width; i++ {
		byteIdx := r.pos / 8
		bitIdx := 7 - r.pos%8
		bit := (r.data[byteIdx] >> bitIdx) & 1
		code = code<<1 | int(bit)
		r.pos++
	}
	return code, true
}

// NewLZWDecoder returns the LZWDecode codec.
func NewLZWDecoder() Decoder { return lzwDecoder{} }
