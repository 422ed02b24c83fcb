package filters

import "pdflib/ir/raw"

// PredictorParams describes the PNG/TIFF row-prediction preprocessing that
// may accompany a Flate or LZW stream, taken from the filter's DecodeParms.
type PredictorParams struct {
	Predictor        int
	Colors           int
	BitsPerComponent int
	Columns          int
	EarlyChange      int
}

// DefaultPredictorParams matches the PDF-specified defaults (1,1,8,1,1).
func DefaultPredictorParams() PredictorParams {
	return PredictorParams{Predictor: 1, Colors: 1, BitsPerComponent: 8, Columns: 1, EarlyChange: 1}
}

// ParsePredictorParams reads Predictor/Colors/BitsPerComponent/Columns/EarlyChange
// out of a DecodeParms dictionary, falling back to defaults for absent keys.
func ParsePredictorParams(dict raw.Dictionary) PredictorParams {
	p := DefaultPredictorParams()
	if dict == nil {
		return p
	}
	if v, ok := intEntry(dict, "Predictor"); ok {
		p.Predictor = v
	}
	if v, ok := intEntry(dict, "Colors"); ok {
		p.Colors = v
	}
	if v, ok := intEntry(dict, "BitsPerComponent"); ok {
		p.BitsPerComponent = v
	}
	if v, ok := intEntry(dict, "Columns"); ok {
		p.Columns = v
	}
	if v, ok := intEntry(dict, "EarlyChange"); ok {
		p.EarlyChange = v
	} else {
		p.EarlyChange = 1
	}
	return p
}

func intEntry(dict raw.Dictionary, key string) (int, bool) {
	v, ok := dict.Get(raw.NameObj{Val: key})
	if !ok {
		return 0, false
	}
	n, ok := v.(raw.Number)
	if !ok {
		return 0, false
	}
	return int(n.Int()), true
}

func (p PredictorParams) bytesPerPixel() int {
	bits := p.Colors * p.BitsPerComponent
	return (bits + 7) / 8
}

func (p PredictorParams) bytesPerRow() int {
	bits := p.Colors * p.BitsPerComponent * p.Columns
	return (bits + 7) / 8
}

// reversePredictor undoes row-wise prediction applied before compression.
// Predictor 1 is a no-op; 2 is TIFF horizontal differencing; 10-15 select
// the PNG per-row filter tag scheme (only the tag byte selects the filter,
// the numeric predictor value itself only distinguishes "PNG is in use").
func reversePredictor(data []byte, p PredictorParams) ([]byte, error) {
	switch {
	case p.Predictor <= 1:
		return data, nil
	case p.Predictor == 2:
		return reverseTIFFPredictor(data, p), nil
	case p.Predictor >= 10 && p.Predictor <= 15:
		return reversePNGPredictor(data, p)
	default:
		return nil, InvalidPredictorError{FilterType: byte(p.Predictor)}
	}
}

func reverseTIFFPredictor(data []byte, p PredictorParams) []byte {
	rowLen := p.bytesPerRow()
	if rowLen <= 0 {
		return data
	}
	out := make([]byte, len(data))
	copy(out, data)
	for start := 0; start+rowLen <= len(out); start += rowLen {
		row := out[start : start+rowLen]
		switch p.BitsPerComponent {
		case 8:
			reverseTIFF8(row, p.Colors)
		case 16:
			reverseTIFF16(row, p.Colors)
		case 1, 2, 4:
			reverseTIFFSub8(row, p.Colors, p.Columns, p.BitsPerComponent)
		}
	}
	return out
}

func reverseTIFF8(row []byte, colors int) {
	for i := colors; i < len(row); i++ {
		row[i] = row[i] + row[i-colors]
	}
}

func reverseTIFF16(row []byte, colors int) {
	stride := colors * 2
	for i := stride; i+1 < len(row); i += 2 {
		prev := uint32(row[i-stride])<<8 | uint32(row[i-stride+1])
		cur := uint32(row[i])<<8 | uint32(row[i+1])
		sum := (cur + prev) & 0xFFFF
		row[i] = byte(sum >> 8)
		row[i+1] = byte(sum)
	}
}

// reverseTIFFSub8 reverses horizontal differencing for sub-byte sample
// widths (1, 2 or 4 bits per component), matching the general treatment PDF
// requires for indexed and low-bit-depth image data.
func reverseTIFFSub8(row []byte, colors, columns, bpc int) {
	componentsPerRow := colors * columns
	prev := make([]byte, colors)
	mask := byte(1<<bpc - 1)
	perByte := 8 / bpc

	get := func(idx int) byte {
		byteIdx := idx / perByte
		if byteIdx >= len(row) {
			return 0
		}
		fragIdx := idx % perByte
		shift := 8 - bpc - fragIdx*bpc
		return (row[byteIdx] >> shift) & mask
	}
	set := func(idx int, v byte) {
		byteIdx := idx / perByte
		if byteIdx >= len(row) {
			return
		}
		fragIdx := idx % perByte
		shift := 8 - bpc - fragIdx*bpc
		row[byteIdx] &^= mask << shift
		row[byteIdx] |= (v & mask) << shift
	}

	for idx := 0; idx < componentsPerRow; idx++ {
		colorIdx := idx % colors
		encoded := get(idx)
		var cur byte
		if idx < colors {
			cur = encoded
		} else {
			cur = (encoded + prev[colorIdx]) & mask
		}
		set(idx, cur)
		prev[colorIdx] = cur
	}
}

func reversePNGPredictor(data []byte, p PredictorParams) ([]byte, error) {
	rowLen := p.bytesPerRow()
	bpp := p.bytesPerPixel()
	if rowLen <= 0 {
		return nil, nil
	}
	recordLen := rowLen + 1
	rows := len(data) / recordLen
	out := make([]byte, 0, rows*rowLen)
	prevRow := make([]byte, rowLen)

	for r := 0; r < rows; r++ {
		rec := data[r*recordLen : r*recordLen+recordLen]
		filterType := rec[0]
		enc := rec[1:]
		cur := make([]byte, rowLen)
		for i := 0; i < rowLen; i++ {
			var a, b, c byte
			if i >= bpp {
				a = cur[i-bpp]
			}
			b = prevRow[i]
			if i >= bpp {
				c = prevRow[i-bpp]
			}
			var pred byte
			switch filterType {
			case 0:
				pred = 0
			case 1:
				pred = a
			case 2:
				pred = b
			case 3:
				pred = byte((int(a) + int(b)) / 2)
			case 4:
				pred = paeth(a, b, c)
			default:
				return nil, InvalidPredictorError{FilterType: filterType}
			}
			cur[i] = enc[i] + pred
		}
		out = append(out, cur...)
		prevRow = cur
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	pa := abs(int(b) - int(c))
	pb := abs(int(a) - int(c))
	pc := abs(int(a) + int(b) - 2*int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
