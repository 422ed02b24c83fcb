package filters

import (
	"bytes"
	"compress/flate"
	"compress/lzw"
	"context"
	"errors"
	"fmt"
	"testing"

	"pdflib/ir/raw"
)

func TestFlateDecode(t *testing.T) {
	var buf bytes.Buffer
	w, _ := flate.NewWriter(&buf, flate.BestSpeed)
	w.Write([]byte("hello world"))
	w.Close()

	dec := NewFlateDecoder()
	out, err := dec.Decode(context.Background(), buf.Bytes(), nil)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if string(out) != "hello world" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestFlateDecodeWithPredictor(t *testing.T) {
	var comp bytes.Buffer
	w, _ := flate.NewWriter(&comp, flate.BestSpeed)
	// PNG predictor row: filter byte 1 (Sub), then row bytes.
	w.Write([]byte{1, 10, 12, 20})
	w.Close()

	params := raw.Dict()
	params.Set(raw.NameObj{Val: "Predictor"}, raw.NumberInt(12))
	params.Set(raw.NameObj{Val: "Colors"}, raw.NumberInt(1))
	params.Set(raw.NameObj{Val: "BitsPerComponent"}, raw.NumberInt(8))
	params.Set(raw.NameObj{Val: "Columns"}, raw.NumberInt(3))

	dec := NewFlateDecoder()
	out, err := dec.Decode(context.Background(), comp.Bytes(), params)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	want := []byte{10, 22, 42}
	if !bytes.Equal(out, want) {
		t.Fatalf("predictor output mismatch: got %v want %v", out, want)
	}
}

func TestLZWDecode(t *testing.T) {
	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, lzw.MSB, 8)
	input := []byte("hello hello hello")
	if _, err := w.Write(input); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.Close()

	dec := NewLZWDecoder()
	out, err := dec.Decode(context.Background(), buf.Bytes(), nil)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestLZWDecodeWithPredictor(t *testing.T) {
	// Single PNG row with filter None: [0,1,2,3]
	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, lzw.MSB, 8)
	w.Write([]byte{0, 1, 2, 3})
	w.Close()

	params := raw.Dict()
	params.Set(raw.NameObj{Val: "Predictor"}, raw.NumberInt(12))
	params.Set(raw.NameObj{Val: "Colors"}, raw.NumberInt(1))
	params.Set(raw.NameObj{Val: "BitsPerComponent"}, raw.NumberInt(8))
	params.Set(raw.NameObj{Val: "Columns"}, raw.NumberInt(3))

	dec := NewLZWDecoder()
	out, err := dec.Decode(context.Background(), buf.Bytes(), params)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !bytes.Equal(out, []byte{1, 2, 3}) {
		t.Fatalf("unexpected output: %v", out)
	}
}

// TestLZWDecodeCrossesCodeWidthBoundary uses several hundred distinct
// substrings so the table grows past the 511/1023-entry code-width
// boundaries, the region the fixed-width tiny inputs above never reach.
// compress/lzw's writer grows codes on the earlyChange=0 schedule, so the
// decode side is told EarlyChange=0 to match it.
func TestLZWDecodeCrossesCodeWidthBoundary(t *testing.T) {
	var input bytes.Buffer
	for i := 0; i < 800; i++ {
		fmt.Fprintf(&input, "entry-%d-distinct-payload-%d;", i, i*i)
	}

	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, lzw.MSB, 8)
	if _, err := w.Write(input.Bytes()); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.Close()

	params := raw.Dict()
	params.Set(raw.NameObj{Val: "EarlyChange"}, raw.NumberInt(0))

	dec := NewLZWDecoder()
	out, err := dec.Decode(context.Background(), buf.Bytes(), params)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !bytes.Equal(out, input.Bytes()) {
		t.Fatalf("round trip mismatch across code-width boundary: got %d bytes, want %d", len(out), input.Len())
	}
}

func TestRunLengthDecode(t *testing.T) {
	// literal run of 3 bytes (len=2), then repeat 'A' 2 times (len=255 => count=2), then EOD 128
	data := []byte{2, 'h', 'i', '!', 255, 'A', 128}
	dec := NewRunLengthDecoder()
	out, err := dec.Decode(context.Background(), data, nil)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if string(out) != "hi!AA" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestASCII85Decode(t *testing.T) {
	dec := NewASCII85Decoder()
	out, err := dec.Decode(context.Background(), []byte("<~87cURD_*#4DfTZ)+T~>"), nil)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if string(out) != "Hello, World!" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestASCIIHexDecode(t *testing.T) {
	dec := NewASCIIHexDecoder()
	out, err := dec.Decode(context.Background(), []byte("68656c6c6f20776f726c64>"), nil)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if string(out) != "hello world" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestUnsupportedFilters(t *testing.T) {
	cases := []struct {
		name string
		dec  Decoder
	}{
		{"CCITTFaxDecode", NewCCITTFaxDecoder()},
		{"JBIG2Decode", NewJBIG2Decoder()},
		{"DCTDecode", NewDCTDecoder()},
		{"JPXDecode", NewJPXDecoder()},
	}
	for _, tc := range cases {
		fp := NewPipeline([]Decoder{tc.dec}, Limits{})
		_, err := fp.Decode(context.Background(), []byte{0x00}, []string{tc.name}, nil)
		var ue UnsupportedError
		if err == nil || !errors.As(err, &ue) || ue.Filter != tc.name {
			t.Fatalf("%s: expected unsupported error, got %v", tc.name, err)
		}
	}
}

func TestRegistryHasAllFilters(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{
		"ASCIIHexDecode", "ASCII85Decode", "FlateDecode", "RunLengthDecode",
		"LZWDecode", "CCITTFaxDecode", "JBIG2Decode", "DCTDecode", "JPXDecode",
	} {
		if _, ok := r.Get(name); !ok {
			t.Fatalf("registry missing decoder for %s", name)
		}
	}
}

func TestFilterNameAliasResolution(t *testing.T) {
	cases := map[string]string{
		"AHx": "ASCIIHexDecode",
		"A85": "ASCII85Decode",
		"LZW": "LZWDecode",
		"Fl":  "FlateDecode",
		"RL":  "RunLengthDecode",
		"CCF": "CCITTFaxDecode",
		"DCT": "DCTDecode",
	}
	for alias, canon := range cases {
		if got := CanonicalFilterName(alias); got != canon {
			t.Fatalf("CanonicalFilterName(%q) = %q, want %q", alias, got, canon)
		}
	}
}
