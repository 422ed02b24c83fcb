package pdfstring

import (
	"bytes"
	"testing"
)

func TestFromUTF8ASCIIStaysPDFDocEncoded(t *testing.T) {
	s, err := FromUTF8("Hello, World!", Strict)
	if err != nil {
		t.Fatalf("FromUTF8: %v", err)
	}
	if s.IsUnicode() {
		t.Fatalf("expected ASCII text to avoid the UTF-16BE BOM")
	}
	got, err := s.ToUTF8(Strict)
	if err != nil {
		t.Fatalf("ToUTF8: %v", err)
	}
	if got != "Hello, World!" {
		t.Fatalf("roundtrip mismatch: got %q", got)
	}
}

func TestFromUTF8NonLatinUsesUTF16BOM(t *testing.T) {
	s, err := FromUTF8("héllo 日本", Strict)
	if err != nil {
		t.Fatalf("FromUTF8: %v", err)
	}
	if !s.IsUnicode() {
		t.Fatalf("expected non-ASCII text to require UTF-16BE encoding")
	}
	if !hasUTF16BOM(s.Value()) {
		t.Fatalf("expected BOM prefix in stored bytes")
	}
	got, err := s.ToUTF8(Strict)
	if err != nil {
		t.Fatalf("ToUTF8: %v", err)
	}
	if got != "héllo 日本" {
		t.Fatalf("roundtrip mismatch: got %q", got)
	}
}

func TestFromBytesDetectsBOM(t *testing.T) {
	raw := append([]byte{0xFE, 0xFF}, []byte{0x00, 'A', 0x00, 'B'}...)
	s := FromBytes(raw, false)
	if !s.IsUnicode() {
		t.Fatalf("expected BOM-prefixed bytes to be detected as unicode")
	}
	got, err := s.ToUTF8(Strict)
	if err != nil {
		t.Fatalf("ToUTF8: %v", err)
	}
	if got != "AB" {
		t.Fatalf("unexpected decode: got %q", got)
	}
}

func TestWriteLiteralEscaping(t *testing.T) {
	s := FromBytes([]byte("a(b)c\\d\re\nf"), false)
	var buf bytes.Buffer
	if err := s.Write(&buf, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := `(a\(b\)c\\d\re\nf)`
	if buf.String() != want {
		t.Fatalf("got %q want %q", buf.String(), want)
	}
}

func TestWriteHexForm(t *testing.T) {
	s := FromBytes([]byte("hi"), true).AsHex()
	var buf bytes.Buffer
	if err := s.Write(&buf, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != "<6869>" {
		t.Fatalf("got %q want <6869>", buf.String())
	}
}

func TestWriteAppliesEncryptor(t *testing.T) {
	s := FromBytes([]byte("plain"), false)
	var buf bytes.Buffer
	xor := byte(0x5A)
	enc := func(p []byte) ([]byte, error) {
		out := make([]byte, len(p))
		for i, b := range p {
			out[i] = b ^ xor
		}
		return out, nil
	}
	if err := s.AsHex().Write(&buf, enc); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() == "" || buf.String()[0] != '<' {
		t.Fatalf("expected hex-wrapped ciphertext, got %q", buf.String())
	}
}

func TestUnpairedSurrogateStrictRejected(t *testing.T) {
	// A lone high surrogate (0xD800) with no low surrogate following.
	data := []byte{0xD8, 0x00, 0x00, 'X'}
	if _, err := utf16BEToUTF8(data, Strict); err == nil {
		t.Fatalf("expected strict mode to reject an unpaired surrogate")
	}
	if _, err := utf16BEToUTF8(data, Lenient); err != nil {
		t.Fatalf("lenient mode should not fail on an unpaired surrogate: %v", err)
	}
}
