// Package pdfstring implements the PDF string object: a byte carrier that
// may hold either PDFDocEncoded text or UTF-16BE text marked by a leading
// 0xFE 0xFF byte-order mark, serialized either in literal ( ... ) form with
// backslash escaping or in hex < ... > form.
package pdfstring

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"pdflib/ir/raw"
)

var utf16BOM = []byte{0xFE, 0xFF}

// Conversion selects how invalid UTF-8/UTF-16 input is handled when
// converting between the two: Strict rejects it, Lenient substitutes U+FFFD.
type Conversion int

const (
	Strict Conversion = iota
	Lenient
)

// String is an in-memory PDF string value. It always holds decoded bytes;
// Hex only affects how Write serializes the value.
type String struct {
	bytes   []byte
	unicode bool
	hex     bool
}

// FromBytes wraps raw string-object bytes as read from a PDF file, detecting
// the UTF-16BE byte-order mark the way the original parser does.
func FromBytes(raw []byte, hex bool) String {
	return String{bytes: append([]byte{}, raw...), unicode: hasUTF16BOM(raw), hex: hex}
}

func hasUTF16BOM(b []byte) bool {
	return len(b) >= 2 && b[0] == utf16BOM[0] && b[1] == utf16BOM[1]
}

// FromUTF8 builds a String from Go text, preferring single-byte
// PDFDocEncoding when every rune is in its identity range (printable ASCII
// plus tab, CR and LF) and falling back to a BOM-prefixed UTF-16BE encoding
// otherwise.
func FromUTF8(s string, conv Conversion) (String, error) {
	if enc, ok := encodePDFDocString(s); ok {
		return String{bytes: enc, unicode: false}, nil
	}
	u16, err := utf8ToUTF16BE(s, conv)
	if err != nil {
		return String{}, err
	}
	return String{bytes: append(append([]byte{}, utf16BOM...), u16...), unicode: true}, nil
}

// IsUnicode reports whether the string carries a UTF-16BE BOM.
func (s String) IsUnicode() bool { return s.unicode }

// IsHex reports whether Write should serialize the string in hex form.
func (s String) IsHex() bool { return s.hex }

// Value returns the raw decoded bytes, BOM included for unicode strings.
// It satisfies raw.String.
func (s String) Value() []byte { return s.bytes }

func (String) Type() string     { return "string" }
func (String) IsIndirect() bool { return false }

// Len returns the number of stored payload bytes (the BOM, if present,
// counts as payload since it is part of the on-disk representation).
func (s String) Len() int { return len(s.bytes) }

// ToUTF8 decodes the string to Go text: UTF-16BE (BOM stripped) if unicode,
// PDFDocEncoding otherwise.
func (s String) ToUTF8(conv Conversion) (string, error) {
	if s.unicode {
		return utf16BEToUTF8(s.bytes[2:], conv)
	}
	return decodePDFDocString(s.bytes), nil
}

// AsHex returns a copy of s serialized in hex form on Write.
func (s String) AsHex() String { s.hex = true; return s }

// AsLiteral returns a copy of s serialized in literal ( ... ) form on Write.
func (s String) AsLiteral() String { s.hex = false; return s }

// Encryptor transforms a string's plaintext bytes before they are written,
// e.g. security.Handler.Encrypt bound to a specific object number.
type Encryptor func(plain []byte) ([]byte, error)

// Write serializes the string per PDF syntax: hex form as uppercase pairs
// between angle brackets, or literal form with parentheses, backslashes,
// carriage returns/newlines and non-printable bytes escaped. When encrypt
// is non-nil, it is applied to the payload before serialization.
func (s String) Write(w io.Writer, encrypt Encryptor) error {
	payload := s.bytes
	if encrypt != nil {
		enc, err := encrypt(payload)
		if err != nil {
			return err
		}
		payload = enc
	}
	if s.hex {
		return writeHexString(w, payload)
	}
	return writeLiteralString(w, payload)
}

func writeHexString(w io.Writer, data []byte) error {
	if _, err := io.WriteString(w, "<"); err != nil {
		return err
	}
	const digits = "0123456789ABCDEF"
	buf := make([]byte, 2*len(data))
	for i, b := range data {
		buf[2*i] = digits[b>>4]
		buf[2*i+1] = digits[b&0x0F]
	}
	if _, err := w.Write(buf); err != nil {
		return err
	}
	_, err := io.WriteString(w, ">")
	return err
}

func writeLiteralString(w io.Writer, data []byte) error {
	if _, err := io.WriteString(w, "("); err != nil {
		return err
	}
	for _, b := range data {
		switch b {
		case '(', ')', '\\':
			if _, err := fmt.Fprintf(w, "\\%c", b); err != nil {
				return err
			}
		case '\r':
			if _, err := io.WriteString(w, "\\r"); err != nil {
				return err
			}
		case '\n':
			if _, err := io.WriteString(w, "\\n"); err != nil {
				return err
			}
		default:
			if b < 0x20 || b > 0x7E {
				if _, err := fmt.Fprintf(w, "\\%03o", b); err != nil {
					return err
				}
				continue
			}
			if _, err := w.Write([]byte{b}); err != nil {
				return err
			}
		}
	}
	_, err := io.WriteString(w, ")")
	return err
}

// utf8ToUTF16BE converts UTF-8 text to big-endian UTF-16 code units (no
// BOM) using golang.org/x/text's UTF-16 encoder. Strict mode rejects invalid
// UTF-8 before encoding; Lenient mode encodes invalid sequences as U+FFFD.
func utf8ToUTF16BE(s string, conv Conversion) ([]byte, error) {
	if conv == Strict && !utf8.ValidString(s) {
		return nil, fmt.Errorf("pdfstring: invalid UTF-8 input")
	}
	enc := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	out, _, err := transform.Bytes(enc.NewEncoder(), []byte(s))
	if err != nil {
		if conv == Strict {
			return nil, fmt.Errorf("pdfstring: utf8 to utf16 conversion: %w", err)
		}
		out, _, _ = transform.Bytes(enc.NewEncoder(), bytes.ToValidUTF8([]byte(s), []byte("�")))
	}
	return out, nil
}

// utf16BEToUTF8 converts big-endian UTF-16 code units (BOM already
// stripped) back to UTF-8, rejecting unpaired surrogates in Strict mode and
// substituting U+FFFD for them in Lenient mode.
func utf16BEToUTF8(data []byte, conv Conversion) (string, error) {
	if len(data)%2 != 0 {
		if conv == Strict {
			return "", fmt.Errorf("pdfstring: odd-length utf16 payload")
		}
		data = data[:len(data)-1]
	}
	units := make([]uint16, len(data)/2)
	for i := range units {
		units[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	if conv == Strict {
		for i := 0; i < len(units); i++ {
			r := units[i]
			switch {
			case r >= 0xD800 && r <= 0xDBFF:
				if i+1 >= len(units) || units[i+1] < 0xDC00 || units[i+1] > 0xDFFF {
					return "", fmt.Errorf("pdfstring: unpaired high surrogate")
				}
				i++
			case r >= 0xDC00 && r <= 0xDFFF:
				return "", fmt.Errorf("pdfstring: unpaired low surrogate")
			}
		}
	}
	runes := utf16.Decode(units)
	return string(runes), nil
}

var _ raw.String = String{}
