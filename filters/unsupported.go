package filters

import (
	"context"

	"pdflib/ir/raw"
)

// unsupportedDecoder is registered for filter names this module recognizes
// but does not implement: image codecs whose output is pixel data rather
// than the byte streams the rest of this package works with. Callers that
// need CCITTFax, JBIG2, DCT or JPX image data must decode it themselves;
// this codec exists so the registry and Pipeline can report a clear,
// typed error instead of "unknown filter".
type unsupportedDecoder struct{ name string }

func (d unsupportedDecoder) Name() string { return d.name }

func (d unsupportedDecoder) Decode(ctx context.Context, in []byte, params raw.Dictionary) ([]byte, error) {
	return nil, UnsupportedError{Filter: d.name}
}

// NewCCITTFaxDecoder returns a placeholder that reports CCITTFaxDecode as unsupported.
func NewCCITTFaxDecoder() Decoder { return unsupportedDecoder{name: "CCITTFaxDecode"} }

// NewJBIG2Decoder returns a placeholder that reports JBIG2Decode as unsupported.
func NewJBIG2Decoder() Decoder { return unsupportedDecoder{name: "JBIG2Decode"} }

// NewDCTDecoder returns a placeholder that reports DCTDecode as unsupported.
func NewDCTDecoder() Decoder { return unsupportedDecoder{name: "DCTDecode"} }

// NewJPXDecoder returns a placeholder that reports JPXDecode as unsupported.
func NewJPXDecoder() Decoder { return unsupportedDecoder{name: "JPXDecode"} }
