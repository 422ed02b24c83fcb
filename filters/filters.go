// Package filters implements the PDF stream filter pipeline: ASCIIHex,
// ASCII85, Flate (with PNG/TIFF predictor reversal), RunLength and LZW
// codecs, composed through a Pipeline the way a stream dictionary's
// /Filter array chains them.
package filters

import (
	"context"
	"errors"
	"time"

	"pdflib/ir/raw"
	"pdflib/observability"
)

// Decoder is the whole-buffer façade every codec exposes. The ASCIIHex and
// ASCII85 decoders feed the entire input through one FilterSession block
// call and close it. The Flate, LZW and RunLength decoders process the whole
// buffer directly and use their FilterSession only to track its phase; they
// do not decode incrementally. The unsupported placeholders open no session.
type Decoder interface {
	Name() string
	Decode(ctx context.Context, input []byte, params raw.Dictionary) ([]byte, error)
}

// Limits bounds a Pipeline's resource usage against hostile or malformed streams.
// Pipeline.Decode enforces MaxDecompressedSize on each stage's input and
// output; MaxDecodeTime is carried but not enforced.
type Limits struct {
	MaxDecompressedSize int64
	MaxDecodeTime       time.Duration
}

// Pipeline chains a fixed set of decoders and dispatches by filter name,
// mirroring how a PDF stream's /Filter array lists its filters in decoding
// order: the outermost encoding is undone first on read.
type Pipeline struct {
	decoders []Decoder
	limits   Limits
	logger   observability.Logger
}

// NewPipeline constructs a pipeline with provided decoders and limits.
func NewPipeline(decoders []Decoder, limits Limits) *Pipeline {
	return &Pipeline{decoders: decoders, limits: limits, logger: observability.NopLogger{}}
}

// WithLogger attaches a logger used for per-stage diagnostics.
func (p *Pipeline) WithLogger(logger observability.Logger) *Pipeline {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	p.logger = logger
	return p
}

func (p *Pipeline) findDecoder(name string) Decoder {
	for _, d := range p.decoders {
		if d.Name() == name {
			return d
		}
	}
	return nil
}

// Decode applies filterNames in order, each with its corresponding entry in
// params (nil if absent), returning the fully decoded payload.
func (p *Pipeline) Decode(ctx context.Context, input []byte, filterNames []string, params []raw.Dictionary) ([]byte, error) {
	data := input
	for i, name := range filterNames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dec := p.findDecoder(name)
		if dec == nil {
			return nil, errors.New("filters: unknown filter: " + name)
		}
		if p.limits.MaxDecompressedSize > 0 && int64(len(data)) > p.limits.MaxDecompressedSize {
			return nil, OutOfMemoryError{Filter: name, Reason: "input exceeds MaxDecompressedSize"}
		}
		var param raw.Dictionary
		if i < len(params) {
			param = params[i]
		}
		p.logger.Debug("filters: decoding stage", observability.String("filter", name), observability.Int("stage", i))
		out, err := dec.Decode(ctx, data, param)
		if err != nil {
			p.logger.Error("filters: stage failed", observability.String("filter", name), observability.Error("err", err))
			return nil, err
		}
		if p.limits.MaxDecompressedSize > 0 && int64(len(out)) > p.limits.MaxDecompressedSize {
			return nil, OutOfMemoryError{Filter: name, Reason: "output exceeds MaxDecompressedSize"}
		}
		data = out
	}
	return data, nil
}

// Registry is a name-keyed lookup of decoders, useful for callers that
// assemble a Pipeline dynamically from a document's declared filter set.
type Registry struct{ decoders map[string]Decoder }

func (r *Registry) Register(d Decoder) {
	if r.decoders == nil {
		r.decoders = make(map[string]Decoder)
	}
	r.decoders[d.Name()] = d
}
func (r *Registry) Get(name string) (Decoder, bool) { d, ok := r.decoders[name]; return d, ok }

// NewRegistry builds a Registry pre-populated with every decoder this
// package implements, including the unsupported-placeholder codecs.
func NewRegistry() *Registry {
	r := &Registry{}
	for _, d := range []Decoder{
		NewASCIIHexDecoder(),
		NewASCII85Decoder(),
		NewFlateDecoder(),
		NewRunLengthDecoder(),
		NewLZWDecoder(),
		NewCCITTFaxDecoder(),
		NewJBIG2Decoder(),
		NewDCTDecoder(),
		NewJPXDecoder(),
	} {
		r.Register(d)
	}
	return r
}
