package filters

import "pdflib/ir/raw"

// canonicalFilterNames maps the short aliases PDF producers are allowed to
// write in place of the full filter name (PDF 1.6 table 3.8) to the
// canonical name this package registers its decoders under.
var canonicalFilterNames = map[string]string{
	"AHx": "ASCIIHexDecode",
	"A85": "ASCII85Decode",
	"LZW": "LZWDecode",
	"Fl":  "FlateDecode",
	"RL":  "RunLengthDecode",
	"CCF": "CCITTFaxDecode",
	"DCT": "DCTDecode",
}

// CanonicalFilterName resolves a short filter-name alias to its full form.
// Names that are already canonical (or unrecognized) are returned unchanged.
func CanonicalFilterName(name string) string {
	if canon, ok := canonicalFilterNames[name]; ok {
		return canon
	}
	return name
}

// ExtractFilters reads Filter and DecodeParms entries from a stream dictionary,
// resolving short filter-name aliases to their canonical form.
func ExtractFilters(dict raw.Dictionary) ([]string, []raw.Dictionary) {
	var names []string
	var params []raw.Dictionary

	filterObj, ok := dict.Get(raw.NameObj{Val: "Filter"})
	if !ok {
		return names, params
	}

	switch f := filterObj.(type) {
	case raw.Name:
		names = append(names, CanonicalFilterName(f.Value()))
	case *raw.ArrayObj:
		for _, item := range f.Items {
			if n, ok := item.(raw.Name); ok {
				names = append(names, CanonicalFilterName(n.Value()))
			}
		}
	}

	if len(names) > 0 {
		if pObj, ok := dict.Get(raw.NameObj{Val: "DecodeParms"}); ok {
			switch p := pObj.(type) {
			case raw.Dictionary:
				params = append(params, p)
			case *raw.ArrayObj:
				for _, item := range p.Items {
					if d, ok := item.(raw.Dictionary); ok {
						params = append(params, d)
					}
				}
			}
		}
	}

	return names, params
}
