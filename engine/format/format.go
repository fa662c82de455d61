package format

import "bytes"

// Kind identifies which carrier model a host file belongs to.
type Kind int

const (
	// Unknown means no supported signature matched.
	Unknown Kind = iota
	// Raster is a PNG image.
	Raster
	// Document is a PDF document.
	Document
)

var (
	pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	pdfSignature = []byte("%PDF-")
)

// PrefixSize is the number of leading bytes Detect needs to classify a file.
const PrefixSize = 8

// Detect classifies data by its leading signature bytes. File names and
// extensions are never considered.
func Detect(data []byte) Kind {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		return Raster
	case bytes.HasPrefix(data, pdfSignature):
		return Document
	default:
		return Unknown
	}
}

func (k Kind) String() string {
	switch k {
	case Raster:
		return "png"
	case Document:
		return "pdf"
	default:
		return "unknown"
	}
}
