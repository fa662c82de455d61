// Package fixture builds small carrier files for tests and benchmarks.
package fixture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
)

// PNG returns an opaque w x h PNG with a deterministic color pattern.
func PNG(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 7),
				G: uint8(y * 13),
				B: uint8(x ^ y),
				A: 0xFF,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// PDF returns a PDF 1.4 document with the given number of pages. Even pages
// carry their own resources, odd pages inherit them from the page tree.
func PDF(pages int) []byte {
	return PDFVersion("1.4", pages)
}

// PDFVersion is PDF with the given header version, e.g. "1.3".
func PDFVersion(version string, pages int) []byte {
	var (
		buf     bytes.Buffer
		offsets []int
	)
	object := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", version)

	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	object("<< /Type /Catalog /Pages 2 0 R >>")
	object(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] "+
		"/Resources << /ProcSet [/PDF] >> >>", strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		resources := ""
		if i%2 == 0 {
			resources = " /Resources << /ProcSet [/PDF] >>"
		}
		content := fmt.Sprintf("%d %d m 200 200 l S", 10*(i+1), 10*(i+1))
		object(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Contents %d 0 R%s >>", 4+2*i, resources))
		object(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}
