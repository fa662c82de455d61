// Package document stores a bitstream in a PDF by drawing a near-transparent
// overlay image on every page.
//
// The overlay is an 8-bit DeviceGray image XObject registered under the
// resource name UpdrmImg, painted through an ExtGState named UpdrmGS that
// carries a very low constant opacity. Each pixel carries one bit: 0x00 for
// 0 and 0xFF for 1. Extraction looks the fixed names up directly rather than
// scanning resources.
package document

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/pkg/errors"

	"github.com/mirseo/updrm/engine/bitstream"
	"github.com/mirseo/updrm/engine/carrier"
)

const (
	// ImageName is the resource name of the overlay image XObject.
	ImageName = "UpdrmImg"

	// StateName is the resource name of the overlay's graphics state.
	StateName = "UpdrmGS"

	// Low is the pixel intensity written for a 0 bit.
	Low byte = 0x00

	// High is the pixel intensity written for a 1 bit.
	High byte = 0xFF

	// Intensities up to lowMax read as 0, from highMin up read as 1, anything
	// in between is unreadable.
	lowMax  = 0x3F
	highMin = 0xC0

	// DefaultOpacity is the fill and stroke alpha of the overlay.
	DefaultOpacity = 0.01

	// DefaultOffset is the overlay origin in page units.
	DefaultOffset = 50

	// DefaultScale is the overlay size in page units.
	DefaultScale = 10

	// DefaultMaxOverlaySide bounds the overlay image to 2048x2048 pixels.
	DefaultMaxOverlaySide = 2048

	maxPageTreeDepth = 64
)

// Options controls how the overlay is rendered. None of these values are
// needed to extract the bits again.
type Options struct {
	Opacity        float64
	OffsetX        float64
	OffsetY        float64
	ScaleX         float64
	ScaleY         float64
	MaxOverlaySide int
}

// DefaultOptions returns the standard overlay placement.
func DefaultOptions() Options {
	return Options{
		Opacity:        DefaultOpacity,
		OffsetX:        DefaultOffset,
		OffsetY:        DefaultOffset,
		ScaleX:         DefaultScale,
		ScaleY:         DefaultScale,
		MaxOverlaySide: DefaultMaxOverlaySide,
	}
}

var (
	overlayPrefix = []byte("q\n/" + StateName + " gs\n")
	overlaySuffix = []byte("/" + ImageName + " Do\nQ\n")
)

func init() {
	// Keep pdfcpu from creating a configuration directory in $HOME.
	model.ConfigPath = "disable"
}

// Surface is a parsed PDF object graph.
type Surface struct {
	ctx  *model.Context
	opts Options
}

var _ carrier.Surface = (*Surface)(nil)

// Open parses PDF data into an editable Surface.
func Open(data []byte, opts Options) (s *Surface, err error) {
	// pdfcpu can panic on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, errors.Wrapf(carrier.ErrParse, "%v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, errors.Wrap(carrier.ErrParse, err.Error())
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, errors.Wrap(carrier.ErrParse, err.Error())
	}
	return &Surface{ctx: ctx, opts: opts}, nil
}

// Capacity returns the number of pixels of the largest overlay.
func (s *Surface) Capacity() int {
	return s.opts.MaxOverlaySide * s.opts.MaxOverlaySide
}

// overlaySide returns the side of the smallest square holding n pixels.
func overlaySide(n int) int {
	side := int(math.Sqrt(float64(n)))
	for side*side < n {
		side++
	}
	if side == 0 {
		side = 1
	}
	return side
}

// page is a leaf of the page tree together with the nearest inherited
// resource dictionary.
type page struct {
	dict      types.Dict
	inherited types.Object
}

// pages returns the document's pages in order.
func (s *Surface) pages() ([]page, error) {
	root, err := s.ctx.Catalog()
	if err != nil {
		return nil, err
	}
	obj, found := root["Pages"]
	if !found {
		return nil, errors.New("catalog has no page tree")
	}
	var pages []page
	if err := s.collectPages(obj, nil, &pages, 0); err != nil {
		return nil, err
	}
	return pages, nil
}

func (s *Surface) collectPages(o types.Object, inherited types.Object, pages *[]page, depth int) error {
	if depth > maxPageTreeDepth {
		return errors.New("page tree too deep")
	}
	d, err := s.ctx.DereferenceDict(o)
	if err != nil {
		return err
	}
	if d == nil {
		return nil
	}
	if res, found := d["Resources"]; found && res != nil {
		inherited = res
	}
	if t := d.Type(); t != nil && *t == "Page" {
		*pages = append(*pages, page{dict: d, inherited: inherited})
		return nil
	}
	kidsObj, found := d["Kids"]
	if !found {
		return nil
	}
	kids, err := s.ctx.DereferenceArray(kidsObj)
	if err != nil {
		return err
	}
	for _, kid := range kids {
		if err := s.collectPages(kid, inherited, pages, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// resources returns the page's own resource dictionary, materializing a copy
// of the inherited one when the page has none.
func (s *Surface) resources(p page) (types.Dict, error) {
	if obj, found := p.dict["Resources"]; found && obj != nil {
		d, err := s.ctx.DereferenceDict(obj)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
	}
	res := types.NewDict()
	if p.inherited != nil {
		d, err := s.ctx.DereferenceDict(p.inherited)
		if err != nil {
			return nil, err
		}
		if d != nil {
			res = d.Clone().(types.Dict)
		}
	}
	p.dict["Resources"] = res
	return res, nil
}

// subDict returns res[key] as a dictionary, creating it when absent.
func (s *Surface) subDict(res types.Dict, key string) (types.Dict, error) {
	if obj, found := res[key]; found && obj != nil {
		d, err := s.ctx.DereferenceDict(obj)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
	}
	d := types.NewDict()
	res[key] = d
	return d, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// overlayContent is the content stream painting the overlay.
func (s *Surface) overlayContent() []byte {
	var buf bytes.Buffer
	buf.Write(overlayPrefix)
	fmt.Fprintf(&buf, "%s 0 0 %s %s %s cm\n",
		formatNumber(s.opts.ScaleX), formatNumber(s.opts.ScaleY),
		formatNumber(s.opts.OffsetX), formatNumber(s.opts.OffsetY))
	buf.Write(overlaySuffix)
	return buf.Bytes()
}

func isOverlayContent(content []byte) bool {
	return bytes.HasPrefix(content, overlayPrefix) && bytes.HasSuffix(content, overlaySuffix)
}

// newStream adds a Flate-compressed stream object built from buf.
func (s *Surface) newStream(buf []byte, entries types.Dict) (*types.IndirectRef, error) {
	sd, err := s.ctx.NewStreamDictForBuf(buf)
	if err != nil {
		return nil, err
	}
	for k, v := range entries {
		sd.Dict[k] = v
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return s.ctx.IndRefForNewObject(*sd)
}

// Embed draws bits as an overlay image on every page. Bits left over from a
// previous embedding are replaced.
func (s *Surface) Embed(bits bitstream.Bits) error {
	if bits.Len() > s.Capacity() {
		return errors.Wrapf(carrier.ErrInsufficientCapacity, "need %d pixels, overlay holds %d",
			bits.Len(), s.Capacity())
	}
	pages, err := s.pages()
	if err != nil {
		return errors.Wrap(carrier.ErrUnsupportedStructure, err.Error())
	}
	if len(pages) == 0 {
		return errors.Wrap(carrier.ErrUnsupportedStructure, "document has no pages")
	}

	side := overlaySide(bits.Len())
	pix := bytes.Repeat([]byte{Low}, side*side)
	for i := 0; i < bits.Len(); i++ {
		if bit, _ := bits.Bit(i); bit == 1 {
			pix[i] = High
		}
	}

	imgRef, err := s.newStream(pix, types.Dict{
		"Type":             types.Name("XObject"),
		"Subtype":          types.Name("Image"),
		"Width":            types.Integer(side),
		"Height":           types.Integer(side),
		"ColorSpace":       types.Name("DeviceGray"),
		"BitsPerComponent": types.Integer(8),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create overlay image")
	}
	gsRef, err := s.ctx.IndRefForNewObject(types.Dict{
		"Type": types.Name("ExtGState"),
		"ca":   types.Float(s.opts.Opacity),
		"CA":   types.Float(s.opts.Opacity),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create overlay graphics state")
	}
	contentRef, err := s.newStream(s.overlayContent(), nil)
	if err != nil {
		return errors.Wrap(err, "failed to create overlay content")
	}

	for i, p := range pages {
		res, err := s.resources(p)
		if err != nil {
			return errors.Wrapf(carrier.ErrUnsupportedStructure, "page %d resources: %v", i+1, err)
		}
		xobjects, err := s.subDict(res, "XObject")
		if err != nil {
			return errors.Wrapf(carrier.ErrUnsupportedStructure, "page %d XObject: %v", i+1, err)
		}
		states, err := s.subDict(res, "ExtGState")
		if err != nil {
			return errors.Wrapf(carrier.ErrUnsupportedStructure, "page %d ExtGState: %v", i+1, err)
		}
		xobjects[ImageName] = *imgRef
		states[StateName] = *gsRef
		if err := s.appendContent(p.dict, *contentRef); err != nil {
			return errors.Wrapf(carrier.ErrUnsupportedStructure, "page %d contents: %v", i+1, err)
		}
	}

	// Constant alpha in ExtGState needs PDF 1.4.
	if xrt := s.ctx.XRefTable; xrt.Version() < model.V14 {
		v := model.V14
		xrt.HeaderVersion = &v
		if xrt.RootVersion != nil {
			xrt.RootVersion = &v
		}
	}
	return nil
}

// appendContent appends the overlay invocation to the page's content
// streams, dropping invocations left by an earlier embedding.
func (s *Surface) appendContent(pageDict types.Dict, ref types.IndirectRef) error {
	var existing types.Array
	if obj, found := pageDict["Contents"]; found && obj != nil {
		o, err := s.ctx.Dereference(obj)
		if err != nil {
			return err
		}
		if arr, ok := o.(types.Array); ok {
			existing = arr
		} else {
			existing = types.Array{obj}
		}
	}
	contents := make(types.Array, 0, len(existing)+1)
	for _, c := range existing {
		if !s.isOverlay(c) {
			contents = append(contents, c)
		}
	}
	pageDict["Contents"] = append(contents, ref)
	return nil
}

func (s *Surface) isOverlay(o types.Object) bool {
	sd, _, err := s.ctx.DereferenceStreamDict(o)
	if err != nil || sd == nil {
		return false
	}
	if err := sd.Decode(); err != nil {
		return false
	}
	return isOverlayContent(sd.Content)
}

// Extract decodes the overlay image of the first page that has one.
func (s *Surface) Extract() (bitstream.Source, error) {
	pages, err := s.pages()
	if err != nil {
		return nil, errors.Wrap(carrier.ErrParse, err.Error())
	}
	for _, p := range pages {
		ref, ok := s.lookupImage(p)
		if !ok {
			continue
		}
		sd, _, err := s.ctx.DereferenceStreamDict(ref)
		if err != nil || sd == nil {
			return pixelSource(nil), nil
		}
		if err := sd.Decode(); err != nil {
			return pixelSource(nil), nil
		}
		return samples(sd.Content, sd.IntEntry("Width"), sd.IntEntry("Height")), nil
	}
	return nil, carrier.ErrNoOverlay
}

// lookupImage finds the overlay reference in the page's effective resources
// without modifying the document.
func (s *Surface) lookupImage(p page) (types.Object, bool) {
	resObj, found := p.dict["Resources"]
	if !found || resObj == nil {
		resObj = p.inherited
	}
	if resObj == nil {
		return nil, false
	}
	res, err := s.ctx.DereferenceDict(resObj)
	if err != nil || res == nil {
		return nil, false
	}
	xobjects, err := s.ctx.DereferenceDict(res["XObject"])
	if err != nil || xobjects == nil {
		return nil, false
	}
	ref, found := xobjects[ImageName]
	return ref, found && ref != nil
}

// Encode writes the document.
func (s *Surface) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := api.WriteContext(s.ctx, &buf); err != nil {
		return nil, errors.Wrap(err, "failed to write pdf")
	}
	return buf.Bytes(), nil
}

// samples trims decoded image data to its declared dimensions. Dimensions
// that are missing or exceed the data make every pixel unreadable.
func samples(pix []byte, w, h *int) pixelSource {
	if w == nil || h == nil || *w <= 0 || *h <= 0 {
		return nil
	}
	if *w > len(pix) || *h > len(pix)/(*w) {
		return nil
	}
	return pixelSource(pix[:*w*(*h)])
}

// pixelSource classifies overlay intensities back into bits.
type pixelSource []byte

func (p pixelSource) Len() int {
	return len(p)
}

func (p pixelSource) Bit(i int) (byte, bool) {
	if i < 0 || i >= len(p) {
		return 0, false
	}
	switch v := p[i]; {
	case v <= lowMax:
		return 0, true
	case v >= highMin:
		return 1, true
	default:
		return 0, false
	}
}
