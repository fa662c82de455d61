// Package bitstream provides the bit-level views shared by the erasure codec
// and the carriers. Bits are always ordered most significant bit first within
// each byte.
package bitstream

// Source is a random-access view of the bits stored in a carrier, in the
// carrier's embedding order.
type Source interface {
	// Len returns the number of bit positions the carrier exposes.
	Len() int

	// Bit returns the bit at position i. ok is false when i is past the end
	// of the carrier or the stored value could not be classified as 0 or 1.
	Bit(i int) (bit byte, ok bool)
}

// Bits is a packed bit sequence backed by whole bytes.
type Bits []byte

// Len returns the number of bits.
func (b Bits) Len() int {
	return len(b) * 8
}

// Bit returns bit i, counting from the most significant bit of b[0].
func (b Bits) Bit(i int) (byte, bool) {
	if i < 0 || i >= b.Len() {
		return 0, false
	}
	return (b[i>>3] >> (7 - uint(i&7))) & 1, true
}

// Covers reports whether the byte range [off, off+n) lies entirely inside
// src.
func Covers(src Source, off, n int) bool {
	if off < 0 || n < 0 {
		return false
	}
	return (off+n)*8 <= src.Len()
}

// ReadBytes assembles n bytes starting at byte offset off. ok is false when
// any of the underlying bits is unreadable, in which case the returned bytes
// must not be trusted.
func ReadBytes(src Source, off, n int) ([]byte, bool) {
	if !Covers(src, off, n) {
		return nil, false
	}
	out := make([]byte, n)
	pos := off * 8
	for i := range out {
		var v byte
		for j := 0; j < 8; j++ {
			bit, ok := src.Bit(pos)
			if !ok {
				return out, false
			}
			v = v<<1 | bit
			pos++
		}
		out[i] = v
	}
	return out, true
}
