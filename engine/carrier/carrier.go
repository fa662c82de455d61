// Package carrier defines the contract shared by the host formats that can
// store an embedded bitstream.
package carrier

import (
	"errors"

	"github.com/mirseo/updrm/engine/bitstream"
)

var (
	// ErrParse is returned when a host matched a signature but its structure
	// could not be decoded.
	ErrParse = errors.New("malformed host file")

	// ErrInsufficientCapacity is returned when a bitstream does not fit in the
	// host.
	ErrInsufficientCapacity = errors.New("insufficient embedding capacity")

	// ErrNoOverlay is returned by document extraction when the well-known
	// overlay object is absent.
	ErrNoOverlay = errors.New("overlay object not found")

	// ErrUnsupportedStructure is returned when a document cannot accept the
	// overlay objects, e.g. because it has no pages.
	ErrUnsupportedStructure = errors.New("unsupported document structure")
)

// Surface is the editable, decoded model of one host file. A Surface is
// owned by a single call and is not safe for concurrent use.
type Surface interface {
	// Capacity returns the number of bits the host can store.
	Capacity() int

	// Embed stores bits in the host model. It fails with
	// ErrInsufficientCapacity, leaving the model untouched, when bits does
	// not fit.
	Embed(bits bitstream.Bits) error

	// Extract returns a view of the stored bits in embedding order.
	Extract() (bitstream.Source, error)

	// Encode re-encodes the host model to file bytes.
	Encode() ([]byte, error)
}
