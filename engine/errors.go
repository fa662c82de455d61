package engine

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/mirseo/updrm/engine/carrier"
	"github.com/mirseo/updrm/engine/fec"
)

// Error kinds surfaced by the Engine. Match them with errors.Is.
var (
	// ErrAccess means the host file could not be read or written.
	ErrAccess = errors.New("I/O access failure")

	// ErrUnsupportedType means no known signature matched the host.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrParse means the host matched a signature but is malformed.
	ErrParse = errors.New("malformed host file")

	// ErrUnsupportedStructure means a document cannot accept the overlay,
	// e.g. because it has no pages.
	ErrUnsupportedStructure = errors.New("unsupported document structure")

	// ErrInsufficientCapacity means the framed payload does not fit in the
	// host.
	ErrInsufficientCapacity = errors.New("insufficient embedding capacity")

	// ErrInvalidInput means the payload is empty or not valid text.
	ErrInvalidInput = errors.New("invalid input data")

	// ErrNotFound means the host carries no embedded data.
	ErrNotFound = errors.New("no embedded data found")

	// ErrUnrecoverable means too few shards survived to rebuild the payload.
	ErrUnrecoverable = errors.New("unrecoverable corruption")
)

// Error is returned by every Engine operation. Kind is one of the Err*
// values of this package and Err the underlying cause.
type Error struct {
	Kind error
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, msg)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// classify maps a lower-layer error onto an error kind, or fallback when the
// error is not one of the known sentinels.
func classify(err, fallback error) error {
	switch {
	case errors.Is(err, carrier.ErrParse):
		return ErrParse
	case errors.Is(err, carrier.ErrInsufficientCapacity), errors.Is(err, fec.ErrPayloadTooLarge):
		return ErrInsufficientCapacity
	case errors.Is(err, carrier.ErrUnsupportedStructure):
		return ErrUnsupportedStructure
	case errors.Is(err, carrier.ErrNoOverlay), errors.Is(err, fec.ErrNoFrame):
		return ErrNotFound
	case errors.Is(err, fec.ErrUnrecoverable):
		return ErrUnrecoverable
	}
	return fallback
}
