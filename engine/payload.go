package engine

import (
	"unicode/utf8"

	"github.com/pkg/errors"
)

type payloadKind uint8

const (
	payloadNone payloadKind = iota
	payloadText
	payloadBytes
)

// Payload is the data handed to Write: either text or raw bytes. The zero
// value is neither and is rejected.
type Payload struct {
	kind payloadKind
	data []byte
}

// Text returns a Payload carrying the UTF-8 encoding of s.
func Text(s string) Payload {
	return Payload{kind: payloadText, data: []byte(s)}
}

// Bytes returns a Payload carrying b unchanged.
func Bytes(b []byte) Payload {
	return Payload{kind: payloadBytes, data: b}
}

// bytes validates the payload and returns its encoding.
func (p Payload) bytes() ([]byte, error) {
	switch p.kind {
	case payloadText:
		if !utf8.Valid(p.data) {
			return nil, errors.New("text payload is not valid UTF-8")
		}
	case payloadBytes:
	default:
		return nil, errors.New("payload is neither text nor bytes")
	}
	if len(p.data) == 0 {
		return nil, errors.New("payload is empty")
	}
	return p.data, nil
}
