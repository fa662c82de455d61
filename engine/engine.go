// Package engine embeds payloads into PNG and PDF host files and reads them
// back. A payload is framed by the fec package into data and parity shards
// and stored by the carrier matching the host's signature; reading tolerates
// the loss of up to the parity shard count.
package engine

import (
	"bytes"
	"io/ioutil"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	atomic_file "github.com/natefinch/atomic"
	"github.com/pkg/errors"

	"github.com/mirseo/updrm/engine/bitstream"
	"github.com/mirseo/updrm/engine/carrier"
	"github.com/mirseo/updrm/engine/carrier/document"
	"github.com/mirseo/updrm/engine/carrier/raster"
	"github.com/mirseo/updrm/engine/fec"
	"github.com/mirseo/updrm/engine/format"
	"github.com/mirseo/updrm/engine/logger"
)

// Engine performs write and read operations. It holds only immutable
// configuration and is safe for concurrent use on different files.
type Engine struct {
	config *Config
	codec  *fec.Codec
	logger logger.Logger
}

// New creates an Engine from the given configuration. A nil config uses the
// defaults.
func New(config *Config) (*Engine, error) {
	if config == nil {
		config = NewDefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		config: config,
		codec:  fec.NewDefaultCodec(),
		logger: logger.NewLogger(config.LogLevel),
	}, nil
}

// Logger returns the Engine's logger.
func (e *Engine) Logger() logger.Logger {
	return e.logger
}

// SetLogger replaces the Engine's logger.
func (e *Engine) SetLogger(l logger.Logger) {
	e.logger = l
}

// Write embeds p into the host file at path, replacing it atomically. On any
// failure the file is left untouched.
func (e *Engine) Write(path string, p Payload) error {
	op := e.begin("write", path)
	data, err := p.bytes()
	if err != nil {
		return op.fail(ErrInvalidInput, err)
	}
	host, err := ioutil.ReadFile(path)
	if err != nil {
		return op.fail(ErrAccess, err)
	}
	out, err := e.embed(op, host, data)
	if err != nil {
		return err
	}
	if err := atomic_file.WriteFile(path, bytes.NewReader(out)); err != nil {
		return op.fail(ErrAccess, err)
	}
	op.done()
	e.logger.Infof("Embedded %s into %s (%s -> %s) in %s",
		humanize.Bytes(uint64(len(data))), path, humanize.Bytes(uint64(len(host))),
		humanize.Bytes(uint64(len(out))), durafmt.Parse(op.elapsed()))
	return nil
}

// Read returns the payload embedded in the host file at path. The file is
// never modified.
func (e *Engine) Read(path string) ([]byte, error) {
	op := e.begin("read", path)
	host, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, op.fail(ErrAccess, err)
	}
	payload, err := e.extract(op, host)
	if err != nil {
		return nil, err
	}
	op.done()
	return payload, nil
}

// Embed returns a copy of host with payload embedded.
func (e *Engine) Embed(host, payload []byte) ([]byte, error) {
	op := e.begin("embed", "")
	if len(payload) == 0 {
		return nil, op.fail(ErrInvalidInput, errors.New("payload is empty"))
	}
	out, err := e.embed(op, host, payload)
	if err != nil {
		return nil, err
	}
	op.done()
	return out, nil
}

// Extract returns the payload embedded in host.
func (e *Engine) Extract(host []byte) ([]byte, error) {
	op := e.begin("extract", "")
	payload, err := e.extract(op, host)
	if err != nil {
		return nil, err
	}
	op.done()
	return payload, nil
}

// open detects the host format and decodes it into a carrier surface.
func (e *Engine) open(op *operation, host []byte) (carrier.Surface, format.Kind, error) {
	op.to(stateDetecting)
	kind := format.Detect(host)
	if kind == format.Unknown {
		return nil, kind, op.fail(ErrUnsupportedType, errors.New("no known signature"))
	}

	op.to(stateDecoding)
	var (
		surface carrier.Surface
		err     error
	)
	switch kind {
	case format.Raster:
		surface, err = raster.Open(host, e.config.Raster.MaxPixels)
	case format.Document:
		surface, err = document.Open(host, e.config.Document.options())
	}
	if err != nil {
		return nil, kind, op.fail(classify(err, ErrParse), err)
	}
	e.logger.Debugf("%s: %s host, capacity %s bits", op, kind, humanize.Comma(int64(surface.Capacity())))
	return surface, kind, nil
}

func (e *Engine) embed(op *operation, host, payload []byte) ([]byte, error) {
	surface, _, err := e.open(op, host)
	if err != nil {
		return nil, err
	}

	op.to(stateCapacityCheck)
	frame, err := e.codec.Encode(payload)
	if err != nil {
		return nil, op.fail(classify(err, ErrInvalidInput), err)
	}
	bits := bitstream.Bits(frame)
	if bits.Len() > surface.Capacity() {
		return nil, op.fail(ErrInsufficientCapacity, errors.Errorf(
			"frame needs %s bits, host holds %s (max payload %s)",
			humanize.Comma(int64(bits.Len())), humanize.Comma(int64(surface.Capacity())),
			humanize.Bytes(uint64(e.codec.MaxPayload(surface.Capacity()/8)))))
	}

	op.to(stateEmbedding)
	if err := surface.Embed(bits); err != nil {
		return nil, op.fail(classify(err, ErrUnsupportedStructure), err)
	}

	op.to(stateRewriting)
	out, err := surface.Encode()
	if err != nil {
		return nil, op.fail(classify(err, ErrParse), err)
	}
	return out, nil
}

func (e *Engine) extract(op *operation, host []byte) ([]byte, error) {
	surface, _, err := e.open(op, host)
	if err != nil {
		return nil, err
	}

	op.to(stateExtracting)
	src, err := surface.Extract()
	if err != nil {
		return nil, op.fail(classify(err, ErrParse), err)
	}

	op.to(stateCodecDecoding)
	shards, err := e.codec.Unframe(src)
	if err != nil {
		return nil, op.fail(classify(err, ErrNotFound), err)
	}
	if intact := shards.Intact(); intact < len(shards.Available) {
		e.logger.Debugf("%s: %d of %d shards intact", op, intact, len(shards.Available))
	}
	payload, err := e.codec.Decode(shards)
	if err != nil {
		return nil, op.fail(classify(err, ErrUnrecoverable), err)
	}
	return payload, nil
}

// operation traces the state machine of one call at debug level.
type operation struct {
	name   string
	path   string
	state  state
	start  time.Time
	logger logger.Logger
}

type state string

const (
	stateIdle          state = "Idle"
	stateDetecting     state = "Detecting"
	stateDecoding      state = "Decoding"
	stateCapacityCheck state = "CapacityCheck"
	stateEmbedding     state = "Embedding"
	stateExtracting    state = "Extracting"
	stateRewriting     state = "Rewriting"
	stateCodecDecoding state = "CodecDecoding"
	stateDone          state = "Done"
)

func (e *Engine) begin(name, path string) *operation {
	return &operation{
		name:   name,
		path:   path,
		state:  stateIdle,
		start:  time.Now(),
		logger: e.logger,
	}
}

func (o *operation) String() string {
	if o.path == "" {
		return o.name
	}
	return o.name + " " + o.path
}

func (o *operation) to(s state) {
	o.logger.Debugf("%s: %s -> %s", o, o.state, s)
	o.state = s
}

func (o *operation) elapsed() time.Duration {
	return time.Since(o.start)
}

func (o *operation) done() {
	o.to(stateDone)
}

// fail records the terminal state and returns the typed error.
func (o *operation) fail(kind, err error) error {
	o.logger.Debugf("%s: %s -> Fail:%s (%v)", o, o.state, kind, err)
	return &Error{Kind: kind, Path: o.path, Err: err}
}
