package engine

import (
	"fmt"
	"io/ioutil"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/mirseo/updrm/engine/format"
)

// Info describes a host file's capacity and whether it carries a frame.
type Info struct {
	Format       format.Kind
	CapacityBits int
	MaxPayload   int
	Embedded     bool
	IntactShards int
	TotalShards  int
}

// String returns a human-readable report.
func (i *Info) String() string {
	str := fmt.Sprintf("format: %s\ncapacity: %s bits\nmax payload: %s (%s bytes)\n",
		i.Format, humanize.Comma(int64(i.CapacityBits)),
		humanize.IBytes(uint64(i.MaxPayload)), humanize.Comma(int64(i.MaxPayload)))
	if !i.Embedded {
		return str + "embedded: no\n"
	}
	return str + fmt.Sprintf("embedded: yes, %s of %d intact\n",
		english.Plural(i.IntactShards, "shard", ""), i.TotalShards)
}

// Inspect reports the capacity of host and whether it carries a frame
// header. Shard corruption is reported, not treated as an error.
func (e *Engine) Inspect(host []byte) (*Info, error) {
	op := e.begin("inspect", "")
	info, err := e.inspect(op, host)
	if err != nil {
		return nil, err
	}
	op.done()
	return info, nil
}

// InspectFile is Inspect for the host file at path.
func (e *Engine) InspectFile(path string) (*Info, error) {
	op := e.begin("inspect", path)
	host, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, op.fail(ErrAccess, err)
	}
	info, err := e.inspect(op, host)
	if err != nil {
		return nil, err
	}
	op.done()
	return info, nil
}

func (e *Engine) inspect(op *operation, host []byte) (*Info, error) {
	surface, kind, err := e.open(op, host)
	if err != nil {
		return nil, err
	}
	info := &Info{
		Format:       kind,
		CapacityBits: surface.Capacity(),
		MaxPayload:   e.codec.MaxPayload(surface.Capacity() / 8),
		TotalShards:  e.codec.DataShards() + e.codec.ParityShards(),
	}

	op.to(stateExtracting)
	src, err := surface.Extract()
	if err != nil {
		if classify(err, ErrParse) == ErrNotFound {
			return info, nil
		}
		return nil, op.fail(classify(err, ErrParse), err)
	}
	op.to(stateCodecDecoding)
	shards, err := e.codec.Unframe(src)
	if err != nil {
		return info, nil
	}
	info.Embedded = true
	info.IntactShards = shards.Intact()
	return info, nil
}
