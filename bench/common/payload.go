package common

import (
	"crypto/rand"
	"fmt"
	"io/ioutil"

	"github.com/mirseo/updrm/engine/format"
	"github.com/mirseo/updrm/internal/fixture"
)

// PreGeneratePayloads creates all payloads upfront so benchmarks measure
// embedding without data generation time.
func PreGeneratePayloads(count, size int) [][]byte {
	template := make([]byte, size)
	rand.Read(template)

	payloads := make([][]byte, count)
	for i := range payloads {
		payloads[i] = generatePayload(size, template)
	}
	return payloads
}

// generatePayload creates a new payload by copying and slightly modifying the template.
func generatePayload(size int, template []byte) []byte {
	payload := make([]byte, size)
	copy(payload, template)
	if size > 8 {
		rand.Read(payload[:8])
	}
	return payload
}

// LoadHost reads the host file at path, or generates one of the given kind
// when path is empty: a side x side PNG or a PDF with pages pages.
func LoadHost(path, kind string, side, pages int) ([]byte, error) {
	if path != "" {
		return ioutil.ReadFile(path)
	}
	switch kind {
	case format.Raster.String():
		if side <= 0 {
			return nil, fmt.Errorf("side must be > 0")
		}
		return fixture.PNG(side, side), nil
	case format.Document.String():
		if pages <= 0 {
			return nil, fmt.Errorf("pages must be > 0")
		}
		return fixture.PDF(pages), nil
	}
	return nil, fmt.Errorf("unknown host kind %q", kind)
}

// Split divides n items among workers, giving the remainder to the last
// one. It returns the [start, end) range of worker i.
func Split(n, workers, i int) (int, int) {
	per := n / workers
	start := i * per
	end := start + per
	if i == workers-1 {
		end += n % workers
	}
	return start, end
}
