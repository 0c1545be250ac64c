// Package profilometer reads the high-resolution surface-height trace file
// recorded alongside a hyperspectral core scan. The trace is sampled far more
// densely than the spectra (a fixed number of readings per spectral sample)
// and can optionally be aggregated down to one value per sample so that it
// aligns directly with the spectral axis.
package profilometer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
)

// ErrFormat indicates a malformed or unsupported profilometer file.
var ErrFormat = errors.New("profilometer: malformed file")

const (
	// magic is the prefix of the 20-byte format identifier block.
	magic = "CoreLog"

	idSize   = 20
	nameSize = 12
	padSize  = 4

	// headerSize covers the identifier, three int32 counts, two float32
	// bounds, the instrument-name block and the zero padding.
	headerSize = idSize + 3*4 + 2*4 + nameSize + padSize
)

// Header describes the fixed-size preamble of a profilometer trace file.
type Header struct {
	// ID is the format identifier string, e.g. "CoreLog high-res 1.0".
	ID string

	// Samples is the number of spectral samples the trace covers.
	Samples int

	// SectionLines is the number of imaged lines per tray section.
	SectionLines int

	// SubSamples is the number of trace readings per spectral sample.
	SubSamples int

	// Min and Max are the declared measurement bounds. Readings below Min
	// are sentinel-coded "no data" values.
	Min float32
	Max float32
}

// Load reads a profilometer trace file and returns the height readings as a
// float64 sequence with NaN marking missing values.
//
// Parameters:
//   - path: the trace file (conventionally <dataset>_tsg_hires.dat)
//   - perSample: when true, the dense trace is aggregated to one mean value
//     per spectral sample, ignoring missing readings; a sample whose
//     readings are all missing yields NaN, never an error
//
// Returns:
//   - the trace, dense or per-sample, or an error wrapping ErrFormat when
//     the header or padding is malformed
func Load(path string, perSample bool) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profilometer: reading %s: %v", path, err)
	}
	hdr, body, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	trace := decode(body, hdr.Min)
	if !perSample {
		return trace, nil
	}
	return aggregate(trace, hdr.SubSamples)
}

// parse splits raw file contents into the decoded header and the reading
// payload, validating the fixed-size preamble.
func parse(data []byte) (Header, []byte, error) {
	var hdr Header
	if len(data) < headerSize {
		return hdr, nil, fmt.Errorf("%w: %d bytes is shorter than the %d byte header", ErrFormat, len(data), headerSize)
	}
	hdr.ID = strings.TrimRight(string(data[:idSize]), "\x00 ")
	if !strings.HasPrefix(hdr.ID, magic) {
		return hdr, nil, fmt.Errorf("%w: identifier %q", ErrFormat, hdr.ID)
	}
	off := idSize
	hdr.Samples = int(int32(binary.LittleEndian.Uint32(data[off:])))
	hdr.SectionLines = int(int32(binary.LittleEndian.Uint32(data[off+4:])))
	hdr.SubSamples = int(int32(binary.LittleEndian.Uint32(data[off+8:])))
	off += 12
	hdr.Min = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
	hdr.Max = math.Float32frombits(binary.LittleEndian.Uint32(data[off+4:]))
	off += 8 + nameSize

	// The four padding bytes must all be zero; anything else indicates a
	// corrupted or unsupported file.
	for i := 0; i < padSize; i++ {
		if data[off+i] != 0 {
			return hdr, nil, fmt.Errorf("%w: nonzero padding byte 0x%02x at offset %d", ErrFormat, data[off+i], off+i)
		}
	}
	body := data[headerSize:]
	if len(body)%4 != 0 {
		return hdr, nil, fmt.Errorf("%w: %d trailing bytes are not a float32 sequence", ErrFormat, len(body))
	}
	if hdr.SubSamples <= 0 {
		return hdr, nil, fmt.Errorf("%w: sub-samples per sample is %d", ErrFormat, hdr.SubSamples)
	}
	return hdr, body, nil
}

// decode converts the little-endian float32 payload to float64, replacing
// any reading below the declared minimum bound with NaN.
func decode(body []byte, min float32) []float64 {
	trace := make([]float64, len(body)/4)
	for i := range trace {
		v := math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
		if v < min {
			trace[i] = math.NaN()
		} else {
			trace[i] = float64(v)
		}
	}
	return trace
}

// aggregate reduces the dense trace to one value per spectral sample by
// taking the mean of each sample's readings, ignoring NaN entries. A sample
// whose readings are all missing aggregates to NaN.
func aggregate(trace []float64, subSamples int) ([]float64, error) {
	if len(trace)%subSamples != 0 {
		return nil, fmt.Errorf("%w: %d readings do not divide into groups of %d", ErrFormat, len(trace), subSamples)
	}
	out := make([]float64, len(trace)/subSamples)
	for i := range out {
		sum, n := 0.0, 0
		for _, v := range trace[i*subSamples : (i+1)*subSamples] {
			if !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 {
			out[i] = math.NaN()
		} else {
			out[i] = sum / float64(n)
		}
	}
	return out, nil
}
