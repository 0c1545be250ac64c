// Package zarr writes composed datasets as zarr v2 directory stores. Each
// coordinate and data variable becomes one zarr array holding a single
// zlib-compressed chunk, annotated with the xarray _ARRAY_DIMENSIONS
// convention so the store round-trips into labeled tooling; dataset-level
// classification lookups land in the root group attributes.
//
// The writer never resolves conflicts with an existing store at the
// destination; overwrite semantics are the caller's responsibility.
package zarr

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/pkg/dataset"
)

// compressionLevel is the zlib level used for chunk payloads.
const compressionLevel = 5

// arrayMeta is the .zarray metadata document of one array.
type arrayMeta struct {
	ZarrFormat int             `json:"zarr_format"`
	Shape      []int           `json:"shape"`
	Chunks     []int           `json:"chunks"`
	DType      string          `json:"dtype"`
	Compressor compressorMeta  `json:"compressor"`
	FillValue  json.RawMessage `json:"fill_value"`
	Filters    any             `json:"filters"`
	Order      string          `json:"order"`
}

type compressorMeta struct {
	ID    string `json:"id"`
	Level int    `json:"level"`
}

// Save writes the dataset as a zarr group at path.
//
// Parameters:
//   - ds: the composed dataset
//   - path: the store directory, created if absent
func Save(ds *dataset.Dataset, path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("zarr: creating store %s: %v", path, err)
	}
	if err := writeJSON(filepath.Join(path, ".zgroup"), map[string]int{"zarr_format": 2}); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(path, ".zattrs"), groupAttrs(ds)); err != nil {
		return err
	}
	for _, name := range ds.CoordNames() {
		if err := writeArray(path, name, ds.Coord(name)); err != nil {
			return err
		}
	}
	for _, name := range ds.VarNames() {
		if err := writeArray(path, name, ds.Var(name)); err != nil {
			return err
		}
	}
	return nil
}

// groupAttrs renders the classification lookups as code/label pair lists,
// keyed by scalar name.
func groupAttrs(ds *dataset.Dataset) map[string][][2]any {
	attrs := make(map[string][][2]any)
	for _, name := range ds.AttrNames() {
		pairs := make([][2]any, 0, len(ds.Attr(name)))
		for _, e := range ds.Attr(name) {
			pairs = append(pairs, [2]any{e.Code, e.Label})
		}
		attrs[name] = pairs
	}
	return attrs
}

// writeArray writes one array: its .zarray metadata, its _ARRAY_DIMENSIONS
// attribute and a single chunk spanning the full shape.
func writeArray(store, name string, a *dataset.Array) error {
	dir := filepath.Join(store, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("zarr: creating array %s: %v", name, err)
	}

	var payload []byte
	var dtype string
	var fill json.RawMessage
	if a.IsText() {
		width := maxRunes(a.Strings())
		payload = encodeStrings(a.Strings(), width)
		dtype = fmt.Sprintf("<U%d", width)
		fill = json.RawMessage(`""`)
	} else {
		payload = encodeFloats(a.Floats())
		dtype = "<f8"
		fill = json.RawMessage(`"NaN"`)
	}

	meta := arrayMeta{
		ZarrFormat: 2,
		Shape:      a.Shape(),
		Chunks:     a.Shape(),
		DType:      dtype,
		Compressor: compressorMeta{ID: "zlib", Level: compressionLevel},
		FillValue:  fill,
		Order:      "C",
	}
	if err := writeJSON(filepath.Join(dir, ".zarray"), meta); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, ".zattrs"), map[string][]string{"_ARRAY_DIMENSIONS": a.Dims()}); err != nil {
		return err
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, compressionLevel)
	if err != nil {
		return fmt.Errorf("zarr: compressing %s: %v", name, err)
	}
	if _, err := zw.Write(payload); err != nil {
		return fmt.Errorf("zarr: compressing %s: %v", name, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("zarr: compressing %s: %v", name, err)
	}
	return os.WriteFile(filepath.Join(dir, chunkKey(len(a.Shape()))), buf.Bytes(), 0644)
}

// chunkKey names the single chunk of a rank-n array: "0", "0.0", ...
func chunkKey(rank int) string {
	parts := make([]string, rank)
	for i := range parts {
		parts[i] = "0"
	}
	return strings.Join(parts, ".")
}

// encodeFloats renders float64 values little-endian.
func encodeFloats(vals []float64) []byte {
	out := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
	}
	return out
}

// encodeStrings renders strings as fixed-width UTF-32LE, the layout of a
// numpy little-endian unicode column, zero-padded to width runes.
func encodeStrings(vals []string, width int) []byte {
	out := make([]byte, 0, 4*width*len(vals))
	for _, s := range vals {
		runes := []rune(s)
		cell := make([]byte, 4*width)
		for i := 0; i < len(runes) && i < width; i++ {
			binary.LittleEndian.PutUint32(cell[i*4:], uint32(runes[i]))
		}
		out = append(out, cell...)
	}
	return out
}

// maxRunes returns the longest rune length among the values, at least 1.
func maxRunes(vals []string) int {
	width := 1
	for _, s := range vals {
		if n := len([]rune(s)); n > width {
			width = n
		}
	}
	return width
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("zarr: encoding %s: %v", path, err)
	}
	return os.WriteFile(path, data, 0644)
}
