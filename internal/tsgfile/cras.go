package tsgfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/jpeg"
	"os"
)

// crasMagic opens a tray imagery file.
const crasMagic = "CRAS"

// readCrasFile decodes the tray imagery file: a fixed header, a per-section
// line-count/byte-length index, then one JPEG block per imaged section. The
// section images share a width and are stacked vertically into one raster.
//
// Layout, all integers little-endian int32:
//
//	"CRAS"  version  nsections
//	nsections x (nlines, jpegBytes)
//	concatenated JPEG blocks
func readCrasFile(path string) (*Cras, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tsgfile: reading %s: %v", path, err)
	}
	if len(data) < 12 || string(data[:4]) != crasMagic {
		return nil, fmt.Errorf("%w: %s is not a cras imagery file", ErrFormat, path)
	}
	version := int(int32(binary.LittleEndian.Uint32(data[4:])))
	if version != 1 {
		return nil, fmt.Errorf("%w: %s has unsupported cras version %d", ErrFormat, path, version)
	}
	nsections := int(int32(binary.LittleEndian.Uint32(data[8:])))
	if nsections <= 0 {
		return nil, fmt.Errorf("%w: %s declares %d sections", ErrFormat, path, nsections)
	}
	off := 12
	if len(data) < off+8*nsections {
		return nil, fmt.Errorf("%w: %s is truncated in the section index", ErrFormat, path)
	}
	lines := make([]int, nsections)
	sizes := make([]int, nsections)
	for i := 0; i < nsections; i++ {
		lines[i] = int(int32(binary.LittleEndian.Uint32(data[off:])))
		sizes[i] = int(int32(binary.LittleEndian.Uint32(data[off+4:])))
		off += 8
	}

	cras := &Cras{}
	for i := 0; i < nsections; i++ {
		if off+sizes[i] > len(data) {
			return nil, fmt.Errorf("%w: %s is truncated in section %d", ErrFormat, path, i)
		}
		img, err := jpeg.Decode(bytes.NewReader(data[off : off+sizes[i]]))
		if err != nil {
			return nil, fmt.Errorf("%w: %s section %d: %v", ErrFormat, path, i, err)
		}
		off += sizes[i]
		if err := appendSection(cras, img, lines[i], i, path); err != nil {
			return nil, err
		}
	}
	return cras, nil
}

// appendSection stacks one decoded section image onto the raster, checking
// that its height matches the declared line count and its width matches the
// sections already read.
func appendSection(cras *Cras, img image.Image, declaredLines, idx int, path string) error {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if h != declaredLines {
		return fmt.Errorf("%w: %s section %d decodes to %d lines, header declares %d", ErrFormat, path, idx, h, declaredLines)
	}
	if cras.Width == 0 {
		cras.Width = w
	} else if w != cras.Width {
		return fmt.Errorf("%w: %s section %d is %d pixels wide, earlier sections are %d", ErrFormat, path, idx, w, cras.Width)
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			cras.Pixels = append(cras.Pixels, uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}
	cras.Height += h
	cras.Sections = append(cras.Sections, CrasSection{Lines: h})
	return nil
}
