package tsgfile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrFormat indicates a malformed dataset file.
var ErrFormat = errors.New("tsgfile: malformed dataset file")

const (
	nirSuffix = "_tsg.tsg"
	tirSuffix = "_tsg_tir.tsg"
)

// ReadPackage reads a dataset directory into raw tables and arrays.
//
// Parameters:
//   - dir: the dataset directory
//   - readCras: whether to decode the tray imagery when present
//
// Returns:
//   - the parsed package; subsets or imagery absent from the directory are
//     left nil rather than reported as errors
func ReadPackage(dir string, readCras bool) (*Package, error) {
	base, err := findBase(dir)
	if err != nil {
		return nil, err
	}
	pkg := &Package{Name: strings.TrimSuffix(base, "_tsg")}

	nirHeader := filepath.Join(dir, base+".tsg")
	if fileExists(nirHeader) {
		pkg.NIR, err = readSpectra("NIR", nirHeader, filepath.Join(dir, base+".bip"))
		if err != nil {
			return nil, err
		}
	}
	tirHeader := filepath.Join(dir, base+"_tir.tsg")
	if fileExists(tirHeader) {
		pkg.TIR, err = readSpectra("TIR", tirHeader, filepath.Join(dir, base+"_tir.bip"))
		if err != nil {
			return nil, err
		}
	}
	if readCras {
		crasPath := filepath.Join(dir, base+"_cras.bip")
		if fileExists(crasPath) {
			pkg.Cras, err = readCrasFile(crasPath)
			if err != nil {
				return nil, err
			}
		}
	}
	hiresPath := filepath.Join(dir, base+"_hires.dat")
	if fileExists(hiresPath) {
		pkg.ProfilometerPath = hiresPath
	}
	return pkg, nil
}

// findBase locates the "<name>_tsg" file prefix in a dataset directory.
// Directories holding only a thermal subset carry the TIR header alone.
func findBase(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("tsgfile: reading %s: %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, n := range names {
		if strings.HasSuffix(n, nirSuffix) {
			return strings.TrimSuffix(n, ".tsg"), nil
		}
	}
	for _, n := range names {
		if strings.HasSuffix(n, tirSuffix) {
			return strings.TrimSuffix(n, "_tir.tsg"), nil
		}
	}
	return "", fmt.Errorf("%w: no header file in %s", ErrFormat, dir)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// header section names of the .tsg text file
const (
	sectionSpectrum = "spectrum header"
	sectionHeaders  = "sample headers"
	sectionScalars  = "scalars"
	classPrefix     = "class "
)

// section is one parsed block of a .tsg header file: key/value pairs plus
// any tab-separated data rows.
type section struct {
	name string
	kv   map[string]string
	rows [][]string
}

// readSpectra parses one spectral subset from its text header and binary
// spectral matrix.
func readSpectra(name, headerPath, bipPath string) (*Spectra, error) {
	sections, err := readSections(headerPath)
	if err != nil {
		return nil, err
	}
	spec := &Spectra{Name: name}

	hdr, ok := sections[sectionSpectrum]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no [%s] section", ErrFormat, headerPath, sectionSpectrum)
	}
	samples, err := headerInt(hdr, "samples", headerPath)
	if err != nil {
		return nil, err
	}
	bands, err := headerInt(hdr, "bands", headerPath)
	if err != nil {
		return nil, err
	}
	start, err := headerFloat(hdr, "start", headerPath)
	if err != nil {
		return nil, err
	}
	end, err := headerFloat(hdr, "end", headerPath)
	if err != nil {
		return nil, err
	}
	spec.Wavelength = floats.Span(make([]float64, bands), start, end)

	if sh, ok := sections[sectionHeaders]; ok {
		spec.SampleHeaders, err = tableFromSection(sh, samples, true, headerPath)
		if err != nil {
			return nil, err
		}
	} else {
		return nil, fmt.Errorf("%w: %s has no [%s] section", ErrFormat, headerPath, sectionHeaders)
	}
	if sc, ok := sections[sectionScalars]; ok {
		spec.Scalars, err = tableFromSection(sc, samples, false, headerPath)
		if err != nil {
			return nil, err
		}
	} else {
		return nil, fmt.Errorf("%w: %s has no [%s] section", ErrFormat, headerPath, sectionScalars)
	}

	var classNames []string
	for sname := range sections {
		if strings.HasPrefix(sname, classPrefix) {
			classNames = append(classNames, sname)
		}
	}
	sort.Strings(classNames)
	for _, sname := range classNames {
		lookup, err := classFromSection(sections[sname], headerPath)
		if err != nil {
			return nil, err
		}
		spec.Classes = append(spec.Classes, lookup)
	}

	spec.Spectra, err = readBip(bipPath, samples, bands)
	if err != nil {
		return nil, err
	}
	return spec, nil
}

// readSections splits a .tsg header file into its bracketed sections. Lines
// of the form "key = value" populate the section's key/value map; any other
// non-empty line is kept as a tab-separated data row.
func readSections(path string) (map[string]*section, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tsgfile: opening %s: %v", path, err)
	}
	defer f.Close()

	sections := make(map[string]*section)
	var cur *section
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(strings.TrimSpace(line), "]") {
			name := strings.TrimSpace(line)
			name = strings.TrimSuffix(strings.TrimPrefix(name, "["), "]")
			cur = &section{name: name, kv: make(map[string]string)}
			sections[name] = cur
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("%w: %s has content before the first section", ErrFormat, path)
		}
		if key, value, ok := splitKeyValue(line); ok {
			cur.kv[key] = value
			continue
		}
		cur.rows = append(cur.rows, strings.Split(line, "\t"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("tsgfile: reading %s: %v", path, err)
	}
	return sections, nil
}

// splitKeyValue recognizes "key = value" lines. Data rows are tab-separated
// and never contain " = ", so the two forms cannot collide.
func splitKeyValue(line string) (key, value string, ok bool) {
	if strings.Contains(line, "\t") {
		return "", "", false
	}
	i := strings.Index(line, "=")
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}

func headerInt(s *section, key, path string) (int, error) {
	raw, ok := s.kv[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is missing %q", ErrFormat, path, key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s has %s = %q", ErrFormat, path, key, raw)
	}
	return v, nil
}

func headerFloat(s *section, key, path string) (float64, error) {
	raw, ok := s.kv[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is missing %q", ErrFormat, path, key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s has %s = %q", ErrFormat, path, key, raw)
	}
	return v, nil
}

// tableFromSection builds a table from a section's "fields" declaration and
// data rows. When forceText is set every column stays text (sample headers
// carry heterogeneous values whose typing is a downstream policy); otherwise
// a column becomes numeric when every value parses as a float, with empty
// cells as NaN.
func tableFromSection(s *section, rows int, forceText bool, path string) (*Table, error) {
	fieldLine, ok := s.kv["fields"]
	if !ok {
		return nil, fmt.Errorf("%w: [%s] in %s has no fields declaration", ErrFormat, s.name, path)
	}
	fields := strings.Split(fieldLine, "\t")
	if len(s.rows) != rows {
		return nil, fmt.Errorf("%w: [%s] in %s has %d rows for %d samples", ErrFormat, s.name, path, len(s.rows), rows)
	}
	cells := make([][]string, len(fields))
	for i := range cells {
		cells[i] = make([]string, rows)
	}
	for r, row := range s.rows {
		if len(row) != len(fields) {
			return nil, fmt.Errorf("%w: [%s] in %s row %d has %d cells for %d fields", ErrFormat, s.name, path, r, len(row), len(fields))
		}
		for c, cell := range row {
			cells[c][r] = cell
		}
	}
	table := &Table{}
	for i, name := range fields {
		table.Columns = append(table.Columns, buildColumn(name, cells[i], forceText))
	}
	return table, nil
}

// buildColumn types a raw column: numeric when every non-empty cell parses
// as a float, text otherwise.
func buildColumn(name string, cells []string, forceText bool) Column {
	if !forceText {
		vals := make([]float64, len(cells))
		numeric := true
		for i, cell := range cells {
			if cell == "" {
				vals[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				numeric = false
				break
			}
			vals[i] = v
		}
		if numeric {
			return Column{Name: name, Floats: vals}
		}
	}
	return Column{Name: name, Strings: append([]string(nil), cells...)}
}

// classFromSection parses one "[class <Name>]" lookup: "code = label" lines.
func classFromSection(s *section, path string) (ClassLookup, error) {
	lookup := ClassLookup{Name: strings.TrimPrefix(s.name, classPrefix)}
	codes := make([]int, 0, len(s.kv))
	byCode := make(map[int]string, len(s.kv))
	for key, label := range s.kv {
		code, err := strconv.Atoi(key)
		if err != nil {
			return lookup, fmt.Errorf("%w: [%s] in %s has class code %q", ErrFormat, s.name, path, key)
		}
		codes = append(codes, code)
		byCode[code] = label
	}
	sort.Ints(codes)
	for _, code := range codes {
		lookup.Entries = append(lookup.Entries, ClassEntry{Code: code, Label: byCode[code]})
	}
	return lookup, nil
}

// readBip reads a binary spectral matrix: little-endian float32 values in
// row-major (sample, band) order.
func readBip(path string, samples, bands int) (*mat.Dense, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tsgfile: reading %s: %v", path, err)
	}
	want := samples * bands * 4
	if len(data) != want {
		return nil, fmt.Errorf("%w: %s holds %d bytes for %dx%d spectra (want %d)", ErrFormat, path, len(data), samples, bands, want)
	}
	values := make([]float64, samples*bands)
	for i := range values {
		values[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	}
	return mat.NewDense(samples, bands, values), nil
}
