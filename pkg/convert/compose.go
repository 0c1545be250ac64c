package convert

import (
	"fmt"
	"sort"
	"strings"

	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/internal/tsgfile"
	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/pkg/dataset"
)

// promoteToCoords lists the identity/provenance scalars attached as
// sample-axis coordinates instead of data variables: they describe which
// hole and scan the samples belong to, and keeping them with the
// coordinates leaves the spectral array first among the data variables.
var promoteToCoords = map[string]bool{
	"HoleID": true,
	"Date":   true,
}

// dropVars lists scalars excluded from the composed dataset: either
// duplicated by a coordinate or trivially derivable from one.
var dropVars = []string{
	"Tray",
	"Section",
	"Depth (m)",
	"SecDist (mm)",
	"TraySamp",
	"SecSamp",
}

// patternGroups are the name prefixes of the instrument's repeated
// band-header column blocks (mineral group, abundance, weighting, fit error,
// signal quality and the water channels). Arrangement keeps each block
// contiguous and internally sorted.
var patternGroups = []string{
	"Grp",
	"Min",
	"Wt",
	"Error",
	"SNR",
	"NIL_Stat",
	"Cust",
	"Bound_Water",
	"Unbound_Water",
}

// Compose merges the assembled pieces into the canonical dataset and applies
// the human-oriented variable arrangement. The arrangement is presentation
// only: values and axis alignment are untouched, and persistence must not
// rely on it.
//
// Returns:
//   - the composed dataset, with Spectra as the first data variable
func Compose(asm *Assembly, scalars *Scalars, img *Imagery, classes []tsgfile.ClassLookup) (*dataset.Dataset, error) {
	ds := dataset.New()

	// Index coordinates define the axes and must land before anything
	// attached to them.
	for _, name := range asm.Coords.Names() {
		arr := asm.Coords.Array(name)
		if arr.Dims()[0] == name {
			if err := ds.SetCoord(name, arr); err != nil {
				return nil, err
			}
		}
	}
	if scalars.Feature != nil {
		if err := ds.SetCoord("feature", scalars.Feature); err != nil {
			return nil, err
		}
	}
	if img != nil {
		for _, c := range []Variable{{"depth", img.Depth}, {"horizontal", img.Horizontal}, {"channel", img.Channel}} {
			if err := ds.SetCoord(c.Name, c.Array); err != nil {
				return nil, err
			}
		}
	}
	for _, name := range asm.Coords.Names() {
		arr := asm.Coords.Array(name)
		if arr.Dims()[0] != name {
			if err := ds.SetCoord(name, arr); err != nil {
				return nil, err
			}
		}
	}

	if err := ds.SetVar("Spectra", asm.Spectra); err != nil {
		return nil, err
	}
	if asm.Lidar != nil {
		if err := ds.SetVar("Lidar", asm.Lidar); err != nil {
			return nil, err
		}
	}
	// In depth mode the scalars follow their samples through the same
	// gather that produced the spectral array.
	alignScalar := func(a *dataset.Array) (*dataset.Array, error) {
		if !asm.DepthIndexed {
			return a, nil
		}
		return reindexArray(a, asm.order, "holedepth")
	}
	for _, v := range scalars.Vars {
		arr, err := alignScalar(v.Array)
		if err != nil {
			return nil, err
		}
		if promoteToCoords[v.Name] {
			if err := ds.SetCoord(v.Name, arr); err != nil {
				return nil, err
			}
			continue
		}
		if err := ds.SetVar(v.Name, arr); err != nil {
			return nil, err
		}
	}
	for _, v := range scalars.Families {
		arr, err := alignScalar(v.Array)
		if err != nil {
			return nil, err
		}
		if err := ds.SetVar(v.Name, arr); err != nil {
			return nil, err
		}
	}
	if img != nil {
		if err := ds.SetVar("Image", img.Image); err != nil {
			return nil, err
		}
	}
	for _, class := range classes {
		entries := make([]dataset.ClassEntry, len(class.Entries))
		for i, e := range class.Entries {
			entries[i] = dataset.ClassEntry{Code: e.Code, Label: e.Label}
		}
		ds.SetAttr(class.Name, entries)
	}

	return arrange(ds)
}

// arrange produces the canonical variable ordering: the spectral array,
// imagery, the three feature-family arrays, the pattern-matched band-header
// blocks each sorted by name, then everything else sorted, with the
// duplicative scalars dropped.
func arrange(ds *dataset.Dataset) (*dataset.Dataset, error) {
	dropped := make(map[string]bool, len(dropVars))
	for _, name := range dropVars {
		dropped[name] = true
	}

	used := make(map[string]bool)
	var ordered []string
	take := func(name string) {
		if ds.HasVar(name) && !used[name] && !dropped[name] {
			ordered = append(ordered, name)
			used[name] = true
		}
	}

	for _, name := range []string{"Spectra", "Image", "Centres", "Depths", "Widths"} {
		take(name)
	}
	for _, prefix := range patternGroups {
		var block []string
		for _, name := range ds.VarNames() {
			if !used[name] && !dropped[name] && strings.HasPrefix(name, prefix) {
				block = append(block, name)
			}
		}
		sort.Strings(block)
		for _, name := range block {
			take(name)
		}
	}
	var rest []string
	for _, name := range ds.VarNames() {
		if !used[name] && !dropped[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	ordered = append(ordered, rest...)

	out, err := ds.Select(ordered...)
	if err != nil {
		return nil, fmt.Errorf("convert: arranging variables: %v", err)
	}
	return out, nil
}
