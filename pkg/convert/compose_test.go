package convert

import (
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/internal/tsgfile"
)

func TestComposeArrangement(t *testing.T) {
	coords := testCoords(t, []string{"0", "1"}, []tsgfile.Column{
		{Name: "T", Strings: []string{"T1", "T1"}},
		{Name: "H", Strings: []string{"WB-1", "WB-1"}},
	})
	// Scalar columns deliberately out of order, including variables from the
	// drop list and the promoted provenance fields.
	table := &tsgfile.Table{Columns: []tsgfile.Column{
		{Name: "Wt1 sTSAS", Floats: []float64{1, 2}},
		{Name: "TraySamp", Floats: []float64{1, 2}},
		{Name: "Grade", Floats: []float64{1, 2}},
		{Name: "HoleID", Strings: []string{"WB-1", "WB-1"}},
		{Name: "Grp1 sTSAS", Floats: []float64{1, 2}},
		{Name: "Date", Strings: []string{"2023-01-02", "2023-01-02"}},
		{Name: "Min1 sTSAS", Floats: []float64{1, 2}},
		{Name: "Tray", Strings: []string{"T1", "T1"}},
		{Name: "Error sTSAS", Floats: []float64{1, 2}},
		{Name: "Albedo", Floats: []float64{0.3, 0.4}},
		{Name: "Centre1", Floats: []float64{2200, 2210}},
		{Name: "Depth1", Floats: []float64{0.1, 0.2}},
		{Name: "Width1", Floats: []float64{10, 11}},
	}}
	scalars, err := NormalizeScalars(table, coords)
	if err != nil {
		t.Fatalf("NormalizeScalars failed: %v", err)
	}
	asm, err := AssembleSpectra(mat.NewDense(2, 2, []float64{1, 2, 3, 4}), coords, []float64{7, 8}, IndexSample)
	if err != nil {
		t.Fatalf("AssembleSpectra failed: %v", err)
	}
	classes := []tsgfile.ClassLookup{{Name: "Grade", Entries: []tsgfile.ClassEntry{{Code: 1, Label: "low"}}}}

	ds, err := Compose(asm, scalars, nil, classes)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	want := []string{
		"Spectra", "Centres", "Depths", "Widths",
		"Grp1 sTSAS", "Min1 sTSAS", "Wt1 sTSAS", "Error sTSAS",
		"Albedo", "Grade", "Lidar",
	}
	if got := ds.VarNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected variable order %v, got %v", want, got)
	}

	// Provenance lives with the coordinates, not the data variables.
	if ds.Coord("HoleID") == nil || ds.Coord("Date") == nil {
		t.Errorf("Expected HoleID and Date to become coordinates")
	}
	// Coordinate-duplicating scalars are gone.
	for _, name := range []string{"Tray", "TraySamp"} {
		if ds.HasVar(name) {
			t.Errorf("Expected %s to be dropped", name)
		}
	}
	if ds.Coord("tray") == nil {
		t.Errorf("Expected the tray coordinate to survive")
	}

	attr := ds.Attr("Grade")
	if len(attr) != 1 || attr[0].Code != 1 || attr[0].Label != "low" {
		t.Errorf("Expected the Grade class lookup in the attributes, got %v", attr)
	}
}

// Spectra leads the data variables regardless of how the scalar table was
// ordered; the arrangement never touches values or alignment.
func TestComposeSpectraAlwaysFirst(t *testing.T) {
	coords := testCoords(t, []string{"0"}, nil)
	table := &tsgfile.Table{Columns: []tsgfile.Column{
		{Name: "AAA", Floats: []float64{1}},
		{Name: "AAB", Floats: []float64{2}},
	}}
	scalars, err := NormalizeScalars(table, coords)
	if err != nil {
		t.Fatalf("NormalizeScalars failed: %v", err)
	}
	asm, err := AssembleSpectra(mat.NewDense(1, 2, []float64{9, 8}), coords, nil, IndexSample)
	if err != nil {
		t.Fatalf("AssembleSpectra failed: %v", err)
	}
	ds, err := Compose(asm, scalars, nil, nil)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if got := ds.VarNames()[0]; got != "Spectra" {
		t.Errorf("Expected Spectra first, got %s", got)
	}
	if got := ds.Var("Spectra").At(0, 1); got != 8 {
		t.Errorf("Expected arrangement to leave values untouched, got %v", got)
	}
}
