package convert

import (
	"errors"
	"testing"

	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/internal/tsgfile"
)

func TestBuildCoords(t *testing.T) {
	headers := &tsgfile.Table{Columns: []tsgfile.Column{
		{Name: "sample", Strings: []string{"0", "1"}},
		{Name: "T", Strings: []string{"7", "8"}},
		{Name: "L", Strings: []string{"1", "2"}},
		{Name: "D", Strings: []string{"5.0", "6.5"}},
		{Name: "H", Strings: []string{"WB-1", "WB-1"}},
	}}
	coords, err := BuildCoords(headers, []float64{400, 500, 600})
	if err != nil {
		t.Fatalf("BuildCoords failed: %v", err)
	}

	names := coords.Names()
	if names[0] != "sample" || names[1] != "wavelength" {
		t.Errorf("Expected sample and wavelength first, got %v", names)
	}
	if got := coords.Array("sample").Floats(); got[0] != 0 || got[1] != 1 {
		t.Errorf("Expected sample ids [0 1], got %v", got)
	}
	if coords.NumSamples() != 2 {
		t.Errorf("Expected 2 samples, got %d", coords.NumSamples())
	}

	// Tray is declared text, so numeric-looking names stay strings.
	tray := coords.Array("tray")
	if !tray.IsText() || tray.Strings()[0] != "7" {
		t.Errorf("Expected tray names to stay text, got %v", tray)
	}
	// Section and holedepth are declared numeric.
	if coords.Array("section").IsText() {
		t.Errorf("Expected section to parse numeric")
	}
	if got := coords.Array("holedepth").Floats(); got[1] != 6.5 {
		t.Errorf("Expected holedepth [5 6.5], got %v", got)
	}
	if coords.Array("hole").Strings()[0] != "WB-1" {
		t.Errorf("Expected hole ids to pass through")
	}
}

// A declared-numeric field with a non-convertible value falls back to text
// as a whole rather than coercing cell by cell.
func TestBuildCoordsNumericFallback(t *testing.T) {
	headers := &tsgfile.Table{Columns: []tsgfile.Column{
		{Name: "sample", Strings: []string{"0", "1"}},
		{Name: "L", Strings: []string{"1", "1A"}},
	}}
	coords, err := BuildCoords(headers, []float64{400})
	if err != nil {
		t.Fatalf("BuildCoords failed: %v", err)
	}
	section := coords.Array("section")
	if !section.IsText() {
		t.Fatalf("Expected the section column to fall back to text")
	}
	if got := section.Strings(); got[0] != "1" || got[1] != "1A" {
		t.Errorf("Expected values kept verbatim, got %v", got)
	}
}

func TestBuildCoordsMissingSampleColumn(t *testing.T) {
	headers := &tsgfile.Table{Columns: []tsgfile.Column{
		{Name: "D", Strings: []string{"5.0"}},
	}}
	if _, err := BuildCoords(headers, []float64{400}); !errors.Is(err, ErrSchema) {
		t.Errorf("Expected ErrSchema without sample ids, got %v", err)
	}
}
