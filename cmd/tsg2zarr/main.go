package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/internal/tsgfile"
	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/pkg/config"
	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/pkg/convert"
	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/pkg/dataset"
	"github.com/CSIRO-GeoscienceAnalytics/tsg-xr/pkg/zarr"
)

func main() {
	// Parse command line arguments
	input := flag.String("input", "", "TSG dataset directory, directory tree, or a specific .tsg file")
	outputDir := flag.String("output", "", "Output directory for the zarr stores (default: beside each dataset)")
	configPath := flag.String("config", "tsg2zarr.yaml", "Configuration file")
	spectra := flag.String("spectra", "NIR", "Spectral subset to convert, NIR or TIR")
	indexCoord := flag.String("index", "sample", "Primary index for the spectral array, sample or depth")
	image := flag.Bool("image", false, "Load the high-resolution tray imagery, where available")
	subsample := flag.Int("subsample", 10, "Subsampling stride for imagery data")
	workers := flag.Int("workers", 0, "Number of datasets to convert concurrently (default: all CPU cores)")
	flag.Parse()

	// Validate inputs
	if *input == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Command line flags that were set explicitly override the configuration
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "spectra":
			cfg.Load.Spectra = *spectra
		case "index":
			cfg.Load.IndexCoord = *indexCoord
		case "image":
			cfg.Load.Image = *image
		case "subsample":
			cfg.Load.SubsampleImage = *subsample
		case "output":
			cfg.Output.Dir = *outputDir
		case "workers":
			cfg.Output.Workers = *workers
		}
	})
	if cfg.Output.Workers < 1 {
		cfg.Output.Workers = 1
	}

	datasets, subset, err := resolveDatasets(*input, cfg.Load.Spectra)
	if err != nil {
		log.Fatalf("Failed to locate datasets: %v", err)
	}
	if len(datasets) == 0 {
		log.Fatalf("No TSG datasets found under %s", *input)
	}
	cfg.Load.Spectra = subset

	fmt.Println("================================")
	fmt.Println("TSG2ZARR: HYPERSPECTRAL CORE-LOGGING DATASETS TO ZARR")
	fmt.Println("================================")
	fmt.Printf("Found %d dataset(s), converting %s spectra with %d worker(s)\n",
		len(datasets), cfg.Load.Spectra, cfg.Output.Workers)

	loader := convert.NewLoader(&convert.Params{
		Spectra:        cfg.Load.Spectra,
		IndexCoord:     cfg.Load.IndexCoord,
		Image:          cfg.Load.Image,
		SubsampleImage: cfg.Load.SubsampleImage,
	})

	// Each dataset load is independent and stateless, so datasets convert in
	// parallel while the steps within one load stay sequential.
	startTime := time.Now()
	var group errgroup.Group
	group.SetLimit(cfg.Output.Workers)
	for _, name := range sortedKeys(datasets) {
		name, dir := name, datasets[name]
		group.Go(func() error {
			dest, err := convertDataset(loader, cfg, name, dir)
			if err != nil {
				return fmt.Errorf("%s: %v", name, err)
			}
			if cfg.Output.Verbose {
				fmt.Printf("Converted %s -> %s\n", name, dest)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		log.Fatalf("Conversion failed: %v", err)
	}

	fmt.Printf("\nConverted %d dataset(s) in %.2f seconds\n", len(datasets), time.Since(startTime).Seconds())
}

// resolveDatasets maps the input argument to named dataset directories. A
// specific .tsg file selects its own directory, with the subset inferred
// from the filename; a directory is scanned recursively.
func resolveDatasets(input, subset string) (map[string]string, string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, "", err
	}
	if !info.IsDir() && strings.EqualFold(filepath.Ext(input), ".tsg") {
		stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		if strings.HasSuffix(strings.ToLower(stem), "tir") {
			subset = "TIR"
		} else {
			subset = "NIR"
		}
		dir := filepath.Dir(input)
		name := strings.TrimSuffix(strings.TrimSuffix(stem, "_tir"), "_tsg")
		return map[string]string{name: dir}, subset, nil
	}
	datasets, err := tsgfile.FindDatasets(input)
	if err != nil {
		return nil, "", err
	}
	return datasets, subset, nil
}

// convertDataset runs one parse-convert-store cycle and returns the store path.
func convertDataset(loader *convert.Loader, cfg *config.Config, name, dir string) (string, error) {
	pkg, err := tsgfile.ReadPackage(dir, cfg.Load.Image)
	if err != nil {
		return "", err
	}
	ds, err := loader.Load(pkg)
	if err != nil {
		return "", err
	}

	storeName := holeName(ds, name) + "_" + strings.ToUpper(cfg.Load.Spectra) + ".zarr"
	outDir := cfg.Output.Dir
	if outDir == "" {
		// Put the store in the dataset directory if an output folder is not given
		outDir = dir
	}
	dest := filepath.Join(outDir, storeName)

	// Overwrite an existing store at the destination
	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("removing existing store: %v", err)
	}
	if err := zarr.Save(ds, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// holeName names the output store after the first hole id in the dataset,
// falling back to the dataset name.
func holeName(ds *dataset.Dataset, fallback string) string {
	hole := ds.Coord("hole")
	if hole == nil || hole.Len() == 0 {
		return fallback
	}
	if hole.IsText() {
		return hole.Strings()[0]
	}
	return strconv.FormatFloat(hole.Floats()[0], 'g', -1, 64)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
