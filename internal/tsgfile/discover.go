package tsgfile

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// FindDatasets scans a directory tree for dataset directories, identified by
// their header files. Directories holding only a thermal subset are found
// through the TIR header.
//
// Returns:
//   - a mapping from dataset name to the directory holding it
func FindDatasets(parent string) (map[string]string, error) {
	found := make(map[string]string)
	err := filepath.WalkDir(parent, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		switch {
		case strings.HasSuffix(name, nirSuffix):
			found[strings.TrimSuffix(name, nirSuffix)] = filepath.Dir(path)
		case strings.HasSuffix(name, tirSuffix):
			found[strings.TrimSuffix(name, tirSuffix)] = filepath.Dir(path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tsgfile: scanning %s: %v", parent, err)
	}
	return found, nil
}
