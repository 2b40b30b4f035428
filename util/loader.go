// Package util - filesystem helpers for the benchmark driver.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ListImageFiles returns the decodable image files in dir, sorted by name.
// The sort keeps the run order stable across invocations, which matters
// because the first image is the cold (compilation-included) run and the
// rest are warm runs.
func ListImageFiles(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading input directory %s", dir)
	}

	var paths []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(file.Name())) {
		case ".jpg", ".jpeg", ".png":
			paths = append(paths, filepath.Join(dir, file.Name()))
		}
	}

	sort.Strings(paths)
	return paths, nil
}
