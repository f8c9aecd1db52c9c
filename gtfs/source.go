package gtfs

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// errMissingFile marks an optional GTFS file that is absent from a bundle
var errMissingFile = errors.New("gtfs: file not present")

// source is a region's static bundle: a directory of CSV files or a zip archive
type source interface {
	open(name string) (io.ReadCloser, error)
	Close() error
}

func openSource(p string) (source, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("open region bundle %s: %w", p, err)
	}
	if info.IsDir() {
		return dirSource{root: p}, nil
	}
	if strings.EqualFold(filepath.Ext(p), ".zip") {
		return openZipSource(p)
	}
	return nil, fmt.Errorf("region bundle %s is neither a directory nor a .zip archive", p)
}

type dirSource struct {
	root string
}

func (d dirSource) open(name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(d.root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errMissingFile
	}
	return f, err
}

func (d dirSource) Close() error { return nil }

// zipSource matches entries by lower-cased base name so bundles zipped with a
// top-level folder still resolve.
type zipSource struct {
	zr    *zip.ReadCloser
	files map[string]*zip.File
}

func openZipSource(p string) (*zipSource, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", p, err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := strings.ToLower(path.Base(f.Name))
		if _, dup := files[name]; !dup {
			files[name] = f
		}
	}
	return &zipSource{zr: zr, files: files}, nil
}

func (z *zipSource) open(name string) (io.ReadCloser, error) {
	f, ok := z.files[strings.ToLower(name)]
	if !ok {
		return nil, errMissingFile
	}
	return f.Open()
}

func (z *zipSource) Close() error { return z.zr.Close() }
