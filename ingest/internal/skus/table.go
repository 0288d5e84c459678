package skus

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// TableFile is the on-disk trainer table layout:
//
//	trainers:
//	  AB: Alex Brown
//	  CB: Chris Bexon
type TableFile struct {
	Trainers map[string]string `yaml:"trainers"`
}

// DecodeTable reads a YAML trainer table.
func DecodeTable(r io.Reader) (map[string]string, error) {
	var f TableFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("decode trainer table: %w", err)
	}
	if f.Trainers == nil {
		return map[string]string{}, nil
	}
	return f.Trainers, nil
}

// LoadTable reads a YAML trainer table from path.
func LoadTable(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trainer table: %w", err)
	}
	defer f.Close()
	return DecodeTable(f)
}

// Merge layers tables left to right; later codes win.
func Merge(tables ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, t := range tables {
		for code, name := range t {
			out[normalizeCode(code)] = name
		}
	}
	return out
}
