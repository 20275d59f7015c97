package indexer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ManifestFile    = "manifest.yaml"
	ManifestVersion = 1
)

// Manifest records how an index was built. Searching an index with a
// different analyzer than the one that built it silently degrades results,
// so readers take the analyzer from here.
type Manifest struct {
	Version   int       `yaml:"version"`
	ID        string    `yaml:"id"`
	Analyzer  string    `yaml:"analyzer"`
	Stopwords string    `yaml:"stopwords,omitempty"`
	Docs      int       `yaml:"docs"`
	Tokens    int64     `yaml:"tokens"`
	CreatedAt time.Time `yaml:"createdAt"`
	UpdatedAt time.Time `yaml:"updatedAt"`
}

// ReadManifest loads the manifest stored in dir.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("reading index manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing index manifest: %w", err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("unsupported index manifest version %d", m.Version)
	}
	if m.Analyzer == "" {
		return nil, fmt.Errorf("index manifest has no analyzer")
	}
	return &m, nil
}

func writeManifest(dir string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding index manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing index manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming index manifest: %w", err)
	}
	return nil
}
