package report

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
)

const (
	MetaVersion = 1
	metaSuffix  = ".meta.yaml"
)

// Table kinds recorded in TableMeta.
const (
	KindTraining = "training"
	KindTest     = "test"
	KindSearch   = "search"
)

// TableMeta describes how a table was produced. It is written next to the
// table so that comparisons do not depend on file names.
type TableMeta struct {
	Version    int       `yaml:"version"`
	Kind       string    `yaml:"kind"`
	RunID      string    `yaml:"runId,omitempty"`
	Family     string    `yaml:"family"`
	Metric     string    `yaml:"metric"`
	MetricKey  string    `yaml:"metricKey"`
	Cut        int       `yaml:"cut"`
	TrainRange string    `yaml:"trainRange,omitempty"`
	TestRange  string    `yaml:"testRange"`
	Parameter  float64   `yaml:"parameter"`
	IndexID    string    `yaml:"indexId,omitempty"`
	CreatedAt  time.Time `yaml:"createdAt"`
}

// Key is the comparability key: <testRange>.<metric token>, the same text
// the test table name carries.
func (m *TableMeta) Key() string {
	return m.TestRange + "." + m.MetricKey
}

// MetaPath returns the sidecar path of a table.
func MetaPath(tablePath string) string {
	return tablePath + metaSuffix
}

func WriteMeta(tablePath string, meta TableMeta) error {
	meta.Version = MetaVersion
	data, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("encoding table metadata: %w", err)
	}
	if err := os.WriteFile(MetaPath(tablePath), data, 0o644); err != nil {
		return fmt.Errorf("writing table metadata: %w", err)
	}
	return nil
}

// ReadMeta loads the sidecar of a table. A missing sidecar yields an error
// matching fs.ErrNotExist.
func ReadMeta(tablePath string) (*TableMeta, error) {
	data, err := os.ReadFile(MetaPath(tablePath))
	if err != nil {
		return nil, fmt.Errorf("reading table metadata: %w", err)
	}
	var meta TableMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, apperrors.Parsef("table metadata %s: %v", MetaPath(tablePath), err)
	}
	if meta.Version != MetaVersion {
		return nil, apperrors.Parsef("table metadata %s: unsupported version %d", MetaPath(tablePath), meta.Version)
	}
	return &meta, nil
}

// ComparabilityKey prefers the sidecar and falls back to the file name.
func ComparabilityKey(tablePath string) (string, error) {
	meta, err := ReadMeta(tablePath)
	switch {
	case err == nil:
		if meta.TestRange == "" || meta.MetricKey == "" {
			return "", apperrors.Newf(apperrors.ErrComparability, "table metadata %s has no test range or metric", MetaPath(tablePath))
		}
		return meta.Key(), nil
	case apperrors.Is(err, fs.ErrNotExist):
		return KeyFromFilename(tablePath)
	default:
		return "", err
	}
}
