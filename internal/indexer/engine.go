// Package indexer builds and reads the on-disk inverted index used by the
// evaluation tools. Documents accumulate in a memory index that is flushed
// into immutable .spdx segments; a manifest records the analyzer and the
// collection statistics.
package indexer

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/npleval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/npleval/pkg/metrics"
)

// OpenMode selects what happens to an existing index when writing.
type OpenMode string

const (
	ModeCreate         OpenMode = "create"
	ModeAppend         OpenMode = "append"
	ModeCreateOrAppend OpenMode = "create_or_append"
)

func ParseOpenMode(s string) (OpenMode, error) {
	switch OpenMode(s) {
	case ModeCreate, ModeAppend, ModeCreateOrAppend:
		return OpenMode(s), nil
	}
	return "", apperrors.Usagef("unknown open mode %q (want create, append or create_or_append)", s)
}

// memoryOwner marks documents whose live version is still in the memory index.
const memoryOwner = -1

// Stats are the collection statistics similarities need.
type Stats struct {
	Docs         int
	Tokens       int64
	AvgDocLength float64
}

type Engine struct {
	dir      string
	readOnly bool
	maxSize  int64
	analyzer *tokenizer.Analyzer
	manifest *Manifest
	memIndex *index.MemoryIndex
	writer   *segment.Writer
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu         sync.RWMutex
	readers    []*segment.Reader
	docLengths map[string]int
	docOwner   map[string]int
	tokens     int64
}

// Option customises an Engine.
type Option func(*Engine)

// WithMetrics records indexing counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Create opens the index in cfg.DataDir for writing. In append mode the
// analyzer must match the one recorded in the manifest.
func Create(cfg config.IndexConfig, mode OpenMode, analyzer *tokenizer.Analyzer, opts ...Option) (*Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating index data directory: %w", err)
	}
	existing, err := ReadManifest(cfg.DataDir)
	exists := err == nil
	if err != nil && !apperrors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	switch mode {
	case ModeAppend:
		if !exists {
			return nil, apperrors.Usagef("cannot append: no index in %s", cfg.DataDir)
		}
	case ModeCreateOrAppend:
		if !exists {
			mode = ModeCreate
		}
	case ModeCreate:
	default:
		return nil, apperrors.Usagef("unknown open mode %q", mode)
	}

	e := newEngine(cfg.DataDir, analyzer, opts...)
	e.maxSize = cfg.SegmentMaxSize

	if mode == ModeCreate {
		if err := removeIndexFiles(cfg.DataDir); err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		e.manifest = &Manifest{
			Version:   ManifestVersion,
			ID:        uuid.NewString(),
			Analyzer:  analyzer.Name(),
			Stopwords: cfg.StopwordsPath,
			CreatedAt: now,
			UpdatedAt: now,
		}
	} else {
		if existing.Analyzer != analyzer.Name() {
			return nil, apperrors.Usagef("index %s was built with analyzer %q, not %q",
				cfg.DataDir, existing.Analyzer, analyzer.Name())
		}
		e.manifest = existing
		if err := e.loadExistingSegments(); err != nil {
			return nil, fmt.Errorf("loading existing segments: %w", err)
		}
	}
	e.logger.Info("index opened for writing",
		"dir", cfg.DataDir,
		"mode", string(mode),
		"analyzer", analyzer.Name(),
		"id", e.manifest.ID,
	)
	return e, nil
}

// Open opens an existing index read-only, with the analyzer its manifest
// names.
func Open(dir string, opts ...Option) (*Engine, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, fmt.Errorf("opening index %s: %w", dir, err)
	}
	analyzer, err := tokenizer.New(m.Analyzer, m.Stopwords)
	if err != nil {
		return nil, fmt.Errorf("building analyzer from manifest: %w", err)
	}
	e := newEngine(dir, analyzer, opts...)
	e.readOnly = true
	e.manifest = m
	if err := e.loadExistingSegments(); err != nil {
		return nil, fmt.Errorf("loading segments: %w", err)
	}
	return e, nil
}

func newEngine(dir string, analyzer *tokenizer.Analyzer, opts ...Option) *Engine {
	e := &Engine{
		dir:        dir,
		analyzer:   analyzer,
		memIndex:   index.NewMemoryIndex(),
		writer:     segment.NewWriter(dir),
		logger:     slog.Default().With("component", "indexer"),
		docLengths: make(map[string]int),
		docOwner:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IndexDocument analyses text and adds it under docID, replacing any earlier
// version of the document.
func (e *Engine) IndexDocument(docID string, text string) error {
	if e.readOnly {
		return fmt.Errorf("index %s is open read-only", e.dir)
	}
	tokens := e.analyzer.Tokenize(text)

	e.mu.Lock()
	e.setDocLocked(docID, len(tokens), memoryOwner)
	e.mu.Unlock()

	e.memIndex.AddDocument(docID, tokens)
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
	}
	e.logger.Debug("document indexed in memory",
		"doc_id", docID,
		"token_count", len(tokens),
		"mem_size", e.memIndex.Size(),
	)
	if e.maxSize > 0 && e.memIndex.Size() >= e.maxSize {
		e.logger.Info("memory index reached max size, flushing to disk",
			"size", e.memIndex.Size(),
			"threshold", e.maxSize,
		)
		if err := e.Flush(); err != nil {
			return fmt.Errorf("flushing memory index: %w", err)
		}
	}
	return nil
}

func (e *Engine) setDocLocked(docID string, length int, owner int) {
	if prev, ok := e.docLengths[docID]; ok {
		e.tokens -= int64(prev)
	}
	e.docLengths[docID] = length
	e.docOwner[docID] = owner
	e.tokens += int64(length)
}

// Flush writes the memory index into a new segment.
func (e *Engine) Flush() error {
	entries, docs := e.memIndex.Snapshot()
	if len(docs) == 0 {
		return nil
	}
	segmentName, err := e.writer.Write(entries, docs)
	if err != nil {
		e.countFlush("error")
		return fmt.Errorf("writing segment: %w", err)
	}

	segPath := filepath.Join(e.dir, segmentName)
	reader, err := segment.OpenReader(segPath)
	if err != nil {
		e.countFlush("error")
		return fmt.Errorf("opening new segment for reading: %w", err)
	}
	e.mu.Lock()
	e.readers = append(e.readers, reader)
	owner := len(e.readers) - 1
	for _, d := range docs {
		e.docOwner[d.DocID] = owner
	}
	active := len(e.readers)
	e.mu.Unlock()
	e.memIndex.Reset()
	e.countFlush("success")
	e.logger.Info("segment flushed",
		"segment", segmentName,
		"terms", reader.Terms(),
		"docs", reader.DocCount(),
		"active_segments", active,
	)
	return nil
}

func (e *Engine) countFlush(status string) {
	if e.metrics != nil {
		e.metrics.IndexFlushesTotal.WithLabelValues(status).Inc()
	}
}

// Commit flushes pending documents and rewrites the manifest with the
// current collection statistics.
func (e *Engine) Commit() error {
	if e.readOnly {
		return fmt.Errorf("index %s is open read-only", e.dir)
	}
	if err := e.Flush(); err != nil {
		return err
	}
	stats := e.Stats()
	e.manifest.Docs = stats.Docs
	e.manifest.Tokens = stats.Tokens
	e.manifest.UpdatedAt = time.Now().UTC()
	if err := writeManifest(e.dir, e.manifest); err != nil {
		return err
	}
	e.logger.Info("index committed", "docs", stats.Docs, "tokens", stats.Tokens)
	return nil
}

// Search returns the postings of an analysed term. Only the newest version
// of a re-indexed document contributes.
func (e *Engine) Search(term string) (index.PostingList, error) {
	e.mu.RLock()
	readers := make([]*segment.Reader, len(e.readers))
	copy(readers, e.readers)
	e.mu.RUnlock()

	var all index.PostingList
	for _, p := range e.memIndex.Search(term) {
		if e.owner(p.DocID) == memoryOwner {
			all = append(all, p)
		}
	}
	for i, reader := range readers {
		postings, err := reader.Search(term)
		if err != nil {
			return nil, fmt.Errorf("searching segment %s: %w", filepath.Base(reader.Path()), err)
		}
		for _, p := range postings {
			if e.owner(p.DocID) == i {
				all = append(all, p)
			}
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].DocID < all[j].DocID
	})
	return all, nil
}

func (e *Engine) owner(docID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	owner, ok := e.docOwner[docID]
	if !ok {
		return memoryOwner - 1
	}
	return owner
}

func (e *Engine) DocLength(docID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.docLengths[docID]
}

func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := Stats{Docs: len(e.docLengths), Tokens: e.tokens}
	if s.Docs > 0 {
		s.AvgDocLength = float64(s.Tokens) / float64(s.Docs)
	}
	return s
}

func (e *Engine) Analyzer() *tokenizer.Analyzer {
	return e.analyzer
}

func (e *Engine) Manifest() Manifest {
	return *e.manifest
}

// Close commits a writable index and releases segment files.
func (e *Engine) Close() error {
	var commitErr error
	if !e.readOnly {
		commitErr = e.Commit()
		if commitErr != nil {
			e.logger.Error("final commit on close failed", "error", commitErr)
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, reader := range e.readers {
		if err := reader.Close(); err != nil {
			e.logger.Error("closing segment reader", "error", err)
		}
	}
	e.readers = nil
	return commitErr
}

func (e *Engine) loadExistingSegments() error {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading data directory: %w", err)
	}
	segFiles := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), segment.Extension) {
			segFiles = append(segFiles, entry.Name())
		}
	}
	sort.Strings(segFiles)

	for _, name := range segFiles {
		path := filepath.Join(e.dir, name)
		reader, err := segment.OpenReader(path)
		if err != nil {
			return fmt.Errorf("opening segment %s: %w", name, err)
		}
		e.readers = append(e.readers, reader)
		owner := len(e.readers) - 1
		for _, d := range reader.Docs() {
			e.setDocLocked(d.DocID, d.Length, owner)
		}
		e.logger.Debug("loaded existing segment",
			"segment", name,
			"terms", reader.Terms(),
			"docs", reader.DocCount(),
		)
	}
	e.logger.Info("segment recovery complete",
		"segments_loaded", len(e.readers),
		"docs", len(e.docLengths),
	)
	return nil
}

func removeIndexFiles(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading data directory: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, segment.Extension) || name == ManifestFile) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("removing %s: %w", name, err)
		}
	}
	return nil
}
