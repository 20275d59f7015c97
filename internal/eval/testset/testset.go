// Package testset reads the NPL query and relevance-judgment files and
// pairs each selected query with its relevant documents.
package testset

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
)

const stanzaTerminator = "/"

// Query is a selected query and its 1-based position in the query file.
type Query struct {
	Ordinal int
	Text    string
}

// Relevant is the set of documents judged relevant for one query.
type Relevant map[string]struct{}

func (r Relevant) Contains(docID string) bool {
	_, ok := r[docID]
	return ok
}

// Topic pairs a query with its judgments.
type Topic struct {
	Query    Query
	Relevant Relevant
}

// TestSet is an immutable, ordered selection of topics.
type TestSet struct {
	rng    Range
	topics []Topic
}

// Load reads the selected queries and their judgments. Both files are read
// in full so that stanza boundaries stay aligned with query ordinals.
func Load(queries, judgments io.Reader, rng Range) (*TestSet, error) {
	qs, total, err := readQueries(queries, rng)
	if err != nil {
		return nil, err
	}
	rels, err := readJudgments(judgments, rng)
	if err != nil {
		return nil, err
	}
	if len(qs) != len(rels) {
		return nil, apperrors.Parsef("range %s selects %d queries but %d judgment stanzas", rng, len(qs), len(rels))
	}
	if len(qs) == 0 {
		return nil, apperrors.Parsef("range %s selects no queries", rng)
	}
	if !rng.IsAll() && len(qs) != rng.To-rng.From+1 {
		return nil, apperrors.Parsef("range %s exceeds the %d queries available", rng, total)
	}
	ts := &TestSet{rng: rng, topics: make([]Topic, len(qs))}
	for i := range qs {
		ts.topics[i] = Topic{Query: qs[i], Relevant: rels[i]}
	}
	slog.Debug("test set loaded", "range", rng.String(), "topics", len(ts.topics))
	return ts, nil
}

// LoadFiles is Load over file paths.
func LoadFiles(queriesPath, judgmentsPath string, rng Range) (*TestSet, error) {
	qf, err := os.Open(queriesPath)
	if err != nil {
		return nil, fmt.Errorf("opening queries file: %w", err)
	}
	defer qf.Close()
	jf, err := os.Open(judgmentsPath)
	if err != nil {
		return nil, fmt.Errorf("opening judgments file: %w", err)
	}
	defer jf.Close()
	ts, err := Load(qf, jf, rng)
	if err != nil {
		return nil, fmt.Errorf("loading %s and %s: %w", queriesPath, judgmentsPath, err)
	}
	return ts, nil
}

func (ts *TestSet) Range() Range { return ts.rng }

func (ts *TestSet) Len() int { return len(ts.topics) }

// All yields the topics in ordinal order.
func (ts *TestSet) All() iter.Seq[Topic] {
	return func(yield func(Topic) bool) {
		for _, t := range ts.topics {
			if !yield(t) {
				return
			}
		}
	}
}

// Ordinals returns the selected ordinals in order.
func (ts *TestSet) Ordinals() []int {
	out := make([]int, len(ts.topics))
	for i, t := range ts.topics {
		out[i] = t.Query.Ordinal
	}
	return out
}

type lineReader struct {
	scanner *bufio.Scanner
	line    int
}

func newLineReader(r io.Reader) *lineReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 1024*1024)
	return &lineReader{scanner: s}
}

func (lr *lineReader) next() (string, bool) {
	if !lr.scanner.Scan() {
		return "", false
	}
	lr.line++
	return lr.scanner.Text(), true
}

// nextNonBlank skips blank lines between records.
func (lr *lineReader) nextNonBlank() (string, bool) {
	for {
		line, ok := lr.next()
		if !ok || strings.TrimSpace(line) != "" {
			return line, ok
		}
	}
}

// readQueries reads records of three lines: identifier, text, terminator.
// The identifier line may be blank and is ignored; the ordinal is the record
// position. Trailing blank lines end the file.
func readQueries(r io.Reader, rng Range) ([]Query, int, error) {
	lr := newLineReader(r)
	var lines []string
	for {
		line, ok := lr.next()
		if !ok {
			break
		}
		lines = append(lines, line)
	}
	if err := lr.scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading queries: %w", err)
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	var out []Query
	total := 0
	for start, ordinal := 0, 1; start < len(lines); start, ordinal = start+3, ordinal+1 {
		if start+1 >= len(lines) {
			return nil, 0, apperrors.Parsef("queries: record %d has no text (line %d)", ordinal, start+1)
		}
		text := lines[start+1]
		total = ordinal
		if rng.Contains(ordinal) {
			out = append(out, Query{Ordinal: ordinal, Text: strings.ToLower(strings.TrimSpace(text))})
		}
	}
	return out, total, nil
}

// readJudgments reads stanzas of an identifier line followed by document id
// lines up to a "/" line. Unselected stanzas are consumed too.
func readJudgments(r io.Reader, rng Range) ([]Relevant, error) {
	lr := newLineReader(r)
	var out []Relevant
	for ordinal := 1; ; ordinal++ {
		if _, ok := lr.nextNonBlank(); !ok {
			break
		}
		selected := rng.Contains(ordinal)
		rel := Relevant{}
		terminated := false
		for {
			line, ok := lr.next()
			if !ok {
				break
			}
			trimmed := strings.TrimSpace(line)
			if trimmed == stanzaTerminator {
				terminated = true
				break
			}
			if selected {
				for _, id := range strings.Fields(trimmed) {
					rel[id] = struct{}{}
				}
			}
		}
		if !terminated {
			return nil, apperrors.Parsef("judgments: stanza %d is missing its %q terminator (line %d)", ordinal, stanzaTerminator, lr.line)
		}
		if selected {
			out = append(out, rel)
		}
	}
	if err := lr.scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading judgments: %w", err)
	}
	return out, nil
}
