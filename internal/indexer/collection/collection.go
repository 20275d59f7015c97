// Package collection reads NPL-style document collections: each record is an
// identifier line followed by content lines and closed by a line holding a
// single "/".
package collection

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
)

const terminator = "/"

// Document is one record of the collection.
type Document struct {
	ID   string
	Text string
}

// Documents yields the records of r in file order. Iteration stops at the
// first error, which is yielded with a zero Document.
func Documents(r io.Reader) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		var (
			id      string
			inDoc   bool
			lineNo  int
			content strings.Builder
		)
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			trimmed := strings.TrimSpace(line)
			if !inDoc {
				if trimmed == "" {
					continue
				}
				if trimmed == terminator {
					yield(Document{}, apperrors.Parsef("line %d: terminator without document id", lineNo))
					return
				}
				id = trimmed
				inDoc = true
				continue
			}
			if trimmed == terminator {
				if !yield(Document{ID: id, Text: strings.TrimSpace(content.String())}, nil) {
					return
				}
				inDoc = false
				content.Reset()
				continue
			}
			content.WriteString(line)
			content.WriteByte('\n')
		}
		if err := scanner.Err(); err != nil {
			yield(Document{}, fmt.Errorf("reading collection: %w", err))
			return
		}
		if inDoc {
			yield(Document{}, apperrors.Parsef("document %q is missing its %q terminator", id, terminator))
		}
	}
}
