package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer/tokenizer"
)

// MemoryIndex accumulates postings until the engine flushes them into a
// segment. Re-adding a document replaces its previous postings.
type MemoryIndex struct {
	mu       sync.RWMutex
	index    map[string]map[string]*Posting
	docs     map[string]int
	docTerms map[string][]string
	size     int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index:    make(map[string]map[string]*Posting),
		docs:     make(map[string]int),
		docTerms: make(map[string][]string),
	}
}

func (m *MemoryIndex) AddDocument(docID string, tokens []tokenizer.Token) {
	termData := make(map[string]*Posting)

	for _, token := range tokens {
		p, exists := termData[token.Term]
		if !exists {
			p = &Posting{
				DocID:     docID,
				Frequency: 0,
				Positions: make([]int, 0, 4),
			}
			termData[token.Term] = p
		}
		p.Frequency++
		p.Positions = append(p.Positions, token.Position)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(docID)
	terms := make([]string, 0, len(termData))
	for term, posting := range termData {
		if _, exists := m.index[term]; !exists {
			m.index[term] = make(map[string]*Posting)
		}
		m.index[term][docID] = posting
		terms = append(terms, term)
		m.size += int64(len(term) + len(docID) + len(posting.Positions)*8 + 64)
	}
	m.docs[docID] = len(tokens)
	m.docTerms[docID] = terms
}

func (m *MemoryIndex) removeLocked(docID string) {
	for _, term := range m.docTerms[docID] {
		delete(m.index[term], docID)
		if len(m.index[term]) == 0 {
			delete(m.index, term)
		}
	}
	delete(m.docTerms, docID)
	delete(m.docs, docID)
}

func (m *MemoryIndex) Search(term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, exists := m.index[term]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Snapshot returns the term dictionary sorted by term, and the document
// table sorted by id.
func (m *MemoryIndex) Snapshot() ([]TermEntry, []DocEntry) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.index))
	for term, docs := range m.index {
		postings := make(PostingList, 0, len(docs))
		for _, posting := range docs {
			postings = append(postings, *posting)
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	docs := make([]DocEntry, 0, len(m.docs))
	for id, length := range m.docs {
		docs = append(docs, DocEntry{DocID: id, Length: length})
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].DocID < docs[j].DocID
	})
	return entries, docs
}

func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[string]map[string]*Posting)
	m.docs = make(map[string]int)
	m.docTerms = make(map[string][]string)
	m.size = 0
}
