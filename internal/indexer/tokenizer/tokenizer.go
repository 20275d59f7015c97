// Package tokenizer provides the text analyzers shared by indexing and query
// parsing. An index is always searched with the analyzer it was built with,
// so the analyzer name is recorded in the index manifest.
package tokenizer

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Analyzer names accepted by New.
const (
	Standard   = "standard"
	Simple     = "simple"
	Whitespace = "whitespace"
	Keyword    = "keyword"
	Stop       = "stop"
	English    = "english"
)

var englishStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "if",
	"in", "into", "is", "it", "no", "not", "of", "on", "or", "such", "that",
	"the", "their", "then", "there", "these", "they", "this", "to", "was",
	"will", "with",
}

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Analyzer turns text into index terms.
type Analyzer struct {
	name      string
	split     func(string) []string
	lowercase bool
	stopWords map[string]struct{}
	stem      bool
}

// New returns the named analyzer. stopwordsPath is only read by the "stop"
// analyzer; when empty that analyzer removes nothing.
func New(name string, stopwordsPath string) (*Analyzer, error) {
	switch name {
	case Standard:
		return &Analyzer{name: name, split: splitAlnum, lowercase: true}, nil
	case Simple:
		return &Analyzer{name: name, split: splitLetters, lowercase: true}, nil
	case Whitespace:
		return &Analyzer{name: name, split: strings.Fields}, nil
	case Keyword:
		return &Analyzer{name: name, split: splitKeyword}, nil
	case Stop:
		words := map[string]struct{}{}
		if stopwordsPath != "" {
			loaded, err := loadStopWords(stopwordsPath)
			if err != nil {
				return nil, err
			}
			words = loaded
		}
		return &Analyzer{name: name, split: splitLetters, lowercase: true, stopWords: words}, nil
	case English:
		return &Analyzer{
			name:      name,
			split:     splitAlnum,
			lowercase: true,
			stopWords: toSet(englishStopWords),
			stem:      true,
		}, nil
	default:
		return nil, fmt.Errorf("unknown analyzer %q", name)
	}
}

// Name returns the analyzer name as recorded in the manifest.
func (a *Analyzer) Name() string {
	return a.name
}

// Tokenize breaks text into a slice of normalised Tokens.
func (a *Analyzer) Tokenize(text string) []Token {
	if a.lowercase {
		text = strings.ToLower(text)
	}
	words := a.split(text)
	tokens := make([]Token, 0, len(words))
	pos := 0
	for _, word := range words {
		if _, isStop := a.stopWords[word]; isStop {
			pos++
			continue
		}
		if a.stem {
			word = stem(word)
		}
		if word == "" {
			continue
		}
		tokens = append(tokens, Token{
			Term:     word,
			Position: pos,
		})
		pos++
	}
	return tokens
}

// Terms is Tokenize without positions.
func (a *Analyzer) Terms(text string) []string {
	tokens := a.Tokenize(text)
	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = t.Term
	}
	return terms
}

func splitAlnum(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func splitLetters(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func splitKeyword(text string) []string {
	if text == "" {
		return nil
	}
	return []string{text}
}

func loadStopWords(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stopwords file: %w", err)
	}
	defer f.Close()
	words := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		w := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		words[w] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stopwords file: %w", err)
	}
	return words, nil
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// stem applies a simple suffix-stripping stemmer to the given word.
func stem(word string) string {
	suffixes := []struct {
		suffix      string
		replacement string
		minLen      int
	}{
		{"ational", "ate", 2},
		{"tional", "tion", 2},
		{"encies", "ence", 2},
		{"ances", "ance", 2},
		{"ments", "ment", 2},
		{"izing", "ize", 2},
		{"ating", "ate", 2},
		{"iness", "y", 2},
		{"ously", "ous", 2},
		{"ively", "ive", 2},
		{"eness", "ene", 2},
		{"tion", "t", 3},
		{"sion", "s", 3},
		{"ying", "y", 2},
		{"ling", "l", 3},
		{"ies", "y", 2},
		{"ing", "", 3},
		{"ers", "er", 2},
		{"est", "", 3},
		{"ful", "", 3},
		{"ous", "", 3},
		{"ess", "", 3},
		{"ble", "", 3},
		{"ed", "", 3},
		{"er", "", 3},
		{"ly", "", 3},
		{"es", "", 3},
		{"ss", "ss", 2},
		{"s", "", 3},
	}
	for _, rule := range suffixes {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}
