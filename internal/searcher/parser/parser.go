package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
)

// QueryPlan is a disjunction of analysed terms. A term that occurs several
// times in the query appears several times in Terms.
type QueryPlan struct {
	Terms    []string
	RawQuery string
}

// Unique returns the distinct terms in first-occurrence order.
func (p *QueryPlan) Unique() []string {
	seen := make(map[string]struct{}, len(p.Terms))
	out := make([]string, 0, len(p.Terms))
	for _, t := range p.Terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Parse analyses query with the index analyzer. Query-syntax characters
// are treated as separators, but quotes and parentheses must balance.
func Parse(query string, analyzer *tokenizer.Analyzer) (*QueryPlan, error) {
	if err := checkBalanced(query); err != nil {
		return nil, err
	}
	plan := &QueryPlan{RawQuery: query}
	for _, field := range strings.FieldsFunc(query, isSyntax) {
		plan.Terms = append(plan.Terms, analyzer.Terms(field)...)
	}
	if len(plan.Terms) == 0 {
		return nil, apperrors.Parsef("query %q has no searchable terms", query)
	}
	return plan, nil
}

func isSyntax(r rune) bool {
	switch r {
	case '"', '(', ')', '+', '-', '!', '{', '}', '[', ']', '^', '~', '*', '?', ':', '\\', '/', '&', '|':
		return true
	}
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func checkBalanced(query string) error {
	depth := 0
	quoted := false
	for _, r := range query {
		switch r {
		case '"':
			quoted = !quoted
		case '(':
			if !quoted {
				depth++
			}
		case ')':
			if !quoted {
				depth--
				if depth < 0 {
					return apperrors.Parsef("query %q: unexpected ')'", query)
				}
			}
		}
	}
	if quoted {
		return apperrors.Parsef("query %q: unterminated quote", query)
	}
	if depth != 0 {
		return apperrors.Parsef("query %q: unbalanced parentheses", query)
	}
	return nil
}
