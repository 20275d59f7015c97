package testset

import (
	"fmt"
	"regexp"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
)

var rangePattern = regexp.MustCompile(`^(\d+)(?:-(\d+))?$`)

// Range selects queries by 1-based ordinal. The zero value selects nothing;
// use All for the whole file.
type Range struct {
	all      bool
	From, To int
}

// All selects every query.
func All() Range { return Range{all: true} }

// Span selects the inclusive ordinals from..to.
func Span(from, to int) Range { return Range{From: from, To: to} }

// ParseRange accepts "all", "N" or "A-B".
func ParseRange(s string) (Range, error) {
	if s == "all" {
		return All(), nil
	}
	m := rangePattern.FindStringSubmatch(s)
	if m == nil {
		return Range{}, apperrors.Parsef("invalid query range %q (want all, N or A-B)", s)
	}
	from, err := strconv.Atoi(m[1])
	if err != nil {
		return Range{}, apperrors.Parsef("invalid query range %q: %v", s, err)
	}
	to := from
	if m[2] != "" {
		if to, err = strconv.Atoi(m[2]); err != nil {
			return Range{}, apperrors.Parsef("invalid query range %q: %v", s, err)
		}
	}
	if from < 1 {
		return Range{}, apperrors.Parsef("invalid query range %q: ordinals start at 1", s)
	}
	if from > to {
		return Range{}, apperrors.Parsef("invalid query range %q: start is after end", s)
	}
	return Range{From: from, To: to}, nil
}

func (r Range) IsAll() bool { return r.all }

// Contains reports whether the ordinal is selected.
func (r Range) Contains(ordinal int) bool {
	return r.all || (ordinal >= r.From && ordinal <= r.To)
}

// Overlaps reports whether two ranges share an ordinal.
func (r Range) Overlaps(o Range) bool {
	if r.all || o.all {
		return true
	}
	return r.From <= o.To && o.From <= r.To
}

// String renders the range the way it is written on the command line and
// in file names.
func (r Range) String() string {
	switch {
	case r.all:
		return "all"
	case r.From == r.To:
		return strconv.Itoa(r.From)
	default:
		return fmt.Sprintf("%d-%d", r.From, r.To)
	}
}

func (r Range) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Range) UnmarshalText(text []byte) error {
	parsed, err := ParseRange(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
