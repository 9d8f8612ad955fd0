package core

// bates.go decomposes Bates numbers into prefix, number and suffix.
//
//	ABC000123        prefix "ABC", number 123 (width 6)
//	ABC000123.0002   prefix "ABC", number 123, suffix 2 after "."
//	000123           empty prefix
//
// The number is the last run of digits, or the second-to-last when two runs
// are joined by exactly one of '.', '-' or '_' at the end of the value.

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BatesSuffixDelimiters are the characters allowed between number and suffix.
const BatesSuffixDelimiters = ".-_"

// Bates is a decomposed Bates number.
type Bates struct {
	Prefix string
	Number uint64
	Width  int // digits in the original number, kept when stepping

	SuffixDelimiter string
	Suffix          uint64
	SuffixWidth     int

	hasSuffix bool
}

type digitRun struct{ start, end int }

func digitRuns(s string) []digitRun {
	var runs []digitRun
	for i := 0; i < len(s); {
		if !isDigit(s[i]) {
			i++
			continue
		}
		j := i
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		runs = append(runs, digitRun{i, j})
		i = j
	}
	return runs
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// ParseBates decomposes s.
func ParseBates(s string) (Bates, error) {
	malformed := func(format string, args ...any) (Bates, error) {
		return Bates{}, &MalformedBatesError{Value: s, Message: fmt.Sprintf(format, args...)}
	}

	if strings.TrimSpace(s) == "" {
		return malformed("value is empty")
	}

	runs := digitRuns(s)
	if len(runs) == 0 {
		return malformed("no numeric component")
	}

	last := runs[len(runs)-1]
	if last.end != len(s) {
		return malformed("expected the value to end with digits, found %q after them", s[last.end:])
	}

	if len(runs) == 1 {
		n, err := strconv.ParseUint(s[last.start:last.end], 10, 64)
		if err != nil {
			return malformed("number is out of range")
		}
		return Bates{Prefix: s[:last.start], Number: n, Width: last.end - last.start}, nil
	}

	num := runs[len(runs)-2]
	gap := s[num.end:last.start]
	if len(gap) != 1 {
		return malformed("expected exactly one delimiter between number and suffix, found %q", gap)
	}
	if !strings.Contains(BatesSuffixDelimiters, gap) {
		return malformed("suffix delimiter %q is not one of %q", gap, BatesSuffixDelimiters)
	}

	n, err := strconv.ParseUint(s[num.start:num.end], 10, 64)
	if err != nil {
		return malformed("number is out of range")
	}
	suffix, err := strconv.ParseUint(s[last.start:last.end], 10, 64)
	if err != nil {
		return malformed("suffix is out of range")
	}
	return Bates{
		Prefix:          s[:num.start],
		Number:          n,
		Width:           num.end - num.start,
		SuffixDelimiter: gap,
		Suffix:          suffix,
		SuffixWidth:     last.end - last.start,
		hasSuffix:       true,
	}, nil
}

// HasSuffix reports whether the number carries a suffix.
func (b Bates) HasSuffix() bool { return b.hasSuffix }

// String renders the number with its original padding.
func (b Bates) String() string {
	s := b.Prefix + fmt.Sprintf("%0*d", b.Width, b.Number)
	if b.hasSuffix {
		s += b.SuffixDelimiter + fmt.Sprintf("%0*d", b.SuffixWidth, b.Suffix)
	}
	return s
}

// Step returns the number moved by n with the suffix dropped. The width is
// kept; a value that needs more digits widens.
func (b Bates) Step(n int64) (Bates, error) {
	var next uint64
	switch {
	case n >= 0:
		if uint64(n) > math.MaxUint64-b.Number {
			return Bates{}, &MalformedBatesError{Value: b.String(), Message: "stepping overflows the number"}
		}
		next = b.Number + uint64(n)
	default:
		back := uint64(-(n + 1)) + 1
		if back > b.Number {
			return Bates{}, &MalformedBatesError{Value: b.String(), Message: "cannot step below zero"}
		}
		next = b.Number - back
	}
	return Bates{Prefix: b.Prefix, Number: next, Width: b.Width}, nil
}

// Next returns the following number as a string, without suffix.
func (b Bates) Next() (string, error) {
	n, err := b.Step(1)
	if err != nil {
		return "", err
	}
	return n.String(), nil
}

// Previous returns the preceding number as a string, without suffix.
func (b Bates) Previous() (string, error) {
	p, err := b.Step(-1)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

// NextBates parses s and returns the following number.
func NextBates(s string) (string, error) {
	b, err := ParseBates(s)
	if err != nil {
		return "", err
	}
	return b.Next()
}

// PreviousBates parses s and returns the preceding number.
func PreviousBates(s string) (string, error) {
	b, err := ParseBates(s)
	if err != nil {
		return "", err
	}
	return b.Previous()
}
