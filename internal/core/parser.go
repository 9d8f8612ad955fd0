package core

// parser.go reads delimited load files (DAT, CSV, TSV and vendor variants)
// into rows of field strings.
//
// The parser is a small state machine over runes rather than a wrapper around
// encoding/csv: encoding/csv cannot change the record separator, has no
// escape character, and rejects the multi-byte qualifiers (þ) that
// Concordance files use.

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Parser reads records from a delimited stream.
type Parser struct {
	r     *bufio.Reader
	d     Delimiters
	line  int // number of '\n' consumed so far
	start int // line the last record started on (1-based)
}

// NewParser returns a parser reading from r with the given profile.
// r must already produce UTF-8; see NewDecodingReader.
func NewParser(r io.Reader, d Delimiters) *Parser {
	return &Parser{r: bufio.NewReader(r), d: d}
}

// Line returns the 1-based line on which the last returned record started.
func (p *Parser) Line() int { return p.start }

// Read returns the next record. It returns io.EOF once the stream is
// exhausted. Blank lines between records are skipped.
func (p *Parser) Read() ([]string, error) {
	for {
		fields, blank, err := p.readRecord()
		if err != nil {
			return nil, err
		}
		if !blank {
			return fields, nil
		}
	}
}

// ReadAll reads every remaining record. A ParseError aborts the read and no
// rows are returned.
func (p *Parser) ReadAll() ([][]string, error) {
	var rows [][]string
	for {
		fields, err := p.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, fields)
	}
}

// ParseDelimited reads all records from r.
func ParseDelimited(r io.Reader, d Delimiters) ([][]string, error) {
	return NewParser(r, d).ReadAll()
}

// readRecord reads one record. blank is true for an empty unqualified line.
func (p *Parser) readRecord() (fields []string, blank bool, err error) {
	var (
		b        strings.Builder
		inQual   bool
		quoted   bool // current field opened with a qualifier
		anyQuote bool // some field in this record was qualified
		sawAny   bool
	)
	p.start = p.line + 1

	endField := func() {
		fields = append(fields, b.String())
		b.Reset()
		quoted = false
	}
	endRecord := func() ([]string, bool, error) {
		endField()
		blank = len(fields) == 1 && fields[0] == "" && !anyQuote
		return fields, blank, nil
	}

	for {
		r, _, rerr := p.r.ReadRune()
		if rerr == io.EOF {
			if inQual {
				return nil, false, &ParseError{
					Line:    p.start,
					Value:   truncate(b.String(), 40),
					Message: "text qualifier never closed",
				}
			}
			if !sawAny {
				return nil, false, io.EOF
			}
			return endRecord()
		}
		if rerr != nil {
			return nil, false, rerr
		}
		sawAny = true
		if r == '\n' {
			p.line++
		}

		if inQual {
			switch {
			case p.d.separateEscape() && r == p.d.escape:
				next, ok := p.peek()
				if ok && (next == p.d.qualifier || next == p.d.escape) {
					p.r.ReadRune()
					b.WriteRune(next)
				} else {
					b.WriteRune(r)
				}
			case r == p.d.qualifier:
				next, ok := p.peek()
				if ok && next == p.d.qualifier {
					p.r.ReadRune()
					b.WriteRune(r)
				} else {
					inQual = false
				}
			default:
				b.WriteRune(r)
			}
			continue
		}

		switch {
		case r == p.d.field:
			endField()
		case r == p.d.record:
			return endRecord()
		case r == '\r' && p.d.record == '\n':
			// CRLF line endings: drop the CR that precedes the record separator.
			if next, ok := p.peek(); !ok || next != '\n' {
				b.WriteRune(r)
			}
		case p.d.separateEscape() && r == p.d.escape:
			next, ok := p.peek()
			if ok && p.isSpecial(next) {
				p.r.ReadRune()
				if next == '\n' {
					p.line++
				}
				b.WriteRune(next)
			} else {
				b.WriteRune(r)
			}
		case p.d.qualifier != NoChar && r == p.d.qualifier && b.Len() == 0 && !quoted:
			inQual = true
			quoted = true
			anyQuote = true
		default:
			b.WriteRune(r)
		}
	}
}

func (p *Parser) peek() (rune, bool) {
	r, _, err := p.r.ReadRune()
	if err != nil {
		return 0, false
	}
	_ = p.r.UnreadRune()
	return r, true
}

func (p *Parser) isSpecial(r rune) bool {
	d := p.d
	return r == d.field || r == d.record || r == d.escape ||
		(d.qualifier != NoChar && r == d.qualifier) ||
		(r == '\r' && d.record == '\n')
}

// JoinRecord renders fields as one record (without the record separator).
// Values containing a delimiter are qualified, or escaped when the profile
// has an escape character but no qualifier, so that parsing the result
// reproduces fields exactly.
func JoinRecord(fields []string, d Delimiters) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteRune(d.field)
		}
		writeField(&b, f, d, len(fields) == 1)
	}
	return b.String()
}

func writeField(b *strings.Builder, f string, d Delimiters, only bool) {
	needs := strings.ContainsRune(f, d.field) ||
		strings.ContainsRune(f, d.record) ||
		strings.ContainsRune(f, '\r') ||
		(d.qualifier != NoChar && strings.ContainsRune(f, d.qualifier)) ||
		(d.separateEscape() && strings.ContainsRune(f, d.escape))

	// A lone empty field would otherwise read back as a blank line.
	if only && f == "" && d.qualifier != NoChar {
		needs = true
	}

	switch {
	case !needs:
		b.WriteString(f)
	case d.qualifier != NoChar:
		b.WriteRune(d.qualifier)
		for _, r := range f {
			switch {
			case d.separateEscape() && (r == d.qualifier || r == d.escape):
				b.WriteRune(d.escape)
			case r == d.qualifier:
				b.WriteRune(d.qualifier)
			}
			b.WriteRune(r)
		}
		b.WriteRune(d.qualifier)
	case d.separateEscape():
		for _, r := range f {
			if r == d.field || r == d.record || r == d.escape || (r == '\r' && d.record == '\n') {
				b.WriteRune(d.escape)
			}
			b.WriteRune(r)
		}
	default:
		b.WriteString(f)
	}
}

// SplitMultiValue splits a field on the profile's multi-value separator,
// trimming blanks around each entry and dropping empty entries.
func SplitMultiValue(value string, d Delimiters) []string {
	sep := d.multiValue
	if sep == NoChar {
		sep = DefaultMultiValue
	}
	return splitTrim(value, string(sep))
}

func splitTrim(value, sep string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, sep)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
