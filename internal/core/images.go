package core

// images.go decodes the two structured image grammars: Opticon cross-reference
// files (.opt) and IPRO image manifests (.lfp). Neither takes a user-supplied
// delimiter profile; their layouts are fixed.
//
// Opticon, one page per line:
//
//	ABC000001,VOL001,IMAGES\001\ABC000001.TIF,Y,,,3
//	ABC000002,VOL001,IMAGES\001\ABC000002.TIF,,,,
//
// fields: image key, volume, path, document break (Y), box, folder, page count.
// Box and folder are labels only and are kept in Raw.
//
// LFP, one page per IM line:
//
//	IM,ABC000001,D,1,@VOL001;IMAGES\001;ABC000001.TIF,3,0
//	IM,ABC000002,C,2,@VOL001;IMAGES\001;ABC000002.TIF
//
// fields: record type, image key, break flag (D starts a document, C or blank
// continues one), page sequence, @volume;folder...;file, page count, flag.
// Lines with any other record type are decoded with their raw fields only.

import (
	"bufio"
	"io"
	"path"
	"strconv"
	"strings"
)

// RecordTypeImage is the LFP record type for an image page.
const RecordTypeImage = "IM"

// maxImageLine bounds a single manifest line.
const maxImageLine = 1 << 20

// ImageRecord is one decoded line of an image cross-reference or manifest.
type ImageRecord struct {
	RecordType string   // "IM" for LFP image lines, empty for Opticon
	Key        string   // Image identifier, usually the page's Bates number
	DocBreak   bool     // Page starts a new document
	PageSeq    int      // Page sequence as written (0 when absent)
	Volume     string   // Volume label
	Folders    []string // Folder path components, outermost first
	File       string   // File name
	PageCount  int      // Declared page count (0 when absent)
	Flag       string   // Trailing flag field
	Line       int      // 1-based source line
	Raw        []string // Raw comma-separated fields
}

// Path returns the record's relative path using forward slashes.
func (r ImageRecord) Path() string {
	parts := append(append([]string{}, r.Folders...), r.File)
	return path.Join(parts...)
}

// IsImage reports whether the record describes an image page.
func (r ImageRecord) IsImage() bool {
	return r.RecordType == "" || r.RecordType == RecordTypeImage
}

// ParseOpticon decodes an Opticon image cross-reference file.
func ParseOpticon(r io.Reader) ([]ImageRecord, error) {
	return scanImageLines(r, decodeOpticon)
}

// ParseLFP decodes an IPRO LFP image manifest.
func ParseLFP(r io.Reader) ([]ImageRecord, error) {
	return scanImageLines(r, decodeLFP)
}

func scanImageLines(r io.Reader, decode func(fields []string, line int) (ImageRecord, error)) ([]ImageRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxImageLine)

	var records []ImageRecord
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		rec, err := decode(strings.Split(text, ","), line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func decodeOpticon(fields []string, line int) (ImageRecord, error) {
	if len(fields) < 3 {
		return ImageRecord{}, &ParseError{
			Line:    line,
			Value:   strings.Join(fields, ","),
			Message: "opticon line needs at least key, volume and path",
		}
	}
	rec := ImageRecord{
		Key:    strings.TrimSpace(fields[0]),
		Volume: strings.TrimSpace(fields[1]),
		Line:   line,
		Raw:    fields,
	}
	if rec.Key == "" {
		return ImageRecord{}, &ParseError{Line: line, Message: "empty image key"}
	}
	rec.Folders, rec.File = splitImagePath(fields[2])
	if rec.File == "" {
		return ImageRecord{}, &ParseError{Line: line, Value: rec.Key, Message: "empty image path"}
	}
	if len(fields) > 3 {
		switch strings.ToUpper(strings.TrimSpace(fields[3])) {
		case "Y":
			rec.DocBreak = true
		case "", "N":
		default:
			return ImageRecord{}, &ParseError{Line: line, Value: fields[3], Message: "document break must be Y or blank"}
		}
	}
	if len(fields) > 6 {
		n, err := optionalInt(fields[6])
		if err != nil {
			return ImageRecord{}, &ParseError{Line: line, Value: fields[6], Message: "page count is not a number"}
		}
		rec.PageCount = n
	}
	return rec, nil
}

func decodeLFP(fields []string, line int) (ImageRecord, error) {
	rec := ImageRecord{
		RecordType: strings.ToUpper(strings.TrimSpace(fields[0])),
		Line:       line,
		Raw:        fields,
	}
	if len(fields) > 1 {
		rec.Key = strings.TrimSpace(fields[1])
	}
	if rec.RecordType != RecordTypeImage {
		return rec, nil
	}

	if len(fields) < 5 {
		return ImageRecord{}, &ParseError{
			Line:    line,
			Value:   strings.Join(fields, ","),
			Message: "IM line needs type, key, break flag, page sequence and path",
		}
	}
	if rec.Key == "" {
		return ImageRecord{}, &ParseError{Line: line, Message: "empty image key"}
	}

	switch strings.ToUpper(strings.TrimSpace(fields[2])) {
	case "D":
		rec.DocBreak = true
	case "C", "":
	default:
		return ImageRecord{}, &ParseError{Line: line, Value: fields[2], Message: "break flag must be D, C or blank"}
	}

	seq, err := optionalInt(fields[3])
	if err != nil {
		return ImageRecord{}, &ParseError{Line: line, Value: fields[3], Message: "page sequence is not a number"}
	}
	rec.PageSeq = seq

	loc := strings.TrimSpace(fields[4])
	if !strings.HasPrefix(loc, "@") {
		return ImageRecord{}, &ParseError{Line: line, Value: loc, Message: "path field must start with @volume"}
	}
	parts := strings.Split(loc[1:], ";")
	if len(parts) < 2 {
		return ImageRecord{}, &ParseError{Line: line, Value: loc, Message: "path field needs @volume;file at minimum"}
	}
	rec.Volume = parts[0]
	for _, folder := range parts[1 : len(parts)-1] {
		dirs, last := splitImagePath(folder)
		rec.Folders = append(rec.Folders, dirs...)
		if last != "" {
			rec.Folders = append(rec.Folders, last)
		}
	}
	rec.File = strings.TrimSpace(parts[len(parts)-1])
	if rec.File == "" {
		return ImageRecord{}, &ParseError{Line: line, Value: loc, Message: "empty file name"}
	}

	if len(fields) > 5 {
		n, err := optionalInt(fields[5])
		if err != nil {
			return ImageRecord{}, &ParseError{Line: line, Value: fields[5], Message: "page count is not a number"}
		}
		rec.PageCount = n
	}
	if len(fields) > 6 {
		rec.Flag = strings.TrimSpace(fields[6])
	}
	return rec, nil
}

// splitImagePath splits a vendor path written with either separator into
// folder components and the final element.
func splitImagePath(p string) ([]string, string) {
	p = strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
	var parts []string
	for _, part := range strings.Split(p, "/") {
		if part != "" && part != "." {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return nil, ""
	}
	return parts[:len(parts)-1], parts[len(parts)-1]
}

func optionalInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
