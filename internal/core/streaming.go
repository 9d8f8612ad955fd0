package core

// streaming.go prepares a raw load-file stream for the parser without
// loading the whole file into memory:
//
//   - NewDecodingReader: converts the declared encoding (UTF-16, Windows-1252,
//     Latin-1, any IANA name) to UTF-8
//   - BOMSkippingReader: removes a UTF-8 BOM (0xEF 0xBB 0xBF)
//   - StreamingUTF8Sanitizer: replaces invalid UTF-8 bytes with '?'
//   - StreamingCountingReader: tracks raw bytes read for progress logs
//   - SizeLimitReader: fails once a configured maximum is exceeded
//
// Use WrapForStreaming to apply all of them in the correct order.

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrFileTooLarge is returned by SizeLimitReader once its limit is passed.
var ErrFileTooLarge = errors.New("file exceeds maximum size")

// LookupEncoding resolves an encoding name. The empty name, "utf-8" and
// "utf8" return a nil encoding: the stream is already UTF-8.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "utf-16", "utf16", "ucs-2":
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), nil
	case "utf-16le", "utf16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	case "utf-16be", "utf16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
	case "windows-1252", "cp1252", "ansi":
		return charmap.Windows1252, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, &ConfigurationError{Field: "encoding", Value: name, Message: "unknown or unsupported encoding"}
	}
	return enc, nil
}

// NewDecodingReader returns r decoded from the named encoding to UTF-8.
// A UTF-8 or UTF-16 byte order mark overrides the declared encoding.
func NewDecodingReader(r io.Reader, name string) (io.Reader, error) {
	enc, err := LookupEncoding(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return r, nil
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

// StreamingUTF8Sanitizer wraps an io.Reader and replaces invalid UTF-8 bytes
// with '?' on the fly. A multi-byte sequence split across two reads is held
// back and completed on the next read.
type StreamingUTF8Sanitizer struct {
	reader io.Reader

	// Leftover bytes from previous read that may form a multi-byte sequence
	pending []byte
}

// NewStreamingUTF8Sanitizer creates a new streaming UTF-8 sanitizer.
func NewStreamingUTF8Sanitizer(r io.Reader) *StreamingUTF8Sanitizer {
	return &StreamingUTF8Sanitizer{
		reader:  r,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (s *StreamingUTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = s.pending[:0]
	}

	n, err := s.reader.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	if isAllASCII(p[:n]) {
		return n, err
	}

	clean := s.sanitize(p[:n], err == io.EOF)
	if clean == 0 && err == nil {
		// Only a partial rune so far; ask for more rather than report (0, nil).
		return s.Read(p)
	}
	return clean, err
}

func isAllASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// sanitize rewrites data in place and returns the number of bytes ready to
// hand out. Unless atEOF, an incomplete trailing sequence is saved to pending.
func (s *StreamingUTF8Sanitizer) sanitize(data []byte, atEOF bool) int {
	if utf8.Valid(data) {
		if !atEOF {
			if trailing := incompleteTrailingBytes(data); trailing > 0 {
				s.pending = append(s.pending, data[len(data)-trailing:]...)
				return len(data) - trailing
			}
		}
		return len(data)
	}

	write := 0
	for read := 0; read < len(data); {
		r, size := utf8.DecodeRune(data[read:])

		if !atEOF && read+size >= len(data) && isIncompleteRune(data[read:]) {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		if r == utf8.RuneError && size == 1 {
			// '?' keeps the output no longer than the input.
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// incompleteTrailingBytes returns how many bytes at the end of data start a
// multi-byte sequence that is not finished yet.
func incompleteTrailingBytes(data []byte) int {
	for i := 1; i <= 3 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b >= 0xC0 {
			if i < runeLen(b) {
				return i
			}
			return 0
		}
		if b&0xC0 != 0x80 {
			return 0
		}
	}
	return 0
}

// runeLen returns the expected length of a UTF-8 sequence starting with b.
func runeLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0 // continuation byte
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}

func isIncompleteRune(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	return runeLen(data[0]) > len(data)
}

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
// Windows tools that export DAT and CSV files commonly write one.
type BOMSkippingReader struct {
	reader  io.Reader
	checked bool
	buf     [3]byte
	held    []byte // bytes read during the check that are not a BOM
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: r}
}

// Read implements io.Reader.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		n, err := io.ReadFull(r.reader, r.buf[:])
		if n == 3 && r.buf[0] == 0xEF && r.buf[1] == 0xBB && r.buf[2] == 0xBF {
			n = 0
		}
		r.held = r.buf[:n]
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if err != nil && (err != io.EOF || len(r.held) == 0) {
			return 0, err
		}
	}

	if len(r.held) > 0 {
		n := copy(p, r.held)
		r.held = r.held[n:]
		return n, nil
	}
	return r.reader.Read(p)
}

// StreamingCountingReader wraps an io.Reader to track bytes read.
type StreamingCountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // If known (0 if unknown)
}

// NewStreamingCountingReader creates a counting reader with optional total size.
func NewStreamingCountingReader(r io.Reader, total int64) *StreamingCountingReader {
	return &StreamingCountingReader{reader: r, Total: total}
}

// Read implements io.Reader.
func (r *StreamingCountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *StreamingCountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	return int(r.BytesRead * 100 / r.Total)
}

// SizeLimitReader fails with ErrFileTooLarge once more than Max bytes have
// been read. A Max of zero or less disables the check.
type SizeLimitReader struct {
	reader io.Reader
	Max    int64
	read   int64
}

// NewSizeLimitReader wraps r with a size limit.
func NewSizeLimitReader(r io.Reader, max int64) *SizeLimitReader {
	return &SizeLimitReader{reader: r, Max: max}
}

// Read implements io.Reader.
func (r *SizeLimitReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.read += int64(n)
	if r.Max > 0 && r.read > r.Max {
		return n, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, r.Max)
	}
	return n, err
}

// StreamOptions configures WrapForStreaming.
type StreamOptions struct {
	Encoding  string // declared encoding, empty for UTF-8
	TotalSize int64  // file size for progress, 0 if unknown
	MaxSize   int64  // reject larger inputs, 0 for no limit
}

// PreparedStream is the parser-ready stream plus its raw byte counter.
type PreparedStream struct {
	io.Reader
	Counter *StreamingCountingReader
}

// WrapForStreaming wraps a raw reader for parsing.
//
// The order matters:
// 1. Counting and the size limit see raw bytes
// 2. Decoding turns the declared encoding into UTF-8
// 3. A UTF-8 BOM is stripped before any parsing
// 4. Invalid UTF-8 left over is sanitized last
func WrapForStreaming(r io.Reader, opts StreamOptions) (*PreparedStream, error) {
	counter := NewStreamingCountingReader(r, opts.TotalSize)
	decoded, err := NewDecodingReader(NewSizeLimitReader(counter, opts.MaxSize), opts.Encoding)
	if err != nil {
		return nil, err
	}
	return &PreparedStream{
		Reader:  NewStreamingUTF8Sanitizer(NewBOMSkippingReader(decoded)),
		Counter: counter,
	}, nil
}
