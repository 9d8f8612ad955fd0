package core

import (
	"errors"
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// ParseDateTime Tests
// ----------------------------------------------------------------------------

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		// ISO format (YYYY-MM-DD)
		{"ISO format standard", "2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"ISO format leap year Feb 29", "2024-02-29", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{"ISO with time", "2024-01-15 13:45:10", time.Date(2024, 1, 15, 13, 45, 10, 0, time.UTC)},
		{"ISO T separator", "2024-01-15T13:45:10", time.Date(2024, 1, 15, 13, 45, 10, 0, time.UTC)},

		// US format (MM/DD/YYYY)
		{"US format with slashes", "01/15/2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"US format single digit month/day", "1/5/2024", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"US format with 12-hour time", "1/5/2024 3:04 PM", time.Date(2024, 1, 5, 15, 4, 0, 0, time.UTC)},
		{"US format with seconds", "1/5/2024 3:04:05 PM", time.Date(2024, 1, 5, 15, 4, 5, 0, time.UTC)},

		// Other 4-digit year formats
		{"dash separator MM-DD-YYYY", "01-15-2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"dot separator", "01.15.2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"slash ISO", "2024/01/15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"month name", "Jan 15, 2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"compact", "20240115", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},

		// Whitespace
		{"surrounding whitespace", "  2024-01-15  ", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateTime(tt.input, nil)
			if err != nil {
				t.Fatalf("ParseDateTime(%q) error = %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDateTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDateTime_Invalid(t *testing.T) {
	inputs := []string{"", "   ", "not a date", "2024-13-01", "2023-02-29", "13/45/2024", "Jan 45, 2024"}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := ParseDateTime(input, nil)
			if !errors.Is(err, ErrUnrecognizedDate) {
				t.Errorf("ParseDateTime(%q) error = %v, want ErrUnrecognizedDate", input, err)
			}
		})
	}
}

func TestParseDateTime_Location(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("zoneinfo unavailable: %v", err)
	}

	got, err := ParseDateTime("2024-01-15 09:00:00", ny)
	if err != nil {
		t.Fatalf("ParseDateTime error = %v", err)
	}
	if want := time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("ParseDateTime in New York = %v, want %v", got.UTC(), want)
	}

	// An explicit offset wins over the location.
	got, err = ParseDateTime("2024-01-15T09:00:00Z", ny)
	if err != nil {
		t.Fatalf("ParseDateTime error = %v", err)
	}
	if want := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("ParseDateTime with Z = %v, want %v", got.UTC(), want)
	}
}

func TestParseDateTime_TwoDigitYear(t *testing.T) {
	// Save original and restore after test
	originalPivot := TwoDigitYearPivot
	defer func() { TwoDigitYearPivot = originalPivot }()

	TwoDigitYearPivot = 20
	pivotYear := time.Now().Year() + 20

	tests := []struct {
		name     string
		input    string
		wantYear int
	}{
		// 2-digit years that should be in 2000s (current century)
		{"2-digit year 25 as 2025", "01/15/25", 2025},
		{"2-digit year 30 (within pivot)", "01/15/30", 2030},

		// 2-digit years that should be in 1900s (past century)
		{"2-digit year 99 as 1999", "01/15/99", 1999},
		{"2-digit year 85 as 1985", "01/15/85", 1985},

		// Different formats with 2-digit years
		{"dash format 2-digit year", "1-15-99", 1999},
		{"dot format 2-digit year", "01.15.99", 1999},
		{"with time", "1/15/99 13:30", 1999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateTime(tt.input, nil)
			if err != nil {
				t.Fatalf("ParseDateTime(%q) error = %v", tt.input, err)
			}
			if got.Year() != tt.wantYear {
				t.Errorf("ParseDateTime(%q).Year = %d, want %d (pivot year: %d)",
					tt.input, got.Year(), tt.wantYear, pivotYear)
			}
		})
	}
}

func TestParseDate_DropsTime(t *testing.T) {
	got, err := ParseDate("2024-01-15 23:59:59")
	if err != nil {
		t.Fatalf("ParseDate error = %v", err)
	}
	if want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("ParseDate = %v, want %v", got, want)
	}
}

// ----------------------------------------------------------------------------
// CleanCell Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		// Basic cleaning
		{
			name:  "simple string unchanged",
			input: "hello",
			want:  "hello",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},

		// Whitespace trimming
		{
			name:  "leading whitespace",
			input: "  hello",
			want:  "hello",
		},
		{
			name:  "trailing whitespace",
			input: "hello  ",
			want:  "hello",
		},
		{
			name:  "surrounded by whitespace",
			input: "  hello  ",
			want:  "hello",
		},

		// Excel formula prefix handling
		{
			name:  "Excel formula with quotes",
			input: `="hello"`,
			want:  "hello",
		},
		{
			name:  "Excel formula number as text",
			input: `="12345"`,
			want:  "12345",
		},
		{
			name:  "bare equals sign",
			input: "=SUM(A1)",
			want:  "SUM(A1)",
		},
		{
			name:  "equals at start only",
			input: "=hello",
			want:  "hello",
		},

		// Quote handling
		{
			name:  "double quotes removed",
			input: `"hello"`,
			want:  "hello",
		},
		{
			name:  "single quotes removed",
			input: "'hello'",
			want:  "hello",
		},
		{
			name:  "mixed quotes removed outer only",
			input: `"hello'`,
			want:  "hello",
		},
		{
			name:  "leading single quote (Excel text prefix)",
			input: "'12345",
			want:  "12345",
		},

		// Byte order mark left on the first header cell
		{
			name:  "leading BOM removed",
			input: "\ufeffBEGBATES",
			want:  "BEGBATES",
		},
		{
			name:  "BOM before quoted cell",
			input: "\ufeff\"BEGBATES\"",
			want:  "BEGBATES",
		},

		// Combined cleaning
		{
			name:  "whitespace and quotes",
			input: `  "hello"  `,
			want:  "hello",
		},
		{
			name:  "excel formula with whitespace",
			input: `  ="test"  `,
			want:  "test",
		},

		// Edge cases
		{
			name:  "only quotes",
			input: `""`,
			want:  "",
		},
		{
			name:  "only single quotes",
			input: "''",
			want:  "",
		},
		{
			name:  "equals with quoted number",
			input: `="0"`,
			want:  "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanCell(tt.input)
			if got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// MakeHeaderIndex Tests
// ----------------------------------------------------------------------------

func TestMakeHeaderIndex(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		checks map[string]int // key -> expected index
	}{
		{
			name:   "simple headers",
			header: []string{"Name", "Email", "Phone"},
			checks: map[string]int{
				"name":  0,
				"email": 1,
				"phone": 2,
			},
		},
		{
			name:   "case insensitive lookup",
			header: []string{"NAME", "Email", "pHoNe"},
			checks: map[string]int{
				"name":  0,
				"email": 1,
				"phone": 2,
			},
		},
		{
			name:   "headers with quotes cleaned",
			header: []string{`"Name"`, `"Email"`, `"Phone"`},
			checks: map[string]int{
				"name":  0,
				"email": 1,
				"phone": 2,
			},
		},
		{
			name:   "headers with whitespace",
			header: []string{"  Name  ", " Email ", "Phone"},
			checks: map[string]int{
				"name":  0,
				"email": 1,
				"phone": 2,
			},
		},
		{
			name:   "headers with Excel formula",
			header: []string{`="Name"`, `="Email"`},
			checks: map[string]int{
				"name":  0,
				"email": 1,
			},
		},
		{
			name:   "empty header",
			header: []string{},
			checks: map[string]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := MakeHeaderIndex(tt.header)

			for key, wantPos := range tt.checks {
				gotPos, ok := idx[key]
				if !ok {
					t.Errorf("MakeHeaderIndex(%v)[%q] not found, want index %d",
						tt.header, key, wantPos)
					continue
				}
				if gotPos != wantPos {
					t.Errorf("MakeHeaderIndex(%v)[%q] = %d, want %d",
						tt.header, key, gotPos, wantPos)
				}
			}
		})
	}
}

// TestMakeHeaderIndex_DuplicateHeaders verifies behavior with duplicate column names
func TestMakeHeaderIndex_DuplicateHeaders(t *testing.T) {
	// When duplicates exist, the last occurrence wins
	header := []string{"Name", "Email", "Name"}
	idx := MakeHeaderIndex(header)

	// "name" should map to index 2 (last occurrence)
	if gotPos, ok := idx["name"]; !ok || gotPos != 2 {
		t.Errorf("MakeHeaderIndex with duplicates: name index = %d, want 2", gotPos)
	}
}
