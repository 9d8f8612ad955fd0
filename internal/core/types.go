// Package core provides the load-file processing logic: parsing, document
// building, overlays and transformations. It has no I/O beyond the readers
// it is handed and can be used by any frontend.
package core

import "time"

// HeaderIndex maps column names (lowercase) to their position in a row.
type HeaderIndex map[string]int

// FormatGroup classifies a load-file format.
type FormatGroup string

const (
	GroupMetadata FormatGroup = "Metadata" // delimited metadata files (DAT, CSV, TSV)
	GroupImage    FormatGroup = "Image"    // structured image manifests (OPT, LFP)
)

// Grammar selects how a format is decoded.
type Grammar int

const (
	GrammarDelimited Grammar = iota // Parser with a Delimiters profile
	GrammarOpticon                  // ParseOpticon
	GrammarLFP                      // ParseLFP
)

func (g Grammar) String() string {
	switch g {
	case GrammarDelimited:
		return "delimited"
	case GrammarOpticon:
		return "opticon"
	case GrammarLFP:
		return "lfp"
	default:
		return "unknown"
	}
}

// FormatDefinition describes a known load-file format.
type FormatDefinition struct {
	Key        string      // Unique identifier: "dat"
	Group      FormatGroup // Metadata or Image
	Label      string      // Display name: "Concordance DAT"
	Extensions []string    // File extensions, lowercase with dot: ".dat"
	Grammar    Grammar

	// Delimiters and HasHeader apply to GrammarDelimited only.
	Delimiters Delimiters
	HasHeader  bool
}

// ImportPhase indicates the current stage of an import.
type ImportPhase string

const (
	PhaseStarting ImportPhase = "starting"
	PhaseReading  ImportPhase = "reading"
	PhaseBuilding ImportPhase = "building"
	PhaseOverlay  ImportPhase = "overlay"
	PhaseEditing  ImportPhase = "editing"
	PhaseComplete ImportPhase = "complete"
	PhaseFailed   ImportPhase = "failed"
)

// ImportResult summarizes one import.
type ImportResult struct {
	RunID     string
	FileName  string
	Format    string
	Phase     ImportPhase
	Rows      int // records read, header excluded
	Documents int
	Stats     CollectionStats
	BytesRead int64
	Duration  time.Duration
	Error     string // Non-empty if Phase is PhaseFailed
}
