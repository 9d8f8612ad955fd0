// Package core provides the load-file processing logic for e-discovery
// productions.
//
// This package holds all domain logic independent of any CLI, file system
// layout or output format. It can be used by the import handler, other
// tools, or tests without modification.
//
// # Architecture
//
// A run moves one in-memory Collection through sequential phases:
//
//   - Parsing: a [Parser] splits a delimited stream with a validated
//     [Delimiters] profile; [ParseOpticon] and [ParseLFP] decode the fixed
//     image manifest grammars.
//   - Building: [BuildCollection] turns rows into [Document] values with
//     metadata, representative files and resolved families.
//   - Overlay: [Overlay] merges a corrective document onto a base document
//     with the same identifier.
//   - Transformation: [Transformer.Transform] applies an ordered list of
//     [MetadataEdit], [RepresentativeEdit] and [DateEdit] values.
//
// [ParseBates] decomposes Bates numbers for consumers that step through a
// production.
//
// # Format Registry
//
// Known formats are registered at init time. Each [FormatDefinition] names
// its grammar and, for delimited formats, the default profile:
//
//	def, ok := core.GetFormat("dat")
//	rows, err := core.ParseDelimited(r, def.Delimiters)
//
// # Families
//
// A Collection is an arena addressed by identifier. A document stores its
// parent as an identifier; child sets are derived and kept consistent by
// [Collection.SetParent] and [Collection.RelinkFamilies]. Aggregate counters
// are recomputed lazily after any mutation.
//
// # Error Handling
//
// Error kinds are concrete types that also match sentinels with errors.Is.
// [MapError] maps them to user-facing codes (CFG, PRS, OVL, BAT, DATE, FILE).
package core
