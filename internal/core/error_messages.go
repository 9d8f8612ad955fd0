package core

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. An operator can quote the code when a run fails.
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Delimiter conflict: two delimiter characters are the same
//	         Action: Give each delimiter role its own character
//	         Matches: "must differ from the"
//
//	CFG002 - Missing column: a configured column is not in the header
//	         Action: Check the column names against the file's header row
//	         Matches: "missing required columns", "column not found in header"
//
//	CFG003 - Invalid configuration: any other ConfigurationError
//	         Action: Review the import and edit settings
//	         Matches: ErrConfiguration
//
// # Parse Errors (PRS001-PRS099)
//
//	PRS001 - Unclosed qualifier: a text qualifier is never closed
//	         Action: Check the qualifier character or repair the record
//	         Matches: "text qualifier never closed"
//
//	PRS002 - Column count: a row's width differs from the header
//	         Action: Check the field separator; the record may be truncated
//	         Matches: "columns, header has"
//
//	PRS003 - Malformed record: any other ParseError
//	         Action: Inspect the record at the reported line
//	         Matches: ErrParse
//
// # Overlay, Bates and Date Errors
//
//	OVL001 - Overlay key mismatch      Matches: ErrOverlayKeyMismatch
//	BAT001 - Malformed Bates number    Matches: ErrMalformedBates
//	DATE002 - Date outside valid range Matches: "outside range"
//	DATE001 - Unparsable date          Matches: ErrDateTransform
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large           Matches: ErrFileTooLarge
//	FILE002 - File not found           Matches: "no such file"
//	FILE003 - Unsupported encoding     Matches: "unsupported encoding"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the log for the original error.
//
// # Matching
//
// Text patterns match case-insensitively using strings.Contains; error
// targets match with errors.Is. The first matching entry wins, so specific
// entries come before the general ones for the same kind.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern maps either a text pattern or an error target to a message.
type errorPattern struct {
	pattern string
	target  error
	msg     UserMessage
}

func (p errorPattern) matches(err error, lower string) bool {
	if p.target != nil {
		return errors.Is(err, p.target)
	}
	return strings.Contains(lower, p.pattern)
}

var (
	msgDelimiterConflict = UserMessage{
		Message: "Two delimiter characters are the same",
		Action:  "Give each delimiter role its own character",
		Code:    "CFG001",
	}
	msgMissingColumn = UserMessage{
		Message: "A configured column is not in the file's header",
		Action:  "Check the column names against the header row",
		Code:    "CFG002",
	}
)

var errorPatterns = []errorPattern{
	// Configuration
	{pattern: "must differ from the", msg: msgDelimiterConflict},
	{pattern: "missing required columns", msg: msgMissingColumn},
	{pattern: "column not found in header", msg: msgMissingColumn},
	{
		pattern: "unsupported encoding",
		msg: UserMessage{
			Message: "The declared file encoding is not supported",
			Action:  "Use UTF-8, UTF-16, Windows-1252 or an IANA encoding name",
			Code:    "FILE003",
		},
	},
	{
		target: ErrConfiguration,
		msg: UserMessage{
			Message: "The import or edit settings are invalid",
			Action:  "Review the settings named in the error",
			Code:    "CFG003",
		},
	},

	// Parsing
	{
		pattern: "text qualifier never closed",
		msg: UserMessage{
			Message: "A text qualifier is never closed",
			Action:  "Check the qualifier character or repair the record at the reported line",
			Code:    "PRS001",
		},
	},
	{
		pattern: "columns, header has",
		msg: UserMessage{
			Message: "A row has a different number of columns than the header",
			Action:  "Check the field separator; the record may be truncated",
			Code:    "PRS002",
		},
	},
	{
		target: ErrParse,
		msg: UserMessage{
			Message: "The load file contains a malformed record",
			Action:  "Inspect the record at the reported line",
			Code:    "PRS003",
		},
	},

	// Overlay and Bates
	{
		target: ErrOverlayKeyMismatch,
		msg: UserMessage{
			Message: "Overlay and base documents have different identifiers",
			Action:  "Check the overlay key column",
			Code:    "OVL001",
		},
	},
	{
		target: ErrMalformedBates,
		msg: UserMessage{
			Message: "A Bates number could not be decomposed",
			Action:  "Bates numbers need a trailing number, optionally followed by . - or _ and a suffix",
			Code:    "BAT001",
		},
	},

	// Dates
	{
		pattern: "outside range",
		msg: UserMessage{
			Message: "A date is outside the valid range",
			Action:  "Widen the range or choose clear_field for out-of-range dates",
			Code:    "DATE002",
		},
	},
	{
		target: ErrDateTransform,
		msg: UserMessage{
			Message: "A date could not be parsed",
			Action:  "Set an input format that matches the field or normalize it with find/replace",
			Code:    "DATE001",
		},
	},

	// Files
	{
		target: ErrFileTooLarge,
		msg: UserMessage{
			Message: "File exceeds the configured maximum size",
			Action:  "Raise LOADFILE_MAX_FILE_SIZE or split the file",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "The file was not found",
			Action:  "Check the configured path",
			Code:    "FILE002",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the log for details",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If nothing matches, a generic fallback message with code ERR000 is returned.
//
// Example:
//
//	_, err := ParseBates("ABC")
//	msg := MapError(err)
//	// msg.Code == "BAT001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	lower := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if ep.matches(err, lower) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-friendly message.
// The original error is preserved for logging.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps a technical error to a UserError.
// Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
