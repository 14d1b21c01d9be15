package core

// error_messages.go maps technical errors to user-friendly messages.
//
// When users hit an error in the form they see a message, a suggested action
// and a code they can quote. Codes are grouped by category:
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Missing column: the uploaded file has no Category or Test column
//	         Patterns: "missing required column"
//	CFG002 - Invalid CSV: the file could not be parsed as CSV
//	         Patterns: "invalid csv"
//	CFG003 - Empty configuration: the file has a header but no pairs
//	         Patterns: "empty file", "empty mapping"
//	CFG004 - Empty cell: a Category or Test cell is blank
//	         Patterns: "required field"
//
// # Generation Errors (GEN001-GEN099)
//
//	GEN001 - Invalid parameters: row/subject counts or names out of range
//	         Patterns: "invalid parameter"
//	GEN002 - Invalid column: a custom column definition is inconsistent
//	         Patterns: "invalid column"
//	GEN003 - Too many rows: the row count exceeds the configured limit
//	         Patterns: "too many rows"
//	GEN004 - Busy: every generation slot stayed taken while waiting
//	         Patterns: "server busy"
//
// # Store Errors (STO001-STO099)
//
//	STO001 - Config not found: no saved configuration with that name
//	         Patterns: "config not found"
//	STO002 - Invalid name: the configuration name cannot be used as a file name
//	         Patterns: "invalid config name"
//
// # File and Request Errors
//
//	FILE001 - File too large          Patterns: "file too large"
//	FILE004 - No file                 Patterns: "no file provided"
//	REQ001  - Malformed request body  Patterns: "invalid request"
//	RATE001 - Rate limited            Patterns: "rate limit"
//	ERR000  - Fallback when nothing matches
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Configuration
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "The configuration file is missing a required column",
			Action:  "Provide a CSV with the headers Category and Test",
			Code:    "CFG001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "The configuration file is not a valid CSV",
			Action:  "Ensure the file is comma-separated with consistent columns",
			Code:    "CFG002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The configuration file has no category/test rows",
			Action:  "Add at least one Category,Test row below the header",
			Code:    "CFG003",
		},
	},
	{
		pattern: "empty mapping",
		msg: UserMessage{
			Message: "The configuration has no categories",
			Action:  "Add at least one category with one test",
			Code:    "CFG003",
		},
	},
	{
		pattern: "config file does not exist",
		msg: UserMessage{
			Message: "The configuration file does not exist",
			Action:  "Check the path of the configuration file",
			Code:    "CFG005",
		},
	},
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "A Category or Test cell is empty",
			Action:  "Fill in every Category and Test cell",
			Code:    "CFG004",
		},
	},

	// Generation
	{
		pattern: "too many rows",
		msg: UserMessage{
			Message: "Too many rows requested",
			Action:  "Lower the number of rows",
			Code:    "GEN003",
		},
	},
	{
		pattern: "server busy",
		msg: UserMessage{
			Message: "The server is busy generating other datasets",
			Action:  "Please try again in a few seconds",
			Code:    "GEN004",
		},
	},
	{
		pattern: "invalid parameter",
		msg: UserMessage{
			Message: "Some generation settings are out of range",
			Action:  "Check the row count, subject count and column names",
			Code:    "GEN001",
		},
	},
	{
		pattern: "invalid column",
		msg: UserMessage{
			Message: "A custom column definition is invalid",
			Action:  "Check each column's name, range, values or dates",
			Code:    "GEN002",
		},
	},

	// Store
	{
		pattern: "config not found",
		msg: UserMessage{
			Message: "Saved configuration not found",
			Action:  "Pick a configuration from the saved list",
			Code:    "STO001",
		},
	},
	{
		pattern: "invalid config name",
		msg: UserMessage{
			Message: "That configuration name cannot be used",
			Action:  "Use letters, digits, dashes and underscores only",
			Code:    "STO002",
		},
	},

	// Files and requests
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Upload a smaller configuration file",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Check the request body format",
			Code:    "REQ001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the server logs",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first matching pattern, or the ERR000 fallback.
//
// Example:
//
//	err := fmt.Errorf("read mapping: %w", ErrMissingColumn)
//	msg := MapError(err)
//	// msg.Code == "CFG001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
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

// IsUserFacing reports whether err matches a known pattern, i.e. it is not
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
