// Package core provides the business logic for validating and exporting
// archival projects.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Codes are grouped by category:
//
// # MAP and Vocabulary Errors (MAP001-MAP099)
//
//	MAP001 - No MAP: No access/preservation map defined
//	         Action: Load the MAP before exporting
//	         Patterns: "no access/preservation map defined"
//
//	MAP002 - Invalid MAP: The MAP document could not be read
//	         Action: Check the MAP URL or file
//	         Patterns: "decode map", "map defines no fields"
//
//	MAP003 - MAP unavailable: The MAP could not be downloaded
//	         Action: Check the network connection and the MAP URL
//	         Patterns: "fetch map"
//
//	MAP004 - Vocabulary unavailable: The vocabulary could not be loaded
//	         Action: Check the vocabulary URL or file
//	         Patterns: "vocabulary"
//
// # Project Errors (PRJ001-PRJ099)
//
//	PRJ001 - No project: No project is open
//	PRJ002 - Unreadable project: The project document could not be read
//	PRJ003 - Object not found: The object no longer exists in the project
//	PRJ004 - Not saved: The project has not been saved yet
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Unknown exporter: This export type is not available
//	EXP002 - Missing dates: Every exported object needs a date
//	EXP003 - No destination: No export destination was given
//	EXP004 - Export not found: The export may have expired
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Missing file: A project file is missing on disk
//	FILE002 - Permission denied: A file or folder could not be accessed
//	FILE003 - Disk full: The destination ran out of space
//	FILE004 - Invalid CSV: A manifest could not be written
//
// # Operation Errors (OPS001-OPS099)
//
//	OPS001 - Busy: Another export or mint operation is in progress
//	OPS002 - Cancelled: The operation was cancelled
//	OPS003 - Timeout: The operation timed out
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Connection refused: Unable to connect to the history database
//	DB002 - Connection reset: Database connection was interrupted
//	DB003 - Not configured: History maintenance needs a database
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Invalid request: The request body could not be read
//	         Patterns: "invalid request body"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are defined
// before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. The first matching pattern wins.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Requests (REQ001)
	// =========================================================================
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Check the request body and try again",
			Code:    "REQ001",
		},
	},

	// =========================================================================
	// MAP and vocabulary (MAP001-MAP004)
	// =========================================================================
	{
		pattern: "no access/preservation map defined",
		msg: UserMessage{
			Message: "No access/preservation map defined",
			Action:  "Load the MAP before exporting",
			Code:    "MAP001",
		},
	},
	{
		pattern: "decode map",
		msg: UserMessage{
			Message: "The MAP document could not be read",
			Action:  "Check that the MAP URL or file points to a MAP JSON document",
			Code:    "MAP002",
		},
	},
	{
		pattern: "map defines no fields",
		msg: UserMessage{
			Message: "The MAP document is empty",
			Action:  "Check that the MAP URL or file points to a MAP JSON document",
			Code:    "MAP002",
		},
	},
	{
		pattern: "fetch map",
		msg: UserMessage{
			Message: "The MAP could not be downloaded",
			Action:  "Check the network connection and the MAP URL",
			Code:    "MAP003",
		},
	},
	{
		pattern: "vocabulary",
		msg: UserMessage{
			Message: "The controlled vocabulary could not be loaded",
			Action:  "Check the vocabulary URL or file",
			Code:    "MAP004",
		},
	},

	// =========================================================================
	// Project (PRJ001-PRJ004)
	// =========================================================================
	{
		pattern: "no project is open",
		msg: UserMessage{
			Message: "No project is open",
			Action:  "Open a project first",
			Code:    "PRJ001",
		},
	},
	{
		pattern: "read project",
		msg: UserMessage{
			Message: "The project document could not be read",
			Action:  "Check the path and that the file is a .carp project",
			Code:    "PRJ002",
		},
	},
	{
		pattern: "parse project",
		msg: UserMessage{
			Message: "The project document could not be read",
			Action:  "Check the path and that the file is a .carp project",
			Code:    "PRJ002",
		},
	},
	{
		pattern: "object not found",
		msg: UserMessage{
			Message: "The object no longer exists in the project",
			Action:  "Reload the project and try again",
			Code:    "PRJ003",
		},
	},
	{
		pattern: "has not been saved",
		msg: UserMessage{
			Message: "The project has not been saved yet",
			Action:  "Save the project so its Files directory can be located",
			Code:    "PRJ004",
		},
	},

	// =========================================================================
	// Export (EXP001-EXP004)
	// =========================================================================
	{
		pattern: "unknown exporter",
		msg: UserMessage{
			Message: "This export type is not available",
			Action:  "Choose one of the listed exporters",
			Code:    "EXP001",
		},
	},
	{
		pattern: "needs a date",
		msg: UserMessage{
			Message: "Every exported object needs a date",
			Action:  "Fill in the Date field of every object with access files",
			Code:    "EXP002",
		},
	},
	{
		pattern: "no destination given",
		msg: UserMessage{
			Message: "No export destination was given",
			Action:  "Choose where the export should be written",
			Code:    "EXP003",
		},
	},
	{
		pattern: "export not found",
		msg: UserMessage{
			Message: "Export not found",
			Action:  "The export may have expired. Check the export history",
			Code:    "EXP004",
		},
	},

	// =========================================================================
	// Files (FILE001-FILE004)
	// =========================================================================
	{
		pattern: "no such file or directory",
		msg: UserMessage{
			Message: "A project file is missing on disk",
			Action:  "Rescan the project files and try again",
			Code:    "FILE001",
		},
	},
	{
		pattern: "cannot find the",
		msg: UserMessage{
			Message: "A project file is missing on disk",
			Action:  "Rescan the project files and try again",
			Code:    "FILE001",
		},
	},
	{
		pattern: "permission denied",
		msg: UserMessage{
			Message: "A file or folder could not be accessed",
			Action:  "Check the permissions of the project and destination folders",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no space left",
		msg: UserMessage{
			Message: "The destination ran out of space",
			Action:  "Free up space or choose another destination",
			Code:    "FILE003",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "A manifest could not be written",
			Action:  "Please try again or contact support",
			Code:    "FILE004",
		},
	},

	// =========================================================================
	// Operations (OPS001-OPS003)
	// =========================================================================
	{
		pattern: "operation is in progress",
		msg: UserMessage{
			Message: "Another export or mint operation is in progress",
			Action:  "Wait for it to finish and try again",
			Code:    "OPS001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The operation was cancelled",
			Action:  "Start it again when ready",
			Code:    "OPS002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The operation timed out",
			Action:  "Export fewer objects or raise EXPORT_TIMEOUT",
			Code:    "OPS003",
		},
	},

	// =========================================================================
	// Database (DB001-DB003)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the history database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB002",
		},
	},
	{
		pattern: "no history database",
		msg: UserMessage{
			Message: "No history database is configured",
			Action:  "Set DATABASE_URL and try again",
			Code:    "DB003",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, a generic fallback message with code ERR000 is
// returned.
//
// Example:
//
//	msg := MapError(ErrNoMap)
//	// msg.Code == "MAP001"
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

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
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

// NewUserError creates a UserError by mapping a technical error.
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
