package core

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Users can quote the code to support staff for faster diagnosis.
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - No file: No CSV file was attached to the request
//	         Action: Please select a CSV file to upload
//	REQ002 - Missing parameter: A required form field is empty
//	         Action: Choose a column and try again
//	REQ003 - Invalid filters: Filters or selected columns are not valid JSON
//	         Action: Reset the filters and try again
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the upload size limit
//	          Action: Split the file into smaller chunks
//
// # CSV Errors (CSV001-CSV099)
//
//	CSV001 - Invalid CSV: File is not well-formed comma-separated text
//	         Action: Check for unbalanced quotes in the file
//	CSV002 - Empty file: The uploaded file has no header row
//	         Action: Please upload a CSV file with a header row
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - No match: The filters did not match any row
//	         Action: Widen the filters and try again
//	EXP002 - Encode failed: The export could not be generated
//	         Action: Please try again or contact support
//
// # Capacity (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests from this client
//	RATE002 - Busy: Too many files are being processed right now
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// Sentinel errors are matched with errors.Is first. Errors that only carry
// text (for example from the HTTP layer) fall back to case-insensitive
// substring patterns; the first matching pattern wins.

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

var (
	msgMissingFile = UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to upload",
		Code:    "REQ001",
	}
	msgMissingParameter = UserMessage{
		Message: "A required parameter is missing",
		Action:  "Choose a column and try again",
		Code:    "REQ002",
	}
	msgInvalidSpec = UserMessage{
		Message: "Invalid JSON in filters or columns",
		Action:  "Reset the filters and try again",
		Code:    "REQ003",
	}
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the upload size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}
	msgInvalidCSV = UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Check for unbalanced quotes in the file",
		Code:    "CSV001",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a CSV file with a header row",
		Code:    "CSV002",
	}
	msgNoMatch = UserMessage{
		Message: "No data found matching these criteria",
		Action:  "Widen the filters and try again",
		Code:    "EXP001",
	}
	msgEncode = UserMessage{
		Message: "Error generating CSV file",
		Action:  "Please try again or contact support",
		Code:    "EXP002",
	}
	msgRateLimited = UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}
	msgBusy = UserMessage{
		Message: "The server is busy processing other files",
		Action:  "Please wait a moment and try again",
		Code:    "RATE002",
	}
)

// sentinelMessages is checked in order with errors.Is. ErrEmptyDocument
// must precede ErrParse because empty documents are reported as a ParseError.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrMissingFile, msgMissingFile},
	{ErrMissingParameter, msgMissingParameter},
	{ErrInvalidSpec, msgInvalidSpec},
	{ErrEmptyDocument, msgEmptyFile},
	{ErrParse, msgInvalidCSV},
	{ErrNoMatch, msgNoMatch},
	{ErrEncode, msgEncode},
	{ErrTooManyRequests, msgBusy},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
var errorPatterns = []errorPattern{
	{pattern: "request body too large", msg: msgFileTooLarge},
	{pattern: "file too large", msg: msgFileTooLarge},
	{pattern: "no file provided", msg: msgMissingFile},
	{pattern: "no such file", msg: msgMissingFile},
	{pattern: "empty file", msg: msgEmptyFile},
	{pattern: "invalid csv", msg: msgInvalidCSV},
	{pattern: "rate limit", msg: msgRateLimited},
	{pattern: "too many concurrent", msg: msgBusy},
}

// defaultMessage is returned when nothing matches (ERR000). Support staff
// should check application logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	msg := MapError(ErrNoMatch)
//	// msg.Code == "EXP001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
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

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
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

// NewUserError maps err to a UserError. Returns nil for a nil error.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
