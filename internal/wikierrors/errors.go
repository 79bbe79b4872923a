// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package wikierrors provides the tagged error type used across the
// repository-analysis pipeline.
//
// Every component returns an *Error carrying a Kind (the error-handling
// category from the design: validation, auth, external-transient,
// external-fatal, data-integrity, internal) and a machine-readable Code.
// The Orchestrator is the only place that maps these to Repository state
// transitions; everywhere else they propagate unchanged.
//
//	return wikierrors.New(wikierrors.KindExternalFatal, wikierrors.CodeAuthRequired,
//	    "clone failed", "repository requires credentials", err)
package wikierrors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Kind classifies an error by the source taxonomy in the design's error
// handling section.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindAuth             Kind = "auth"
	KindExternalTransient Kind = "external_transient"
	KindExternalFatal    Kind = "external_fatal"
	KindDataIntegrity    Kind = "data_integrity"
	KindInternal         Kind = "internal"
)

// Machine-readable codes. These are the ones the design calls out by name;
// components are free to add more specific codes for their own domain as
// long as they carry one of the Kinds above.
const (
	CodeAuthRequired    = "AUTH_REQUIRED"
	CodeNotFound        = "NOT_FOUND"
	CodeNetwork         = "NETWORK"
	CodeDisk            = "DISK"
	CodeSyncConflict    = "SYNC_CONFLICT"
	CodeContextOverflow = "CONTEXT_OVERFLOW"
	CodePlanInvalid     = "PLAN_INVALID"
	CodeDuplicate       = "DUPLICATE"
	CodeCycle           = "CYCLE"
	CodeCancelled       = "CANCELLED"
)

// exitCode maps a Kind to a process exit code, following 
// semantic-exit-code convention (internal/errors/errors.go) rather than
// inventing a new numbering scheme.
var exitCode = map[Kind]int{
	KindValidation:        4,
	KindAuth:              5,
	KindExternalTransient: 3,
	KindExternalFatal:     3,
	KindDataIntegrity:     2,
	KindInternal:          10,
}

// Error is the tagged error type every component returns.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   string
	Err     error
	// Retryable marks transient errors the caller's retry policy should
	// act on; set automatically for KindExternalTransient.
	Retryable bool
}

// New builds an Error. cause may be empty.
func New(kind Kind, code, message, cause string, err error) *Error {
	return &Error{
		Kind:      kind,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Err:       err,
		Retryable: kind == KindExternalTransient,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap enables errors.Is/errors.As across the error chain.
func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code appropriate for this error's Kind.
func (e *Error) ExitCode() int {
	if c, ok := exitCode[e.Kind]; ok {
		return c
	}
	return 10
}

// HTTPStatus returns the HTTP status the external interface should surface
// for this error's Kind (§6: "the HTTP surface exposes both verbatim").
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return 400
	case KindAuth:
		return 403
	case KindExternalTransient:
		return 503
	case KindExternalFatal:
		return 502
	case KindDataIntegrity:
		return 422
	default:
		return 500
	}
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
)

// Format renders the error for terminal display, same two-line shape as
// cmd/cie's UserError.Format (Error/Cause), colored unless noColor or
// NO_COLOR is set.
func (e *Error) Format(noColor bool) string {
	original := color.NoColor
	defer func() { color.NoColor = original }()
	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")
	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}
	return out.String()
}

// JSON is the wire shape for error responses and --json CLI output.
type JSON struct {
	Kind  string `json:"kind"`
	Code  string `json:"code"`
	Error string `json:"error"`
	Cause string `json:"cause,omitempty"`
}

// ToJSON converts the Error into its JSON-serializable form.
func (e *Error) ToJSON() JSON {
	return JSON{
		Kind:  string(e.Kind),
		Code:  e.Code,
		Error: e.Message,
		Cause: e.Cause,
	}
}

// Encode writes the error as JSON to w.
func (e *Error) Encode(w *json.Encoder) error {
	return w.Encode(e.ToJSON())
}

// As reports whether err is (or wraps) an *Error and returns it.
func As(err error) (*Error, bool) {
	var e *Error
	if ok := asError(err, &e); ok {
		return e, true
	}
	return nil, false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// IsKind reports whether err is a *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
