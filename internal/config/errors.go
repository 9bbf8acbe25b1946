// Package config loads policy configuration files and resolves them into an effective rule table
package config

import (
	"fmt"

	"github.com/runnerguard/runnerguard/internal/profile"
)

// ErrUnknownProfile is returned for a profile id that is not embedded
var ErrUnknownProfile = profile.ErrUnknownProfile

// ErrorKind classifies configuration failures
type ErrorKind string

const (
	KindParse      ErrorKind = "parse"
	KindValidation ErrorKind = "validation"
	KindCompile    ErrorKind = "compile"
)

// Error is returned for every configuration failure. Field locates the offending entry.
type Error struct {
	Kind  ErrorKind
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config %s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("config %s error at %s: %v", e.Kind, e.Field, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func parseErr(field string, err error) *Error {
	return &Error{Kind: KindParse, Field: field, Err: err}
}

func validationErr(field string, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Field: field, Err: fmt.Errorf(format, args...)}
}

func wrapValidation(field string, err error) *Error {
	return &Error{Kind: KindValidation, Field: field, Err: err}
}

func compileErr(field string, err error) *Error {
	return &Error{Kind: KindCompile, Field: field, Err: err}
}
